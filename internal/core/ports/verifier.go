package ports

// Verifier defines the interface for verifying file existence.
//
//go:generate go run go.uber.org/mock/mockgen -source=verifier.go -destination=mocks/mock_verifier.go -package=mocks
type Verifier interface {
	// VerifyPaths checks if all paths exist in the given root directory.
	VerifyPaths(root string, paths []string) (bool, error)
}
