package ports

import "github.com/kilnbuild/kiln/internal/core/domain"

// Hasher defines the interface for computing cache keys.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// ComputeKey derives the cache key for the given cache spec: a checksum
	// over the key files' contents combined with the static key prefix.
	ComputeKey(spec *domain.CacheSpec, root string) (string, error)
}
