package ports

// CacheStore defines the interface for the directory cache.
//
//go:generate go run go.uber.org/mock/mockgen -source=cache_store.go -destination=mocks/mock_cache_store.go -package=mocks
type CacheStore interface {
	// Restore copies the cached directories for key back under root.
	// It returns false without error when no entry exists for key.
	Restore(key string, paths []string, root string) (bool, error)

	// Save stores the given directories under key and records a manifest
	// entry for the job. Saving an existing key overwrites it.
	Save(key, jobName string, paths []string, root string) error

	// Prune removes all cache entries and the manifest.
	Prune() error
}
