package storage

import "path"

// PathConfig holds configuration for object key generation.
type PathConfig struct {
	// Prefix is the key prefix under which file content is stored.
	Prefix string

	// ShardLevels is the number of key levels for sharding.
	// Default: 2 (e.g., files/ab/cd/abcdef...)
	ShardLevels int

	// ShardWidth is the number of characters per shard level.
	// Default: 2 (e.g., ab, cd)
	ShardWidth int
}

// DefaultPathConfig returns the default key configuration.
func DefaultPathConfig(prefix string) PathConfig {
	return PathConfig{
		Prefix:      prefix,
		ShardLevels: 2,
		ShardWidth:  2,
	}
}

// ComputeKey generates the object key for a content hash.
// Uses key sharding to distribute objects across prefixes.
//
// Example with default config (2 levels, 2 chars each):
//
//	hash: "abcdef1234567890..."
//	prefix: "files"
//	result: "files/ab/cd/abcdef1234567890..."
//
// Hashes shorter than the shard width are stored directly under the prefix.
func ComputeKey(config PathConfig, contentHash string) string {
	components := make([]string, 0, config.ShardLevels+2)
	if config.Prefix != "" {
		components = append(components, config.Prefix)
	}
	components = append(components, ShardDirs(config, contentHash)...)
	components = append(components, contentHash)

	return path.Join(components...)
}

// ObjectKey generates the object key using the default configuration.
func ObjectKey(prefix, contentHash string) string {
	return ComputeKey(DefaultPathConfig(prefix), contentHash)
}

// ShardDirs returns the shard components for a hash.
//
// Example:
//
//	hash: "abcdef..."
//	result: ["ab", "cd"]
func ShardDirs(config PathConfig, contentHash string) []string {
	minLength := config.ShardLevels * config.ShardWidth
	if len(contentHash) < minLength {
		return nil
	}

	dirs := make([]string, config.ShardLevels)
	offset := 0
	for i := 0; i < config.ShardLevels; i++ {
		dirs[i] = contentHash[offset : offset+config.ShardWidth]
		offset += config.ShardWidth
	}

	return dirs
}
