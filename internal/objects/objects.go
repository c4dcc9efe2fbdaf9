// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package objects locates content in a sharded object store. An object with
// hash h lives at <root>/<h[0:2]>/<h>, the layout used by
// .minecraft/assets/objects.
package objects

import "path/filepath"

// shardLen is the number of leading hash characters naming the shard directory.
const shardLen = 2

// ShardPrefix returns the shard directory name for hash, with case preserved.
// Hashes shorter than the prefix are returned whole; the manifest loader
// rejects them before they reach the resolver.
func ShardPrefix(hash string) string {
	if len(hash) < shardLen {
		return hash
	}
	return hash[:shardLen]
}

// Path returns the on-disk location of the object named by hash under root.
// It performs no I/O.
func Path(root, hash string) string {
	return filepath.Join(root, ShardPrefix(hash), hash)
}
