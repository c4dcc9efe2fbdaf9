// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"
)

// newDigest picks the digest algorithm from the length of the hex hash:
// 40 characters is SHA-1 (the Minecraft object store), 64 is SHA-256.
// Any other length returns nil and the content is not verified.
func newDigest(hexHash string) hash.Hash {
	switch len(hexHash) {
	case sha1.Size * 2:
		return sha1.New()
	case sha256.Size * 2:
		return sha256.New()
	}
	return nil
}

func digestHex(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// hashEqual compares hex digests ignoring case; manifests keep the case they
// were written with.
func hashEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}
