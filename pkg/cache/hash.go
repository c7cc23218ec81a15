package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/matzehuels/depfetch/pkg/coord"
)

// DescriptorKey builds the key for the parsed children of a descriptor.
// The digest of the descriptor file is part of the key, so a descriptor that
// changes on disk never hits a stale entry.
func DescriptorKey(c coord.Coordinate, fileDigest string) string {
	return strings.Join([]string{"descriptor", c.GroupID, c.ArtifactID, c.Version, c.Classifier, c.Snapshot, fileDigest}, ":")
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
