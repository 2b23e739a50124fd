package badger

import (
	"fmt"

	"github.com/google/uuid"
)

// Database Key Namespace Design
// ==============================
//
// Items are identified by UUID v4, so renames and moves only rewrite the
// moved item's record and the two child links, never the subtree.
//
// Data Type          Prefix  Key Format                  Value Type
// ==================================================================
// Root Pointer       "r:"    r:root                      rootUUID (string)
// Item Record        "f:"    f:<uuid>                    record (JSON)
// Children Map       "c:"    c:<parentUUID>:<childName>  childUUID (string)
// Content Chunk      "b:"    b:<blobUUID>:<index>        raw bytes
//
// Content is stored in fixed-size chunks under a blob id that changes on
// every write. A write stream fills a fresh blob and swaps it into the
// record on Close; the previous blob is purged afterwards. Readers run in a
// read-only transaction opened when the stream was created, so they keep
// seeing the blob that was current at that point.

const (
	// prefixRoot is the key prefix for the root pointer
	prefixRoot = "r:"

	// prefixFile is the key prefix for item records
	prefixFile = "f:"

	// prefixChild is the key prefix for children mappings (parentUUID:name → childUUID)
	prefixChild = "c:"

	// prefixBlob is the key prefix for content chunks
	prefixBlob = "b:"
)

// keyRoot is the singleton key holding the root collection's UUID.
func keyRoot() []byte {
	return []byte(prefixRoot + "root")
}

// keyFile generates a key for an item record.
//
// Format: "f:<uuid>"
// Example: "f:550e8400-e29b-41d4-a716-446655440000"
func keyFile(id uuid.UUID) []byte {
	return []byte(prefixFile + id.String())
}

// keyChild generates a key for a child entry in a collection.
//
// Format: "c:<parentUUID>:<childName>"
// Example: "c:550e8400-e29b-41d4-a716-446655440000:report.pdf"
func keyChild(parentID uuid.UUID, childName string) []byte {
	return []byte(prefixChild + parentID.String() + ":" + childName)
}

// keyChildPrefix generates a key prefix for scanning all children of a
// collection.
func keyChildPrefix(parentID uuid.UUID) []byte {
	return []byte(prefixChild + parentID.String() + ":")
}

// keyChunk generates the key of chunk n of a blob. The index is zero-padded
// so chunks sort in order.
//
// Format: "b:<blobUUID>:<index>"
// Example: "b:550e8400-e29b-41d4-a716-446655440000:00000003"
func keyChunk(blob uuid.UUID, n int) []byte {
	return []byte(fmt.Sprintf("%s%s:%08d", prefixBlob, blob.String(), n))
}
