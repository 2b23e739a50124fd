package badger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// kind distinguishes collections from documents in a record.
type kind string

const (
	kindCollection kind = "collection"
	kindDocument   kind = "document"
)

// record is the persisted form of an item, stored as JSON under keyFile.
type record struct {
	ID      uuid.UUID `json:"id"`
	Kind    kind      `json:"kind"`
	Name    string    `json:"name"`
	Parent  uuid.UUID `json:"parent"`
	ModTime time.Time `json:"mod_time"`

	// Document content; Blob is uuid.Nil for empty documents
	Size   int64     `json:"size,omitempty"`
	Blob   uuid.UUID `json:"blob"`
	Chunks int       `json:"chunks,omitempty"`
}

func encodeRecord(r *record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*record, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &r, nil
}
