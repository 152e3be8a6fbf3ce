package catalog

import (
	"crypto/sha256"
	"encoding/hex"
)

// Store defines the catalog operations used by the builder and dev server.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Store interface {
	ReplaceAll(entries []Entry) error
	GetNote(path string) (*NoteRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	Backlinks(target string) ([]NoteRow, error)
	Count() (int, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// SourceChecksum returns the hex SHA-256 of a note's source bytes, stored in
// NoteRow.Checksum.
func SourceChecksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
