// Package storage defines the output-site file-system abstraction.
package storage

// Provider is the interface for writing the generated site.
type Provider interface {
	// Reset deletes everything under the root and recreates it empty.
	Reset() error
	// Write atomically writes content to path (relative to the site root).
	Write(path string, content []byte) error
	// Copy copies the file at src (absolute) to dst (relative to the site root).
	Copy(src, dst string) error
	// CopyDir copies the regular files directly inside srcDir into dstDir.
	CopyDir(srcDir, dstDir string) (int, error)
}

// Verify *FS satisfies Provider at compile time.
var _ Provider = (*FS)(nil)
