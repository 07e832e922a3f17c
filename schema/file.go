package schema

import (
	"io"
	"os"
)

// File is the value of a file field: the file name plus its content opened
// for reading. Stores close the reader when the entity is saved. The reader
// of an entity that is never saved is closed by its owner.
type File struct {
	Name   string
	Reader io.ReadCloser
}

// OpenFile opens the named file read-only.
func OpenFile(name string) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return &File{Name: name, Reader: f}, nil
}

// Close closes the underlying reader.
func (f *File) Close() error {
	if f.Reader == nil {
		return nil
	}
	return f.Reader.Close()
}

// String returns the file name.
func (f *File) String() string { return f.Name }
