package core

import (
	"context"
	"io"
)

// FileStorage stores uploaded and generated files (photos, logos, backups) under slash separated names.
type FileStorage interface {
	// Save stores content under name, or under an available variant of it when name is taken.
	// It returns the name actually used.
	Save(ctx context.Context, name string, content io.Reader) (string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	URL(name string) string
}
