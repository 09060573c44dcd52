// Package mediasvc stores media files on the local filesystem or in an S3 compatible bucket.
package mediasvc

import (
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var ErrInvalidName = errors.New("invalid file name")

// New returns the storage selected by conf.Media.Backend.
func New(conf *core.Config) (core.FileStorage, error) {
	switch conf.Media.Backend {
	case "", "fs":
		return NewFSStorage(conf.Media.Root, conf.Media.URL), nil
	case "s3":
		return NewS3Storage(conf.Media)
	default:
		return nil, errors.Errorf("unknown media backend %q", conf.Media.Backend)
	}
}

// cleanName rejects absolute names and names escaping the storage root.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || strings.HasPrefix(name, "/") {
		return "", ErrInvalidName
	}
	name = path.Clean(name)
	if name == "." || name == ".." || strings.HasPrefix(name, "../") {
		return "", ErrInvalidName
	}
	return name, nil
}

// alternativeName appends a random suffix to the base name: dir/name_1a2b3c4.ext
func alternativeName(name string) string {
	ext := path.Ext(name)
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:7]
	return strings.TrimSuffix(name, ext) + "_" + suffix + ext
}

func joinURL(base, name string) string {
	return strings.TrimSuffix(base, "/") + "/" + name
}
