package core

import (
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// NowFunc is the clock used by services. Tests replace it.
var NowFunc = time.Now // mockable

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// TimestampedName returns `dir/YYYY-MM-DD-HH-MM-SS.ext`, keeping the extension of `filename`.
func TimestampedName(dir, filename string, t time.Time) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	name := t.Format("2006-01-02-15-04-05")
	if ext != "" {
		name += "." + strings.ToLower(ext)
	}
	return path.Join(dir, name)
}

// Getwd finds the project root: the closest parent directory holding a go.mod.
// go test runs inside the package directory, so the plain working directory is not enough.
// Falls back to the working directory when no go.mod is found (e.g. a deployed binary).
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}

// CheckReorder validates a new ordering of object ids: not empty, no duplicates.
func CheckReorder(ids []int) error {
	if len(ids) == 0 {
		return NewValidationError(nil, FieldError{Field: "ids", Error: requiredText})
	}
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return NewValidationError(nil, FieldError{Field: "ids", Error: "ids must not contain duplicates"})
		}
		seen[id] = true
	}
	return nil
}
