package utils

import (
	"path/filepath"
	"runtime"
)

// ProjectRoot returns the absolute path to the module root, resolved from this
// source file. It is meant for tests that run from a package directory.
func ProjectRoot() string {
	_, b, _, _ := runtime.Caller(0)
	return filepath.Dir(filepath.Dir(b))
}

// SQLPath returns the absolute path to a file in the sql directory.
func SQLPath(filename string) string {
	return filepath.Join(ProjectRoot(), "sql", filename)
}
