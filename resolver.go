package main

import (
	"os"
	"path/filepath"
)

// fsResolver resolves `include` paths and `embed(...)` literals against
// the filesystem, relative to the directory of the file being compiled -
// the CLI's concrete compiler.Resolver (SPEC_FULL's "Include resolver").
type fsResolver struct {
	baseDir string
}

func newFSResolver(sourcePath string) *fsResolver {
	return &fsResolver{baseDir: filepath.Dir(sourcePath)}
}

func (r *fsResolver) Resolve(path string) (string, error) {
	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(r.baseDir, path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
