// Package hashing implements the content-addressing primitives the build
// orchestrator uses to decide whether a package needs re-parsing or
// re-extraction: per-file hashes, an aggregate source-tree hash, and an
// order-independent file-tree digest.
package hashing

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
	"sort"
	"time"

	"shire/internal/walker"
)

// emptyHash is SHA-256 of the empty byte string, used whenever a package
// has no eligible source files.
const emptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// HashFile returns the lowercase hex SHA-256 of path's contents.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// SourceTreeHash walks packageDir for files matching extensions (using the
// same walker and exclusion rules as symbol extraction), hashes each file,
// concatenates the hex digests in sorted-path order, and hashes that
// concatenation. Returns the empty-string hash if packageDir has no
// eligible files or does not exist.
func SourceTreeHash(packageDir string, extensions []string, exclude map[string]struct{}) (string, error) {
	info, err := os.Stat(packageDir)
	if err != nil || !info.IsDir() {
		return emptyHash, nil
	}

	files, err := walker.Walk(packageDir, extensions, exclude)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return emptyHash, nil
	}

	var combined []byte
	for _, f := range files {
		h, err := HashFile(f)
		if err != nil {
			return "", err
		}
		combined = append(combined, h...)
	}
	sum := sha256.Sum256(combined)
	return hex.EncodeToString(sum[:]), nil
}

// FileTreeEntry is one (path, size) pair fed to FileTreeHash.
type FileTreeEntry struct {
	Path string
	Size int64
}

// FileTreeHash sorts entries by path and hashes the concatenation of each
// path's bytes followed by its size as a little-endian 8-byte integer.
// Order-independent: permuting entries yields the same digest.
func FileTreeHash(entries []FileTreeEntry) string {
	sorted := make([]FileTreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	h := sha256.New()
	var sizeBuf [8]byte
	for _, e := range sorted {
		h.Write([]byte(e.Path))
		binary.LittleEndian.PutUint64(sizeBuf[:], uint64(e.Size))
		h.Write(sizeBuf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HasNewerSourceFiles walks packageDir with the same filters as
// SourceTreeHash and reports whether any file's modification time exceeds
// since. I/O errors and a missing directory are treated conservatively:
// errors count as "changed", a missing directory counts as "unchanged"
// (there is nothing to be newer than).
func HasNewerSourceFiles(packageDir string, extensions []string, exclude map[string]struct{}, since time.Time) bool {
	info, err := os.Stat(packageDir)
	if err != nil || !info.IsDir() {
		return false
	}

	files, err := walker.Walk(packageDir, extensions, exclude)
	if err != nil {
		return true
	}

	for _, f := range files {
		fi, err := os.Stat(f)
		if err != nil {
			return true
		}
		if fi.ModTime().After(since) {
			return true
		}
	}
	return false
}
