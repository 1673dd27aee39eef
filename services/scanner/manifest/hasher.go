// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const (
	// DefaultMaxFileSize is the largest file the hasher will read.
	DefaultMaxFileSize int64 = 100 * 1024 * 1024 // 100MB

	// DefaultMaxRetries bounds re-hash attempts when a file changes
	// underneath the hasher.
	DefaultMaxRetries = 3
)

// Hasher fingerprints files.
type Hasher interface {
	// HashFile returns the hex SHA-256 digest of the file content.
	HashFile(path string) (string, error)

	// HashFileAtomic hashes with stability verification: the file's
	// mtime and size are compared before and after reading, retrying
	// up to maxRetries times. Returns ErrFileUnstable when the file
	// never settles.
	HashFileAtomic(path string, maxRetries int) (FileEntry, error)
}

// SHA256Hasher is the default Hasher. Safe for concurrent use.
type SHA256Hasher struct {
	maxFileSize int64
}

// NewSHA256Hasher creates a hasher with the given size limit. A
// negative limit selects DefaultMaxFileSize; zero disables the limit.
func NewSHA256Hasher(maxFileSize int64) *SHA256Hasher {
	if maxFileSize < 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &SHA256Hasher{maxFileSize: maxFileSize}
}

// HashFile returns the hex SHA-256 digest of the file content.
func (h *SHA256Hasher) HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if h.maxFileSize > 0 {
		info, err := f.Stat()
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Size() > h.maxFileSize {
			return "", fmt.Errorf("%w: %d bytes", ErrFileTooLarge, info.Size())
		}
	}

	digest := sha256.New()
	if _, err := io.Copy(digest, f); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// HashFileAtomic hashes a file and verifies it did not change while
// being read, retrying up to maxRetries times.
func (h *SHA256Hasher) HashFileAtomic(path string, maxRetries int) (FileEntry, error) {
	if maxRetries < 1 {
		maxRetries = DefaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		before, err := os.Lstat(path)
		if err != nil {
			return FileEntry{}, fmt.Errorf("stat %s: %w", path, err)
		}
		if h.maxFileSize > 0 && before.Size() > h.maxFileSize {
			return FileEntry{}, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, before.Size())
		}

		hash, err := h.HashFile(path)
		if err != nil {
			return FileEntry{}, err
		}

		after, err := os.Lstat(path)
		if err != nil {
			return FileEntry{}, fmt.Errorf("stat %s: %w", path, err)
		}

		if before.ModTime().Equal(after.ModTime()) && before.Size() == after.Size() {
			return FileEntry{
				Path:  path,
				Hash:  hash,
				Mtime: after.ModTime().UnixNano(),
				Size:  after.Size(),
			}, nil
		}
		lastErr = fmt.Errorf("%w: %s (attempt %d)", ErrFileUnstable, path, attempt+1)
	}

	return FileEntry{}, lastErr
}

// Compile-time interface compliance check.
var _ Hasher = (*SHA256Hasher)(nil)
