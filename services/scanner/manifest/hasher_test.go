// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHA256Hasher_HashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.ts")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	h := NewSHA256Hasher(-1)
	hash, err := h.HashFile(path)
	require.NoError(t, err)

	// sha256("hello")
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		hash)

	again, err := h.HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, hash, again)
}

func TestSHA256Hasher_HashFile_Missing(t *testing.T) {
	h := NewSHA256Hasher(-1)
	_, err := h.HashFile(filepath.Join(t.TempDir(), "nope.ts"))
	assert.Error(t, err)
}

func TestSHA256Hasher_SizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.ts")
	require.NoError(t, os.WriteFile(path, make([]byte, 128), 0o644))

	h := NewSHA256Hasher(64)
	_, err := h.HashFile(path)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = h.HashFileAtomic(path, 1)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	// Zero disables the limit.
	unlimited := NewSHA256Hasher(0)
	_, err = unlimited.HashFile(path)
	assert.NoError(t, err)
}

func TestSHA256Hasher_HashFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.ts")
	require.NoError(t, os.WriteFile(path, []byte("stable content"), 0o644))

	h := NewSHA256Hasher(-1)
	entry, err := h.HashFileAtomic(path, DefaultMaxRetries)
	require.NoError(t, err)

	assert.NoError(t, entry.Validate())
	assert.Equal(t, int64(len("stable content")), entry.Size)
	assert.NotZero(t, entry.Mtime)
}

func TestFileEntry_Validate(t *testing.T) {
	good := FileEntry{Hash: "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"}
	assert.NoError(t, good.Validate())

	short := FileEntry{Hash: "abc"}
	assert.ErrorIs(t, short.Validate(), ErrInvalidHash)

	upper := FileEntry{Hash: "2CF24DBA5FB0A30E26E83B2AC5B9E29E1B161E5C1FA7425E73043362938B9824"}
	assert.ErrorIs(t, upper.Validate(), ErrInvalidHash)
}
