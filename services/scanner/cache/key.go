// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/tidewater-labs/bughound/services/scanner/ast"
)

// ContextKey computes the cache key for a unit.
//
// Description:
//
//	When the unit calls other units in the same file, the key folds the
//	unit's content hash with the content hashes of those directly
//	referenced units, so editing a callee invalidates the caller's
//	findings too. Units with no tracked references key on their plain
//	content hash. Only direct references participate: transitive
//	invalidation trades too many cold scans for correctness the direct
//	fold already provides at one hop.
func ContextKey(unit *ast.CodeUnit, analysis *ast.FileAnalysis) string {
	if analysis == nil || len(unit.Callees) == 0 {
		return unit.Hash
	}

	var refHashes []string
	for _, name := range unit.Callees { // already sorted
		ref := analysis.UnitByName(name)
		if ref == nil || ref == unit {
			continue
		}
		refHashes = append(refHashes, ref.Hash)
	}
	if len(refHashes) == 0 {
		return unit.Hash
	}

	h := sha256.New()
	h.Write([]byte(unit.Hash))
	for _, rh := range refHashes {
		h.Write([]byte(rh))
	}
	return hex.EncodeToString(h.Sum(nil))
}
