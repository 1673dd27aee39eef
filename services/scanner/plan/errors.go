// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package plan

import "errors"

var (
	// ErrUnknownTier indicates an unrecognized tier name.
	ErrUnknownTier = errors.New("unknown scan tier")

	// ErrNoTargets indicates the request selects nothing to scan.
	ErrNoTargets = errors.New("nothing to scan")
)
