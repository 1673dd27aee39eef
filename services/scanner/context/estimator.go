// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package context

// ItemOverhead is the fixed per-item cost covering formatting around
// each context element (labels, separators) in the downstream payload.
const ItemOverhead = 8

// EstimateTokens is the size proxy for budget checks: one token per
// four characters, rounded up. Deterministic and monotonic in input
// length; deliberately not a real tokenizer.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}

// itemCost is the budget charge for adding one element.
func itemCost(s string) int {
	return EstimateTokens(s) + ItemOverhead
}
