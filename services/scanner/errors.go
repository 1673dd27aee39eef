// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scanner

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned when the scan request is missing a
	// project root or names an unusable one.
	ErrInvalidRequest = errors.New("invalid scan request")

	// ErrScanCanceled is returned when the scan context was canceled
	// before completion. No cache write happens in that case.
	ErrScanCanceled = errors.New("scan canceled")
)

// TargetError records one target file's pipeline failure. Failures are
// isolated: siblings keep running.
type TargetError struct {
	FilePath string `json:"file_path"`
	Err      error  `json:"-"`
	Message  string `json:"message"`
}

func (e TargetError) Error() string {
	return fmt.Sprintf("target %s: %v", e.FilePath, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e TargetError) Unwrap() error {
	return e.Err
}

func newTargetError(path string, err error) TargetError {
	return TargetError{FilePath: path, Err: err, Message: err.Error()}
}
