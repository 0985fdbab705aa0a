// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package affinity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownGoalCategory is returned when a batch is requested for a goal
	// category that is not part of the matrix.
	ErrUnknownGoalCategory = errors.New("unknown goal category")

	// ErrCategoryMismatch is returned when two matrices with different
	// category orderings are combined.
	ErrCategoryMismatch = errors.New("category ordering mismatch")

	// ErrNotSquare is returned when matrix values do not match the category list.
	ErrNotSquare = errors.New("matrix is not square over its categories")

	// ErrInvalidActiveDays is returned when a batch requests a negative
	// activity window.
	ErrInvalidActiveDays = errors.New("active days must not be negative")
)

// UnknownGoalError reports an invalid goal category together with the
// categories that would have been accepted.
type UnknownGoalError struct {
	Goal  string
	Valid []string
}

// Error implements the error interface.
func (e *UnknownGoalError) Error() string {
	return fmt.Sprintf("%s %q (valid: %s)", ErrUnknownGoalCategory, e.Goal, strings.Join(e.Valid, ", "))
}

// Unwrap allows errors.Is(err, ErrUnknownGoalCategory).
func (e *UnknownGoalError) Unwrap() error {
	return ErrUnknownGoalCategory
}
