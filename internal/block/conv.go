// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/edds

package block

import (
	"fmt"
	"math"
)

// I32 returns n as an int32 size field.
func I32(n int) (int32, error) {
	if err := fits(n, math.MaxInt32); err != nil {
		return 0, err
	}

	return int32(n), nil // #nosec G115 -- range checked
}

// U32 returns n as a uint32 size field.
func U32(n int) (uint32, error) {
	if err := fits(n, math.MaxUint32); err != nil {
		return 0, err
	}

	return uint32(n), nil // #nosec G115 -- range checked
}

// fits reports ErrSizeOverflow unless 0 <= n <= limit.
func fits(n int, limit uint64) error {
	if n < 0 || uint64(n) > limit {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrSizeOverflow, n, limit)
	}

	return nil
}
