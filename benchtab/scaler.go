// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchtab

import (
	"fmt"
	"time"
)

// FormatTime formats a duration with roughly three significant
// digits, picking the unit that keeps the mantissa in [1, 1000).
func FormatTime(d time.Duration) string {
	ns := float64(d.Nanoseconds())
	switch sec := ns / 1e9; {
	case sec >= 99.5:
		return fmt.Sprintf("%.0fs", sec)
	case sec >= 9.95:
		return fmt.Sprintf("%.1fs", sec)
	case sec >= 0.995:
		return fmt.Sprintf("%.2fs", sec)
	case sec >= 0.0995:
		return fmt.Sprintf("%.0fms", sec*1e3)
	case sec >= 0.00995:
		return fmt.Sprintf("%.1fms", sec*1e3)
	case sec >= 0.000995:
		return fmt.Sprintf("%.2fms", sec*1e3)
	case sec >= 0.0000995:
		return fmt.Sprintf("%.0fµs", sec*1e6)
	case sec >= 0.00000995:
		return fmt.Sprintf("%.1fµs", sec*1e6)
	case sec >= 0.000000995:
		return fmt.Sprintf("%.2fµs", sec*1e6)
	case sec >= 0.0000000995:
		return fmt.Sprintf("%.0fns", ns)
	case sec >= 0.00000000995:
		return fmt.Sprintf("%.1fns", ns)
	default:
		return fmt.Sprintf("%.2fns", ns)
	}
}

// FormatBytes formats a byte count with an IEC binary prefix and
// roughly three significant digits.
func FormatBytes(b uint64) string {
	v := float64(b)
	for _, f := range []struct {
		factor float64
		prefix string
	}{
		{1 << 40, "Ti"},
		{1 << 30, "Gi"},
		{1 << 20, "Mi"},
		{1 << 10, "Ki"},
	} {
		x := v / f.factor
		switch {
		case x >= 99.5:
			return fmt.Sprintf("%.0f%sB", x, f.prefix)
		case x >= 9.95:
			return fmt.Sprintf("%.1f%sB", x, f.prefix)
		case x >= 0.995:
			return fmt.Sprintf("%.2f%sB", x, f.prefix)
		}
	}
	return fmt.Sprintf("%.0fB", v)
}
