// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchrun

import (
	"fmt"
	"sort"

	"github.com/aclements/go-moremath/stats"
)

// A Sample is a set of repeated measurements of one benchmarked
// quantity in one unit.
type Sample struct {
	// Values are the measured values, in ascending order.
	Values []float64

	// Unit is the unit of every value, e.g. "sec/op" or "B/op".
	Unit string
}

// NewSample constructs a Sample from a set of measurements. It sorts
// values in place.
func NewSample(values []float64, unit string) *Sample {
	sort.Float64s(values)
	return &Sample{values, unit}
}

func (s *Sample) sample() stats.Sample {
	return stats.Sample{Xs: s.Values, Sorted: true}
}

// Min returns the smallest measurement.
func (s *Sample) Min() float64 { return s.Values[0] }

// Max returns the largest measurement.
func (s *Sample) Max() float64 { return s.Values[len(s.Values)-1] }

// Median returns the sample median.
func (s *Sample) Median() float64 {
	return s.sample().Quantile(0.5)
}

// Summary returns the sample mean with its confidence interval at the
// given level, e.g. 0.95 for 95% confidence.
func (s *Sample) Summary(confidence float64) (center, lo, hi float64) {
	return s.sample().MeanCI(confidence)
}

// A Comparison is the result of testing whether two samples come from
// the same distribution, using the Mann-Whitney U-test.
type Comparison struct {
	// P is the p-value of the null hypothesis that the two samples
	// come from the same distribution.
	P float64

	// N1 and N2 are the sample sizes.
	N1, N2 int

	// Alpha is the significance threshold. If P < Alpha the samples
	// are considered to differ.
	Alpha float64

	// Err reports why a test could not be run, e.g. all-equal
	// samples. When Err is non-nil, P is 1.
	Err error
}

// DefaultAlpha is the conventional significance threshold.
const DefaultAlpha = 0.05

// Compare tests whether s1 and s2 come from the same distribution.
func Compare(s1, s2 *Sample) Comparison {
	c := Comparison{N1: len(s1.Values), N2: len(s2.Values), Alpha: DefaultAlpha}
	res, err := stats.MannWhitneyUTest(s1.Values, s2.Values, stats.LocationDiffers)
	if err != nil {
		// The test failed; report no significant difference
		// along with the reason.
		c.P, c.Err = 1, err
		return c
	}
	c.P = res.P
	return c
}

// String summarizes the comparison as "p=0.PPP n=N1+N2", shortened
// when the sample sizes match.
func (c Comparison) String() string {
	if c.N1 == c.N2 {
		return fmt.Sprintf("p=%0.3f n=%d", c.P, c.N1)
	}
	return fmt.Sprintf("p=%0.3f n=%d+%d", c.P, c.N1, c.N2)
}

// FormatDelta formats the relative difference of two sample centers.
// If the comparison accepts the null hypothesis, it returns "~" to
// indicate no meaningful difference.
func (c Comparison) FormatDelta(old, new float64) string {
	if c.P > c.Alpha {
		return "~"
	}
	if old == new {
		return "0.00%"
	}
	if old == 0 {
		return "?"
	}
	return fmt.Sprintf("%+.2f%%", (new/old-1)*100)
}
