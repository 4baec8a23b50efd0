/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package catalog

import (
	"sort"

	"github.com/krotik/common/sortutil"
)

/*
Distribution is a summary of a list of values.
*/
type Distribution struct {
	P50  float64
	P75  float64
	P90  float64
	P95  float64
	P99  float64
	P999 float64
	Min  float64
	Max  float64
	Mean float64
}

/*
percentiles which are part of a distribution
*/
var percentiles = []float64{50, 75, 90, 95, 99, 99.9}

/*
NewDistribution computes the distribution of a list of integer values. The
given list is sorted in place.
*/
func NewDistribution(values []uint64) *Distribution {
	sortutil.UInt64s(values)

	return distribution(len(values), func(i int) float64 {
		return float64(values[i])
	})
}

/*
NewDoubleDistribution computes the distribution of a list of floating point
values. The given list is sorted in place.
*/
func NewDoubleDistribution(values []float64) *Distribution {
	sort.Float64s(values)

	return distribution(len(values), func(i int) float64 {
		return values[i]
	})
}

/*
distribution computes a distribution from a sorted list. The value of a
percentile p is the value at rank max(1, round(p / 100 * n)).
*/
func distribution(n int, value func(i int) float64) *Distribution {
	d := &Distribution{}

	if n == 0 {
		return d
	}

	var ps [6]float64

	for i, p := range percentiles {
		rank := int(p/100*float64(n) + 0.5)
		if rank < 1 {
			rank = 1
		}
		ps[i] = value(rank - 1)
	}

	d.P50, d.P75, d.P90, d.P95, d.P99, d.P999 = ps[0], ps[1], ps[2], ps[3], ps[4], ps[5]
	d.Min = value(0)
	d.Max = value(n - 1)

	var sum float64
	for i := 0; i < n; i++ {
		sum += value(i)
	}
	d.Mean = sum / float64(n)

	return d
}

/*
ToMap returns a map representation of this distribution.
*/
func (d *Distribution) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"p50":  d.P50,
		"p75":  d.P75,
		"p90":  d.P90,
		"p95":  d.P95,
		"p99":  d.P99,
		"p999": d.P999,
		"min":  d.Min,
		"max":  d.Max,
		"mean": d.Mean,
	}
}
