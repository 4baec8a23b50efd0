/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package pagerank

import (
	"context"

	"github.com/krotik/eliasgds/algo"
	"github.com/krotik/eliasgds/graph"
)

/*
DegreeCache holds the aggregated outgoing degree of every node and the average
degree of a view. Without weight property every relationship counts as 1.
*/
type DegreeCache struct {
	AggregatedDegrees []float64 // Sum of outgoing weights per node
	AverageDegree     float64   // Average aggregated degree of all included nodes
}

/*
NewDegreeCache computes the degree cache of a view.
*/
func NewDegreeCache(ctx context.Context, v *graph.View, weightProperty string,
	pool *algo.Pool) (*DegreeCache, error) {

	degrees := make([]float64, v.NodeCount())
	sums := make([]float64, len(pool.Ranges(v.NodeCount())))

	err := pool.Run(ctx, v.NodeCount(), func(ctx context.Context, part int, from, to uint64) error {
		for node := from; node < to; node++ {
			if !v.Include(node) {
				continue
			}

			var degree float64

			if weightProperty == "" {
				degree = float64(v.Degree(node))
			} else {
				v.ForEachRelationship(node, weightProperty, defaultWeight, func(target uint64, weight float64) bool {
					degree += weight
					return true
				})
			}

			degrees[node] = degree
			sums[part] += degree
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	dc := &DegreeCache{AggregatedDegrees: degrees}

	if count := v.IncludedCount(); count > 0 {
		var sum float64
		for _, s := range sums {
			sum += s
		}
		dc.AverageDegree = sum / float64(count)
	}

	return dc, nil
}
