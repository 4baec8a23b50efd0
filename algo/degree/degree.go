/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package degree contains the degree centrality algorithm. The score of a node
is the number of its relationships or the sum of their weights.
*/
package degree

import (
	"context"
	"math"

	"github.com/krotik/eliasgds/algo"
	"github.com/krotik/eliasgds/estimate"
	"github.com/krotik/eliasgds/graph"
	"github.com/krotik/eliasgds/graph/column"
	"github.com/krotik/eliasgds/graph/util"
)

/*
Name is the name of the algorithm
*/
const Name = "degree"

/*
ResultKey is the row key of the score in stream mode
*/
const ResultKey = "score"

/*
KeyWeightProperty is the configuration key of the weight property
*/
const KeyWeightProperty = "relationshipWeightProperty"

/*
Register registers the algorithm in all execution modes.
*/
func Register(r *algo.Registry) {
	for _, mode := range algo.Modes {
		r.Register(&algo.Procedure{
			Algorithm: Name,
			Mode:      mode,
			NewConfig: NewConfig,
			Validate:  validate,
			Compute:   compute,
			Dispatch:  algo.NodePropertyDispatch(mode, ResultKey),
			Estimate: func(cfg algo.Config, nodeCount, relCount uint64) *estimate.Estimation {
				return estimate.New(Name, estimate.Leaf("result", estimate.Fixed(column.Overhead+8*nodeCount)))
			},
		})
	}
}

/*
Config is the configuration of the algorithm.
*/
type Config struct {
	*algo.BaseConfig
	WeightProperty string // Relationship property with weights
}

/*
NewConfig reads the configuration of the algorithm.
*/
func NewConfig(r *algo.ConfigReader, base *algo.BaseConfig) (algo.Config, error) {
	return &Config{base, r.String(KeyWeightProperty, "")}, nil
}

/*
ToMap returns the effective configuration as a map.
*/
func (c *Config) ToMap() map[string]interface{} {
	ret := c.BaseConfig.ToMap()
	if c.WeightProperty != "" {
		ret[KeyWeightProperty] = c.WeightProperty
	}
	return ret
}

func validate(cfg algo.Config, v *graph.View) error {
	c := cfg.(*Config)

	if c.WeightProperty != "" && !v.HasRelationshipProperty(c.WeightProperty) {
		return util.NewGraphError(util.ErrMissingProperty,
			"Weight property '%v' not found", c.WeightProperty)
	}

	return nil
}

/*
Result is the result of the algorithm.
*/
type Result struct {
	view   *graph.View
	scores []float64
	values column.Column
}

/*
Values returns the scores as a column.
*/
func (r *Result) Values() column.Column {
	return r.values
}

/*
Stats returns the distribution of the scores.
*/
func (r *Result) Stats() map[string]interface{} {
	scores := make([]float64, 0, r.view.IncludedCount())

	for node, s := range r.scores {
		if r.view.Include(uint64(node)) {
			scores = append(scores, s)
		}
	}

	return map[string]interface{}{
		"centralityDistribution": algo.DoubleDistribution(scores),
	}
}

func compute(ctx context.Context, cfg algo.Config, v *graph.View, pool *algo.Pool) (algo.Computation, error) {
	c := cfg.(*Config)
	scores := make([]float64, v.NodeCount())

	err := pool.Run(ctx, v.NodeCount(), func(ctx context.Context, part int, from, to uint64) error {
		for node := from; node < to; node++ {
			if !v.Include(node) {
				scores[node] = math.NaN()

			} else if c.WeightProperty == "" {
				scores[node] = float64(v.Degree(node))

			} else {
				var sum float64
				v.ForEachRelationship(node, c.WeightProperty, 1, func(target uint64, weight float64) bool {
					sum += weight
					return true
				})
				scores[node] = sum
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return &Result{v, scores, column.FromDoubles(ResultKey, scores)}, nil
}
