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
Package pagerank contains the page rank algorithm.

Scores are computed iteratively. Every node starts with a score of
1 - dampingFactor. In each iteration a node passes its score, split by the
share of each outgoing relationship in its aggregated degree, to its
neighbours. The iteration stops once no score changes by more than the
tolerance or after maxIterations iterations.
*/
package pagerank

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
const Name = "pagerank"

/*
ResultKey is the row key of the score in stream mode
*/
const ResultKey = "score"

/*
Configuration keys of the algorithm
*/
const (
	KeyDampingFactor  = "dampingFactor"
	KeyMaxIterations  = "maxIterations"
	KeyTolerance      = "tolerance"
	KeyWeightProperty = "relationshipWeightProperty"
)

/*
Default settings of the algorithm
*/
const (
	DefaultDampingFactor = 0.85
	DefaultMaxIterations = 20
	DefaultTolerance     = 1e-7
)

const defaultWeight = 1.0

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
			Estimate:  estimateMemory,
		})
	}
}

/*
Config is the configuration of the algorithm.
*/
type Config struct {
	*algo.BaseConfig
	DampingFactor  float64 // Probability of following a relationship
	MaxIterations  int     // Upper bound of iterations
	Tolerance      float64 // Largest score change which counts as converged
	WeightProperty string  // Relationship property with weights
}

/*
NewConfig reads the configuration of the algorithm.
*/
func NewConfig(r *algo.ConfigReader, base *algo.BaseConfig) (algo.Config, error) {
	c := &Config{
		BaseConfig:     base,
		DampingFactor:  r.Float(KeyDampingFactor, DefaultDampingFactor),
		MaxIterations:  int(r.Int(KeyMaxIterations, DefaultMaxIterations)),
		Tolerance:      r.Float(KeyTolerance, DefaultTolerance),
		WeightProperty: r.String(KeyWeightProperty, ""),
	}

	if c.DampingFactor < 0 || c.DampingFactor >= 1 {
		r.Fail(util.NewGraphError(util.ErrInvalidConfig,
			"Configuration key '%v' must be in [0, 1) but is: %v", KeyDampingFactor, c.DampingFactor))

	} else if c.MaxIterations < 1 {
		r.Fail(util.NewGraphError(util.ErrInvalidConfig,
			"Configuration key '%v' must be positive but is: %v", KeyMaxIterations, c.MaxIterations))

	} else if c.Tolerance < 0 {
		r.Fail(util.NewGraphError(util.ErrInvalidConfig,
			"Configuration key '%v' must not be negative but is: %v", KeyTolerance, c.Tolerance))
	}

	return c, nil
}

/*
ToMap returns the effective configuration as a map.
*/
func (c *Config) ToMap() map[string]interface{} {
	ret := c.BaseConfig.ToMap()

	ret[KeyDampingFactor] = c.DampingFactor
	ret[KeyMaxIterations] = c.MaxIterations
	ret[KeyTolerance] = c.Tolerance

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

func estimateMemory(cfg algo.Config, nodeCount, relCount uint64) *estimate.Estimation {
	concurrency := uint64(cfg.Base().Concurrency)

	return estimate.New(Name,
		estimate.Leaf("scores", estimate.Fixed(2*8*nodeCount)),
		estimate.Leaf("degrees", estimate.Fixed(8*nodeCount)),
		estimate.Leaf("partial scores", estimate.ByteRange{Min: 8 * nodeCount, Max: concurrency * 8 * nodeCount}),
		estimate.Leaf("result", estimate.Fixed(column.Overhead+8*nodeCount)),
	)
}

/*
Result is the result of the algorithm.
*/
type Result struct {
	view       *graph.View   // View which the algorithm ran on
	scores     []float64     // Score of every node
	iterations int           // Number of iterations
	converged  bool          // Flag if the scores converged
	values     column.Column // Result column
}

/*
Values returns the scores as a column.
*/
func (r *Result) Values() column.Column {
	return r.values
}

/*
Score returns the score of a node.
*/
func (r *Result) Score(node uint64) float64 {
	return r.scores[node]
}

/*
Iterations returns the number of iterations which were run.
*/
func (r *Result) Iterations() int {
	return r.iterations
}

/*
Converged returns if the scores converged.
*/
func (r *Result) Converged() bool {
	return r.converged
}

/*
Stats returns the number of iterations and the distribution of the scores.
*/
func (r *Result) Stats() map[string]interface{} {
	scores := make([]float64, 0, r.view.IncludedCount())

	for node, s := range r.scores {
		if r.view.Include(uint64(node)) {
			scores = append(scores, s)
		}
	}

	return map[string]interface{}{
		"ranIterations":          r.iterations,
		"didConverge":            r.converged,
		"centralityDistribution": algo.DoubleDistribution(scores),
	}
}

func compute(ctx context.Context, cfg algo.Config, v *graph.View, pool *algo.Pool) (algo.Computation, error) {
	c := cfg.(*Config)
	n := v.NodeCount()

	degrees, err := NewDegreeCache(ctx, v, c.WeightProperty, pool)
	if err != nil {
		return nil, err
	}

	base := 1 - c.DampingFactor
	ranges := pool.Ranges(n)

	scores := make([]float64, n)
	next := make([]float64, n)
	partial := make([][]float64, len(ranges))

	for i := range partial {
		partial[i] = make([]float64, n)
	}

	for node := uint64(0); node < n; node++ {
		if v.Include(node) {
			scores[node] = base
		}
	}

	res := &Result{view: v}

	for res.iterations < c.MaxIterations && !res.converged {
		if err := ctx.Err(); err != nil {
			return nil, util.NewGraphError(util.ErrCancelled, err.Error())
		}

		// Each range pushes the scores of its nodes into its own buffer

		err := pool.Run(ctx, n, func(ctx context.Context, part int, from, to uint64) error {
			buf := partial[part]

			for i := range buf {
				buf[i] = 0
			}

			for node := from; node < to; node++ {
				degree := degrees.AggregatedDegrees[node]

				if !v.Include(node) || degree == 0 {
					continue
				}

				share := scores[node] / degree

				if c.WeightProperty == "" {
					v.ForEachNeighbor(node, func(target uint64) bool {
						buf[target] += share
						return true
					})
					continue
				}

				v.ForEachRelationship(node, c.WeightProperty, defaultWeight, func(target uint64, weight float64) bool {
					buf[target] += share * weight
					return true
				})
			}
			return nil
		})

		if err != nil {
			return nil, err
		}

		// Sum the buffers in a fixed order

		err = pool.Run(ctx, n, func(ctx context.Context, part int, from, to uint64) error {
			for node := from; node < to; node++ {
				if !v.Include(node) {
					next[node] = math.NaN()
					continue
				}

				var sum float64
				for _, buf := range partial {
					sum += buf[node]
				}

				next[node] = base + c.DampingFactor*sum
			}
			return nil
		})

		if err != nil {
			return nil, err
		}

		res.iterations++
		res.converged = true

		for node := uint64(0); node < n; node++ {
			if v.Include(node) && math.Abs(next[node]-scores[node]) > c.Tolerance {
				res.converged = false
				break
			}
		}

		scores, next = next, scores
	}

	for node := uint64(0); node < n; node++ {
		if !v.Include(node) {
			scores[node] = math.NaN()
		}
	}

	res.scores = scores
	res.values = column.FromDoubles(ResultKey, scores)

	return res, nil
}
