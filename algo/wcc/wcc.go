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
Package wcc contains the weakly connected components algorithm.

Components are found with a parallel union-find over a disjoint set forest.
Roots are linked by compare-and-swap so that the root of a set is always its
smallest node id. The component id of a node is the id of its root, or the
smallest seed of its component if a seed property is given. Components without
seed get ids above the largest seed.
*/
package wcc

import (
	"context"
	"sync/atomic"

	"github.com/krotik/eliasgds/algo"
	"github.com/krotik/eliasgds/estimate"
	"github.com/krotik/eliasgds/graph"
	"github.com/krotik/eliasgds/graph/column"
	"github.com/krotik/eliasgds/graph/util"
)

/*
Name is the name of the algorithm
*/
const Name = "wcc"

/*
ResultKey is the row key of the component id in stream mode
*/
const ResultKey = "componentId"

/*
Configuration keys of the algorithm
*/
const (
	KeySeedProperty   = "seedProperty"
	KeyThreshold      = "threshold"
	KeyWeightProperty = "relationshipWeightProperty"
	KeyConsecutiveIds = "consecutiveIds"
)

/*
defaultWeight is the weight of relationships without weight value
*/
const defaultWeight = 1.0

/*
cancelCheckInterval is the number of nodes between cancellation checks
*/
const cancelCheckInterval = 1 << 12

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
	SeedProperty   string  // Node property with initial component ids
	Threshold      float64 // Relationships with a weight at or below the threshold are ignored
	WeightProperty string  // Relationship property with weights
	ConsecutiveIds bool    // Flag if component ids should be 0 to componentCount - 1
}

/*
NewConfig reads the configuration of the algorithm.
*/
func NewConfig(r *algo.ConfigReader, base *algo.BaseConfig) (algo.Config, error) {
	c := &Config{
		BaseConfig:     base,
		SeedProperty:   r.String(KeySeedProperty, ""),
		Threshold:      r.Float(KeyThreshold, 0),
		WeightProperty: r.String(KeyWeightProperty, ""),
		ConsecutiveIds: r.Bool(KeyConsecutiveIds, false),
	}

	if c.SeedProperty != "" && c.ConsecutiveIds {
		r.Fail(util.NewGraphError(util.ErrInvalidConfig,
			"Seeding and the generation of consecutive ids cannot be combined"))
	}

	return c, nil
}

/*
ToMap returns the effective configuration as a map.
*/
func (c *Config) ToMap() map[string]interface{} {
	ret := c.BaseConfig.ToMap()

	ret[KeyThreshold] = c.Threshold
	ret[KeyConsecutiveIds] = c.ConsecutiveIds

	if c.SeedProperty != "" {
		ret[KeySeedProperty] = c.SeedProperty
	}
	if c.WeightProperty != "" {
		ret[KeyWeightProperty] = c.WeightProperty
	}

	return ret
}

func validate(cfg algo.Config, v *graph.View) error {
	c := cfg.(*Config)

	if c.SeedProperty != "" {
		if _, ok := v.Graph().NodeProperty(c.SeedProperty); !ok {
			return util.NewGraphError(util.ErrMissingProperty,
				"Seed property '%v' not found", c.SeedProperty)
		}
	}

	if c.WeightProperty != "" && !v.HasRelationshipProperty(c.WeightProperty) {
		return util.NewGraphError(util.ErrMissingProperty,
			"Weight property '%v' not found", c.WeightProperty)
	}

	return nil
}

func estimateMemory(cfg algo.Config, nodeCount, relCount uint64) *estimate.Estimation {
	components := []*estimate.Estimation{
		estimate.Leaf("dss", estimate.Fixed(8*nodeCount)),
		estimate.Leaf("result", estimate.ByteRange{Min: column.Overhead + nodeCount,
			Max: column.Overhead + 8*nodeCount}),
	}

	if cfg.(*Config).SeedProperty != "" {
		components = append(components, estimate.Leaf("seeds", estimate.Fixed(8*nodeCount)))
	}

	return estimate.New(Name, components...)
}

/*
Result is the result of the algorithm.
*/
type Result struct {
	view       *graph.View   // View which the algorithm ran on
	components []int64       // Component id of every node
	count      uint64        // Number of components
	values     column.Column // Result column
}

/*
Values returns the component ids as a column.
*/
func (r *Result) Values() column.Column {
	return r.values
}

/*
ComponentCount returns the number of components.
*/
func (r *Result) ComponentCount() uint64 {
	return r.count
}

/*
Component returns the component id of a node.
*/
func (r *Result) Component(node uint64) int64 {
	return r.components[node]
}

/*
Stats returns the number of components and the distribution of their sizes.
*/
func (r *Result) Stats() map[string]interface{} {
	sizes := make(map[int64]uint64)

	for node, c := range r.components {
		if r.view.Include(uint64(node)) {
			sizes[c]++
		}
	}

	values := make([]uint64, 0, len(sizes))
	for _, s := range sizes {
		values = append(values, s)
	}

	return map[string]interface{}{
		"componentCount":        r.count,
		"componentDistribution": algo.Distribution(values),
	}
}

func compute(ctx context.Context, cfg algo.Config, v *graph.View, pool *algo.Pool) (algo.Computation, error) {
	c := cfg.(*Config)
	n := v.NodeCount()

	dss := newDisjointSets(n)

	err := pool.Run(ctx, n, func(ctx context.Context, part int, from, to uint64) error {
		for node := from; node < to; node++ {
			if (node-from)%cancelCheckInterval == 0 && ctx.Err() != nil {
				return util.NewGraphError(util.ErrCancelled, ctx.Err().Error())
			}

			if !v.Include(node) {
				continue
			}

			if c.WeightProperty == "" {
				v.ForEachNeighbor(node, func(target uint64) bool {
					dss.union(node, target)
					return true
				})
				continue
			}

			v.ForEachRelationship(node, c.WeightProperty, defaultWeight, func(target uint64, weight float64) bool {
				if weight > c.Threshold {
					dss.union(node, target)
				}
				return true
			})
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	var seeds column.Column

	if c.SeedProperty != "" {
		seeds, _ = v.Graph().NodeProperty(c.SeedProperty)
	}

	res := &Result{view: v}
	res.components, res.count = dss.components(v, seeds, c.ConsecutiveIds)
	res.values = column.FromLongs(ResultKey, res.components)

	return res, nil
}

/*
disjointSets is a lock-free disjoint set forest. Every set is represented by
its smallest element.
*/
type disjointSets struct {
	parent []uint64
}

func newDisjointSets(n uint64) *disjointSets {
	parent := make([]uint64, n)
	for i := range parent {
		parent[i] = uint64(i)
	}
	return &disjointSets{parent}
}

/*
find returns the root of an element. Paths are halved on the way.
*/
func (d *disjointSets) find(x uint64) uint64 {
	for {
		p := atomic.LoadUint64(&d.parent[x])
		if p == x {
			return x
		}

		gp := atomic.LoadUint64(&d.parent[p])
		if gp != p {
			atomic.CompareAndSwapUint64(&d.parent[x], p, gp)
		}

		x = p
	}
}

/*
union joins the sets of two elements. The larger root is linked to the
smaller root.
*/
func (d *disjointSets) union(a, b uint64) {
	for {
		a, b = d.find(a), d.find(b)

		if a == b {
			return
		} else if a < b {
			a, b = b, a
		}

		if atomic.CompareAndSwapUint64(&d.parent[a], a, b) {
			return
		}
	}
}

/*
components computes the component id of every included node and the number
of components. Excluded nodes get the missing value placeholder.
*/
func (d *disjointSets) components(v *graph.View, seeds column.Column, consecutive bool) ([]int64, uint64) {
	n := v.NodeCount()
	ret := make([]int64, n)

	// Smallest seed of every root

	var rootSeed map[uint64]int64
	var maxSeed int64 = -1

	if seeds != nil {
		rootSeed = make(map[uint64]int64)

		for node := uint64(0); node < n; node++ {
			if !v.Include(node) {
				continue
			}

			if seed := seeds.Long(node); seed != column.DefaultLong {
				root := d.find(node)

				if s, ok := rootSeed[root]; !ok || seed < s {
					rootSeed[root] = seed
				}
				if seed > maxSeed {
					maxSeed = seed
				}
			}
		}
	}

	mapped := make(map[int64]int64)

	for node := uint64(0); node < n; node++ {
		if !v.Include(node) {
			ret[node] = column.DefaultLong
			continue
		}

		root := d.find(node)

		id, ok := rootSeed[root]
		if !ok {
			id = int64(root)
			if maxSeed >= 0 {
				id = maxSeed + 1 + int64(root)
			}
		}

		if _, ok := mapped[id]; !ok {
			mapped[id] = int64(len(mapped))
		}

		if consecutive {
			id = mapped[id]
		}

		ret[node] = id
	}

	return ret, uint64(len(mapped))
}
