/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"strings"

	"github.com/krotik/common/stringutil"
	"github.com/krotik/eliasgds/graph/column"
	"github.com/krotik/eliasgds/graph/util"
)

/*
View is a read-only window on a graph which is restricted to nodes with
certain labels and relationships of certain types. Node ids of a view are the
node ids of the underlying graph.
*/
type View struct {
	graph   *Graph   // Underlying graph
	types   []string // Selected relationship types
	include []uint64 // Bitset of included nodes (nil includes all nodes)
	count   uint64   // Number of included nodes
}

/*
NewView creates a new view on a graph. Empty lists or a wildcard select all
labels or types.
*/
func NewView(g *Graph, labels []string, types []string) (*View, error) {
	v := &View{graph: g, count: g.NodeCount()}

	if len(labels) > 0 && stringutil.IndexOf(AllLabels, labels) == -1 {
		var missing []string

		known := g.NodeLabels()

		for _, l := range labels {
			if stringutil.IndexOf(l, known) == -1 {
				missing = append(missing, l)
			}
		}

		if len(missing) > 0 {
			return nil, util.NewGraphError(util.ErrUnknownLabel,
				"Invalid node projection, one or more labels not found: '%v'",
				strings.Join(missing, "', '"))
		}

		v.include = make([]uint64, column.BitsetBytes(g.NodeCount())/8)
		v.count = 0

		for node := uint64(0); node < g.NodeCount(); node++ {
			for _, l := range labels {
				if g.HasLabel(node, l) {
					v.include[node/64] |= 1 << (node % 64)
					v.count++
					break
				}
			}
		}
	}

	if len(types) > 0 && stringutil.IndexOf(AllTypes, types) == -1 {
		var missing []string

		known := g.RelationshipTypes()

		for _, t := range types {
			if stringutil.IndexOf(t, known) == -1 {
				missing = append(missing, t)
			}
		}

		if len(missing) > 0 {
			return nil, util.NewGraphError(util.ErrUnknownRelationshipType,
				"Invalid relationship projection, one or more relationship types not found: '%v'",
				strings.Join(missing, "', '"))
		}

		v.types = append([]string(nil), types...)

	} else {
		v.types = g.RelationshipTypes()
	}

	return v, nil
}

/*
Graph returns the underlying graph.
*/
func (v *View) Graph() *Graph {
	return v.graph
}

/*
Types returns the selected relationship types.
*/
func (v *View) Types() []string {
	return v.types
}

/*
NodeCount returns the size of the node id space. Not all nodes of the id space
may be included.
*/
func (v *View) NodeCount() uint64 {
	return v.graph.NodeCount()
}

/*
IncludedCount returns the number of included nodes.
*/
func (v *View) IncludedCount() uint64 {
	return v.count
}

/*
Include checks if a node is part of this view.
*/
func (v *View) Include(node uint64) bool {
	return v.include == nil || v.include[node/64]&(1<<(node%64)) != 0
}

/*
HasRelationshipProperty checks if all selected relationship types carry a
given property.
*/
func (v *View) HasRelationshipProperty(key string) bool {
	for _, t := range v.types {
		if stringutil.IndexOf(key, v.graph.RelationshipPropertyKeys(t)) == -1 {
			return false
		}
	}
	return true
}

/*
Degree returns the number of relationships of a node which lead to included
nodes.
*/
func (v *View) Degree(node uint64) uint64 {
	if v.include == nil {
		return v.graph.Degree(node, v.types...)
	}

	var ret uint64

	v.ForEachNeighbor(node, func(target uint64) bool {
		ret++
		return true
	})

	return ret
}

/*
ForEachNeighbor calls a given function for every included neighbour of a node.
*/
func (v *View) ForEachNeighbor(node uint64, fn func(target uint64) bool) {
	v.graph.ForEachNeighbor(node, v.types, func(target uint64) bool {
		if !v.Include(target) {
			return true
		}
		return fn(target)
	})
}

/*
ForEachRelationship calls a given function for every relationship of a node
which leads to an included node. Weights are read from a given relationship
property.
*/
func (v *View) ForEachRelationship(node uint64, weightKey string, fallback float64,
	fn func(target uint64, weight float64) bool) {

	cont := true

	for _, t := range v.types {
		v.graph.ForEachRelationship(node, t, weightKey, fallback, func(target uint64, weight float64) bool {
			if v.Include(target) {
				cont = fn(target, weight)
			}
			return cont
		})

		if !cont {
			return
		}
	}
}
