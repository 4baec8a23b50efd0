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
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/krotik/eliasgds/graph/column"
	"github.com/krotik/eliasgds/graph/topology"
	"github.com/krotik/eliasgds/graph/util"
)

/*
Graph is an in-memory projection of a source store. Topology and property
columns are immutable. New property columns and relationship types can be
appended while readers access the graph.
*/
type Graph struct {
	id        string              // Unique id of this graph
	spec      *ProjectionSpec     // Spec which was used to build this graph
	sourceIDs []uint64            // Source ids of all nodes
	nodeIDs   map[uint64]uint64   // Mapping from source ids to node ids
	labels    map[string][]uint64 // Label bitsets of projected labels
	nodeProps *column.Set         // Node property columns
	topology  *topology.Topology  // Relationship partitions
	version   atomic.Uint64       // Version counter of appends
}

/*
newGraph creates a new graph object. The node id mapping must be the inverse
of the given source ids.
*/
func newGraph(spec *ProjectionSpec, sourceIDs []uint64, nodeIDs map[uint64]uint64,
	labels map[string][]uint64, props map[string]column.Column,
	parts map[string]*topology.Partition) *Graph {

	g := &Graph{
		id:        uuid.New().String(),
		spec:      spec,
		sourceIDs: sourceIDs,
		nodeIDs:   nodeIDs,
		labels:    labels,
		nodeProps: column.NewSet(props),
		topology:  topology.New(uint64(len(sourceIDs)), parts),
	}
	g.version.Store(1)

	return g
}

/*
ID returns the unique id of this graph.
*/
func (g *Graph) ID() string {
	return g.id
}

/*
Spec returns the projection spec of this graph.
*/
func (g *Graph) Spec() *ProjectionSpec {
	return g.spec
}

/*
Version returns the version of this graph. Every append increases the version.
*/
func (g *Graph) Version() uint64 {
	return g.version.Load()
}

/*
NodeCount returns the number of nodes.
*/
func (g *Graph) NodeCount() uint64 {
	return uint64(len(g.sourceIDs))
}

/*
RelationshipCount returns the number of relationships over a given list of
relationship types. No types means all types.
*/
func (g *Graph) RelationshipCount(types ...string) uint64 {
	return g.topology.RelationshipCount(types...)
}

/*
RelationshipTypes returns the sorted names of all relationship types.
*/
func (g *Graph) RelationshipTypes() []string {
	return g.topology.Types()
}

/*
Partition returns the partition of a relationship type.
*/
func (g *Graph) Partition(relType string) (*topology.Partition, bool) {
	return g.topology.Partition(relType)
}

/*
Degree returns the degree of a node over a given list of relationship types.
*/
func (g *Graph) Degree(node uint64, types ...string) uint64 {
	return g.topology.Degree(node, types...)
}

/*
ForEachNeighbor calls a given function for every neighbour of a node.
*/
func (g *Graph) ForEachNeighbor(node uint64, types []string, fn func(target uint64) bool) {
	g.topology.ForEachNeighbor(node, types, fn)
}

/*
ForEachRelationship calls a given function for every relationship of a node
of a given type together with a weight. The weight is read from a given
relationship property. The fallback value is used if no weight property is
given or if a relationship has no value.
*/
func (g *Graph) ForEachRelationship(node uint64, relType string, weightKey string,
	fallback float64, fn func(target uint64, weight float64) bool) {

	p, ok := g.topology.Partition(relType)
	if !ok {
		return
	}

	idx := -1
	if weightKey != "" {
		idx = p.PropertyIndex(weightKey)
	}

	p.ForEachRelationship(node, func(target uint64, relIndex uint64) bool {
		w := fallback

		if idx != -1 {
			if v := p.PropertyValue(idx, relIndex); !math.IsNaN(v) {
				w = v
			}
		}

		return fn(target, w)
	})
}

/*
SourceID returns the source id of a node.
*/
func (g *Graph) SourceID(node uint64) uint64 {
	return g.sourceIDs[node]
}

/*
NodeID returns the node id of a source id.
*/
func (g *Graph) NodeID(sourceID uint64) (uint64, bool) {
	id, ok := g.nodeIDs[sourceID]
	return id, ok
}

/*
NodeLabels returns the sorted projected labels.
*/
func (g *Graph) NodeLabels() []string {
	ret := make([]string, 0, len(g.labels))
	for l := range g.labels {
		ret = append(ret, l)
	}
	sort.Strings(ret)
	return ret
}

/*
HasLabel checks if a node has a projected label.
*/
func (g *Graph) HasLabel(node uint64, label string) bool {
	bits, ok := g.labels[label]
	return ok && bits[node/64]&(1<<(node%64)) != 0
}

/*
NodeProperty returns a node property column.
*/
func (g *Graph) NodeProperty(name string) (column.Column, bool) {
	return g.nodeProps.Get(name)
}

/*
NodePropertyKeys returns the sorted names of all node properties.
*/
func (g *Graph) NodePropertyKeys() []string {
	return g.nodeProps.Keys()
}

/*
RelationshipPropertyKeys returns the property names of a relationship type.
*/
func (g *Graph) RelationshipPropertyKeys(relType string) []string {
	if p, ok := g.topology.Partition(relType); ok {
		return p.PropertyKeys()
	}
	return nil
}

/*
AddNodeProperty appends a new node property column. Existing columns are never
replaced.
*/
func (g *Graph) AddNodeProperty(name string, col column.Column) error {
	if col.Size() != g.NodeCount() {
		return util.NewGraphError(util.ErrInternal,
			"Column '%v' has %v values but graph has %v nodes", name, col.Size(), g.NodeCount())
	}

	if err := g.nodeProps.Add(name, col); err != nil {
		return err
	}

	g.version.Add(1)

	return nil
}

/*
AddRelationshipType appends a new relationship type partition. Only one of
several concurrent appends with the same name succeeds.
*/
func (g *Graph) AddRelationshipType(name string, p *topology.Partition) error {
	if p.NodeCount() != g.NodeCount() {
		return util.NewGraphError(util.ErrInternal,
			"Partition '%v' has %v nodes but graph has %v nodes", name, p.NodeCount(), g.NodeCount())
	}

	if err := g.topology.Add(name, p); err != nil {
		return err
	}

	g.version.Add(1)

	return nil
}

/*
MemoryUsage returns the memory footprint of this graph in bytes.
*/
func (g *Graph) MemoryUsage() uint64 {
	n := g.NodeCount()
	ret := n*NodeMappingBytes + uint64(len(g.labels))*column.BitsetBytes(n)

	return ret + g.nodeProps.MemoryUsage() + g.topology.MemoryUsage()
}

/*
String returns a string representation of this graph.
*/
func (g *Graph) String() string {
	return fmt.Sprintf("Graph %v (%v nodes, %v relationships, types: %v, properties: %v)",
		g.id, g.NodeCount(), g.RelationshipCount(), g.RelationshipTypes(), g.NodePropertyKeys())
}
