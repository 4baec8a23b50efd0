/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package topology

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/krotik/eliasgds/graph/util"
)

/*
partitionSet is an immutable version of the partitions of a topology.
*/
type partitionSet struct {
	version uint64
	names   []string
	parts   map[string]*Partition
}

/*
Topology is the versioned set of relationship partitions of a graph. Readers
always see a complete version. Appending a partition creates a new version.
*/
type Topology struct {
	nodeCount uint64                      // Number of nodes
	current   atomic.Pointer[partitionSet] // Current version
	lock      sync.Mutex                   // Lock for appending partitions
}

/*
New creates a new topology from a given set of partitions.
*/
func New(nodeCount uint64, parts map[string]*Partition) *Topology {
	ps := &partitionSet{1, make([]string, 0, len(parts)), make(map[string]*Partition, len(parts))}

	for name, p := range parts {
		ps.names = append(ps.names, name)
		ps.parts[name] = p
	}
	sort.Strings(ps.names)

	t := &Topology{nodeCount: nodeCount}
	t.current.Store(ps)

	return t
}

/*
NodeCount returns the number of nodes of this topology.
*/
func (t *Topology) NodeCount() uint64 {
	return t.nodeCount
}

/*
Version returns the current version of this topology.
*/
func (t *Topology) Version() uint64 {
	return t.current.Load().version
}

/*
Types returns the sorted names of all relationship types.
*/
func (t *Topology) Types() []string {
	return append([]string(nil), t.current.Load().names...)
}

/*
Partition returns the partition of a given relationship type.
*/
func (t *Topology) Partition(name string) (*Partition, bool) {
	p, ok := t.current.Load().parts[name]
	return p, ok
}

/*
Add appends a new partition. Only one of several concurrent appends with the
same name can succeed.
*/
func (t *Topology) Add(name string, p *Partition) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	old := t.current.Load()

	if _, ok := old.parts[name]; ok {
		return util.NewGraphError(util.ErrRelationshipTypeAlreadyExists,
			"Relationship type '%v' already exists", name)
	}

	ps := &partitionSet{old.version + 1, make([]string, 0, len(old.names)+1),
		make(map[string]*Partition, len(old.parts)+1)}

	for k, v := range old.parts {
		ps.parts[k] = v
	}
	ps.parts[name] = p
	ps.names = append(append(ps.names, old.names...), name)
	sort.Strings(ps.names)

	t.current.Store(ps)

	return nil
}

/*
selected returns the partitions for a given list of types. An empty list
selects all partitions.
*/
func (t *Topology) selected(types []string) []*Partition {
	ps := t.current.Load()

	if len(types) == 0 {
		ret := make([]*Partition, 0, len(ps.names))
		for _, n := range ps.names {
			ret = append(ret, ps.parts[n])
		}
		return ret
	}

	ret := make([]*Partition, 0, len(types))
	for _, n := range types {
		if p, ok := ps.parts[n]; ok {
			ret = append(ret, p)
		}
	}

	return ret
}

/*
Degree returns the degree of a node over a given list of relationship types.
An empty list means all types.
*/
func (t *Topology) Degree(node uint64, types ...string) uint64 {
	var ret uint64

	for _, p := range t.selected(types) {
		ret += p.Degree(node)
	}

	return ret
}

/*
ForEachNeighbor calls a given function for every neighbour of a node over a
given list of relationship types. Iteration stops if the function returns false.
*/
func (t *Topology) ForEachNeighbor(node uint64, types []string, fn func(target uint64) bool) {
	cont := true

	for _, p := range t.selected(types) {
		p.ForEachNeighbor(node, func(target uint64) bool {
			cont = fn(target)
			return cont
		})

		if !cont {
			return
		}
	}
}

/*
RelationshipCount returns the number of adjacency entries over a given list of
relationship types.
*/
func (t *Topology) RelationshipCount(types ...string) uint64 {
	var ret uint64

	for _, p := range t.selected(types) {
		ret += p.RelationshipCount()
	}

	return ret
}

/*
MemoryUsage returns the memory footprint of all partitions in bytes.
*/
func (t *Topology) MemoryUsage() uint64 {
	var ret uint64

	for _, p := range t.selected(nil) {
		ret += p.MemoryUsage()
	}

	return ret
}

/*
ToUndirected builds an undirected copy of a given partition under a new name.
Relationship properties are kept. Parallel relationships are combined with a
given aggregation.
*/
func ToUndirected(ctx context.Context, p *Partition, name string, agg Aggregation) (*Partition, error) {
	pb := NewPartitionBuilder(name, p.nodeCount, Undirected, agg, p.PropertyKeys())
	vals := make([]float64, len(p.propKeys))

	for node := uint64(0); node < p.nodeCount; node++ {
		p.ForEachRelationship(node, func(target uint64, relIndex uint64) bool {
			for i := range vals {
				vals[i] = p.props[i][relIndex]
			}

			// Reverse partitions store relationships at their target

			if p.orientation == Reverse {
				pb.Add(target, node, vals)
			} else if p.orientation == Natural || node <= target {
				pb.Add(node, target, vals)
			}

			return true
		})
	}

	return pb.Build(ctx)
}
