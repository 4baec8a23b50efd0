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
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/krotik/common/errorutil"
	"github.com/krotik/eliasgds/graph/util"
)

/*
cancelCheckInterval is the number of nodes after which a build checks for
cancellation.
*/
const cancelCheckInterval = 1 << 14

/*
PartitionBuilder collects the relationships of a single relationship type and
builds a partition from them. A builder is not safe for concurrent use.
*/
type PartitionBuilder struct {
	name        string              // Name of the relationship type
	nodeCount   uint64              // Number of nodes
	orientation Orientation         // Orientation of the partition
	aggregation Aggregation         // Aggregation rule
	propKeys    []string            // Relationship property names
	sources     []uint64            // Staged source nodes
	targets     []uint64            // Staged target nodes
	props       [][]float64         // Staged property values
	sourceID    func(uint64) uint64 // Translation to source store ids for errors
}

/*
NewPartitionBuilder creates a new partition builder.
*/
func NewPartitionBuilder(name string, nodeCount uint64, orientation Orientation,
	aggregation Aggregation, propKeys []string) *PartitionBuilder {

	return &PartitionBuilder{
		name:        name,
		nodeCount:   nodeCount,
		orientation: orientation,
		aggregation: aggregation,
		propKeys:    propKeys,
		props:       make([][]float64, len(propKeys)),
		sourceID:    func(id uint64) uint64 { return id },
	}
}

/*
SetSourceIDs sets a function which translates node ids into source store ids.
The translated ids are used in error messages.
*/
func (pb *PartitionBuilder) SetSourceIDs(f func(uint64) uint64) {
	pb.sourceID = f
}

/*
Add stages a relationship. The given property values must be in the order of
the property keys of this builder.
*/
func (pb *PartitionBuilder) Add(source, target uint64, props []float64) {
	errorutil.AssertTrue(source < pb.nodeCount && target < pb.nodeCount,
		fmt.Sprintf("Relationship %v -> %v outside of id space (%v nodes)",
			source, target, pb.nodeCount))

	pb.sources = append(pb.sources, source)
	pb.targets = append(pb.targets, target)

	for i := range pb.props {
		pb.props[i] = append(pb.props[i], props[i])
	}
}

/*
Staged returns the number of staged relationships.
*/
func (pb *PartitionBuilder) Staged() uint64 {
	return uint64(len(pb.sources))
}

/*
Build builds the partition. The staged relationships are released.
*/
func (pb *PartitionBuilder) Build(ctx context.Context) (*Partition, error) {
	n := pb.nodeCount
	agg := pb.aggregation.Resolve()
	reduce := agg != None || pb.orientation == Undirected

	// Degree pass - count exact number of entries per node

	relOffsets := make([]uint64, n+1)

	for i, s := range pb.sources {
		t := pb.targets[i]

		switch pb.orientation {
		case Natural:
			relOffsets[s+1]++
		case Reverse:
			relOffsets[t+1]++
		case Undirected:
			relOffsets[s+1]++
			if s != t {
				relOffsets[t+1]++
			}
		}
	}

	for i := uint64(1); i <= n; i++ {
		relOffsets[i] += relOffsets[i-1]
	}

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	// Fill pass - write entries by index into exact-sized buffers

	total := relOffsets[n]
	adj := make([]uint64, total)
	props := make([][]float64, len(pb.propKeys))

	for i := range props {
		props[i] = make([]float64, total)
	}

	cursor := make([]uint64, n)
	copy(cursor, relOffsets[:n])

	put := func(from, to uint64, edge int) {
		pos := cursor[from]
		cursor[from]++
		adj[pos] = to
		for p := range props {
			props[p][pos] = pb.props[p][edge]
		}
	}

	for i, s := range pb.sources {
		t := pb.targets[i]

		switch pb.orientation {
		case Natural:
			put(s, t, i)
		case Reverse:
			put(t, s, i)
		case Undirected:
			put(s, t, i)
			if s != t {
				put(t, s, i)
			}
		}
	}

	pb.sources, pb.targets, pb.props = nil, nil, nil

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	// Reduce pass - sort neighbour lists and combine parallel relationships

	if reduce {
		var err error

		if relOffsets, err = pb.reduce(ctx, agg, relOffsets, adj, props); err != nil {
			return nil, err
		}

		total = relOffsets[n]
		adj = adj[:total:total]

		for i := range props {
			props[i] = append([]float64(nil), props[i][:total]...)
		}
	}

	// Encoding pass - calculate exact arena size then encode

	offsets := make([]uint64, n+1)

	for node := uint64(0); node < n; node++ {
		var prev uint64
		var size uint64

		for _, t := range adj[relOffsets[node]:relOffsets[node+1]] {
			if reduce {
				size += uint64(uvarintLen(t - prev))
			} else {
				size += uint64(uvarintLen(zigzag(int64(t) - int64(prev))))
			}
			prev = t
		}

		offsets[node+1] = offsets[node] + size
	}

	arena := make([]byte, 0, offsets[n])

	for node := uint64(0); node < n; node++ {
		var prev uint64

		for _, t := range adj[relOffsets[node]:relOffsets[node+1]] {
			if reduce {
				arena = binary.AppendUvarint(arena, t-prev)
			} else {
				arena = binary.AppendVarint(arena, int64(t)-int64(prev))
			}
			prev = t
		}

		if node%cancelCheckInterval == 0 {
			if err := checkCancelled(ctx); err != nil {
				return nil, err
			}
		}
	}

	errorutil.AssertTrue(uint64(len(arena)) == offsets[n], "Arena size mismatch")

	return &Partition{
		name:        pb.name,
		orientation: pb.orientation,
		aggregation: agg,
		sorted:      reduce,
		nodeCount:   n,
		offsets:     offsets,
		relOffsets:  relOffsets,
		targets:     arena,
		propKeys:    pb.propKeys,
		props:       props,
	}, nil
}

/*
reduce sorts the neighbour list of every node and combines parallel
relationships. Entries are compacted in place. Returns the new relationship
offsets.
*/
func (pb *PartitionBuilder) reduce(ctx context.Context, agg Aggregation,
	relOffsets []uint64, adj []uint64, props [][]float64) ([]uint64, error) {

	n := pb.nodeCount
	newOffsets := make([]uint64, n+1)
	write := uint64(0)

	for node := uint64(0); node < n; node++ {
		lo, hi := relOffsets[node], relOffsets[node+1]

		sort.Stable(&neighbourList{adj[lo:hi], props, lo})

		start := write

		for i := lo; i < hi; i++ {

			if write > start && adj[write-1] == adj[i] {

				// Parallel relationship - combine with the previous entry

				if err := pb.combine(agg, node, adj[i], props, write-1, i); err != nil {
					return nil, err
				}

				continue
			}

			adj[write] = adj[i]
			for p := range props {
				props[p][write] = props[p][i]
				if agg == Count {
					props[p][write] = 1
				}
			}
			write++
		}

		newOffsets[node+1] = write

		if node%cancelCheckInterval == 0 {
			if err := checkCancelled(ctx); err != nil {
				return nil, err
			}
		}
	}

	return newOffsets, nil
}

/*
combine combines the properties of relationship at position src into the
relationship at position dst.
*/
func (pb *PartitionBuilder) combine(agg Aggregation, node, target uint64,
	props [][]float64, dst, src uint64) error {

	for p := range props {
		a, b := props[p][dst], props[p][src]

		switch agg {
		case Single:
			if a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
				return util.NewGraphError(util.ErrConflictingRelationship,
					"Conflicting values for property '%v' of relationship '%v' between nodes %v and %v: %v and %v",
					pb.propKeys[p], pb.name, pb.sourceID(node), pb.sourceID(target), a, b)
			}
		case Sum:
			props[p][dst] = a + b
		case Min:
			props[p][dst] = math.Min(a, b)
		case Max:
			props[p][dst] = math.Max(a, b)
		case Count:
			props[p][dst] = a + 1
		}
	}

	return nil
}

/*
neighbourList sorts a slice of adjacency entries together with their
property values.
*/
type neighbourList struct {
	adj    []uint64
	props  [][]float64
	offset uint64
}

func (l *neighbourList) Len() int           { return len(l.adj) }
func (l *neighbourList) Less(i, j int) bool { return l.adj[i] < l.adj[j] }

func (l *neighbourList) Swap(i, j int) {
	l.adj[i], l.adj[j] = l.adj[j], l.adj[i]

	a, b := l.offset+uint64(i), l.offset+uint64(j)

	for _, p := range l.props {
		p[a], p[b] = p[b], p[a]
	}
}

/*
checkCancelled returns a cancellation error if the given context is done.
*/
func checkCancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return &util.GraphError{Type: util.ErrCancelled, Detail: ctx.Err().Error()}
	}
	return nil
}
