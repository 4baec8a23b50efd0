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
Package topology contains the compressed topology store of a graph projection.

The topology of a projected graph is a set of partitions - one partition per
projected relationship type. Each partition stores for every node the list of
its neighbours in a compressed adjacency arena:

offsets    - byte offset of the neighbour list of each node in the arena
relOffsets - index of the first relationship of each node (degree is the
             difference of two consecutive entries)
targets    - the arena: per node a list of varint encoded target deltas
properties - one float64 array per relationship property in relationship order

Partitions are built in two passes: a degree pass which counts the exact
number of relationships per node and a fill pass which writes relationships
by index into exact-sized buffers. Buffers are never resized.
*/
package topology

import (
	"encoding/binary"
	"fmt"
	"strings"
)

/*
Orientation of a projected relationship type
*/
type Orientation int

/*
Known orientations
*/
const (
	Natural Orientation = iota
	Reverse
	Undirected
)

/*
String returns a string representation of an orientation.
*/
func (o Orientation) String() string {
	switch o {
	case Reverse:
		return "REVERSE"
	case Undirected:
		return "UNDIRECTED"
	}
	return "NATURAL"
}

/*
ParseOrientation parses an orientation name.
*/
func ParseOrientation(name string) (Orientation, error) {
	switch strings.ToUpper(name) {
	case "", "NATURAL":
		return Natural, nil
	case "REVERSE":
		return Reverse, nil
	case "UNDIRECTED":
		return Undirected, nil
	}
	return Natural, fmt.Errorf("Unknown orientation: %v", name)
}

/*
Aggregation is the rule how parallel relationships are combined
*/
type Aggregation int

/*
Known aggregation rules
*/
const (
	Default Aggregation = iota
	None
	Single
	Sum
	Min
	Max
	Count
)

var aggregationNames = []string{"DEFAULT", "NONE", "SINGLE", "SUM", "MIN", "MAX", "COUNT"}

/*
String returns a string representation of an aggregation rule.
*/
func (a Aggregation) String() string {
	return aggregationNames[a]
}

/*
Resolve resolves the default aggregation.
*/
func (a Aggregation) Resolve() Aggregation {
	if a == Default {
		return None
	}
	return a
}

/*
ParseAggregation parses an aggregation name.
*/
func ParseAggregation(name string) (Aggregation, error) {
	if name == "" {
		return Default, nil
	}
	for i, n := range aggregationNames {
		if n == strings.ToUpper(name) {
			return Aggregation(i), nil
		}
	}
	return Default, fmt.Errorf("Unknown aggregation: %v", name)
}

/*
Layout constants which are shared with the memory estimator.
*/
const (
	PartitionOverhead = 128 // Fixed bytes of a partition
	OffsetBytes       = 16  // Bytes per node for byte and relationship offsets
	PropertyBytes     = 8   // Bytes per relationship property value
)

/*
MaxEntryBytes returns the maximum number of bytes a single encoded adjacency
entry can occupy in a graph with a given number of nodes.
*/
func MaxEntryBytes(nodeCount uint64) uint64 {
	if nodeCount == 0 {
		return 1
	}
	return uint64(uvarintLen(2 * nodeCount))
}

/*
Partition is the immutable adjacency of a single relationship type.
*/
type Partition struct {
	name        string      // Name of the projected relationship type
	orientation Orientation // Orientation of the stored relationships
	aggregation Aggregation // Aggregation which was applied
	sorted      bool        // Flag if neighbour lists are sorted
	nodeCount   uint64      // Number of nodes
	offsets     []uint64    // Byte offsets into the targets arena
	relOffsets  []uint64    // Relationship index offsets
	targets     []byte      // Encoded target deltas
	propKeys    []string    // Names of relationship properties
	props       [][]float64 // Relationship property values
}

/*
Name returns the name of the relationship type of this partition.
*/
func (p *Partition) Name() string {
	return p.name
}

/*
Orientation returns the orientation of this partition.
*/
func (p *Partition) Orientation() Orientation {
	return p.orientation
}

/*
Aggregation returns the aggregation which was used to build this partition.
*/
func (p *Partition) Aggregation() Aggregation {
	return p.aggregation
}

/*
NodeCount returns the number of nodes of this partition.
*/
func (p *Partition) NodeCount() uint64 {
	return p.nodeCount
}

/*
RelationshipCount returns the number of stored adjacency entries.
*/
func (p *Partition) RelationshipCount() uint64 {
	return p.relOffsets[p.nodeCount]
}

/*
Degree returns the number of relationships of a given node.
*/
func (p *Partition) Degree(node uint64) uint64 {
	return p.relOffsets[node+1] - p.relOffsets[node]
}

/*
PropertyKeys returns the names of the relationship properties.
*/
func (p *Partition) PropertyKeys() []string {
	return append([]string(nil), p.propKeys...)
}

/*
PropertyIndex returns the index of a relationship property or -1.
*/
func (p *Partition) PropertyIndex(key string) int {
	for i, k := range p.propKeys {
		if k == key {
			return i
		}
	}
	return -1
}

/*
PropertyValue returns the value of a relationship property.
*/
func (p *Partition) PropertyValue(propIndex int, relIndex uint64) float64 {
	return p.props[propIndex][relIndex]
}

/*
ForEachRelationship calls a given function for each relationship of a node.
The function gets the target node and the relationship index which can be
used to lookup relationship properties. Iteration stops if the function
returns false.
*/
func (p *Partition) ForEachRelationship(node uint64, fn func(target uint64, relIndex uint64) bool) {
	buf := p.targets[p.offsets[node]:p.offsets[node+1]]
	relIndex := p.relOffsets[node]

	var prev uint64

	for len(buf) > 0 {
		var n int
		var target uint64

		if p.sorted {
			var delta uint64
			delta, n = binary.Uvarint(buf)
			target = prev + delta
		} else {
			var delta int64
			delta, n = binary.Varint(buf)
			target = uint64(int64(prev) + delta)
		}

		buf = buf[n:]
		prev = target

		if !fn(target, relIndex) {
			return
		}

		relIndex++
	}
}

/*
ForEachNeighbor calls a given function for each neighbour of a node.
Iteration stops if the function returns false.
*/
func (p *Partition) ForEachNeighbor(node uint64, fn func(target uint64) bool) {
	p.ForEachRelationship(node, func(target uint64, _ uint64) bool {
		return fn(target)
	})
}

/*
MemoryUsage returns the memory footprint of this partition in bytes.
*/
func (p *Partition) MemoryUsage() uint64 {
	ret := uint64(PartitionOverhead) + (p.nodeCount+1)*OffsetBytes + uint64(len(p.targets))

	for _, prop := range p.props {
		ret += uint64(len(prop)) * PropertyBytes
	}

	return ret
}

/*
String returns a string representation of this partition.
*/
func (p *Partition) String() string {
	var buf strings.Builder

	buf.WriteString(fmt.Sprintf("%v (%v, %v)\n", p.name, p.orientation, p.aggregation))

	for n := uint64(0); n < p.nodeCount; n++ {
		if p.Degree(n) == 0 {
			continue
		}

		buf.WriteString(fmt.Sprintf("  %v ->", n))

		p.ForEachRelationship(n, func(target uint64, relIndex uint64) bool {
			buf.WriteString(fmt.Sprintf(" %v", target))
			for i, k := range p.propKeys {
				buf.WriteString(fmt.Sprintf(" %v=%v", k, p.props[i][relIndex]))
			}
			return true
		})

		buf.WriteString("\n")
	}

	return buf.String()
}

/*
uvarintLen returns the encoded length of an unsigned varint.
*/
func uvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

/*
zigzag returns the zigzag encoding of a signed value (as used by binary.PutVarint).
*/
func zigzag(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}
