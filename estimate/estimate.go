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
Package estimate contains the memory estimator for graph projections.

The estimator computes a byte range for a projection spec and approximate
node and relationship counts without reading any data. It uses the same
layout constants as the column and topology packages. The maximum is a worst
case: every unknown is rounded up. The minimum only counts what is certain.
*/
package estimate

import (
	"fmt"
	"math"
	"math/bits"
	"strings"

	"github.com/krotik/common/bitutil"
	"github.com/krotik/eliasgds/graph"
	"github.com/krotik/eliasgds/graph/column"
	"github.com/krotik/eliasgds/graph/topology"
	"github.com/krotik/eliasgds/graph/util"
)

/*
ByteRange is a range of memory sizes in bytes.
*/
type ByteRange struct {
	Min uint64 // Minimum number of bytes
	Max uint64 // Maximum number of bytes
}

/*
Fixed returns a range with a single known value.
*/
func Fixed(v uint64) ByteRange {
	return ByteRange{v, v}
}

/*
Add adds another range to this range.
*/
func (r ByteRange) Add(o ByteRange) ByteRange {
	return ByteRange{add(r.Min, o.Min), add(r.Max, o.Max)}
}

/*
Times multiplies this range by a given factor.
*/
func (r ByteRange) Times(n uint64) ByteRange {
	return ByteRange{mul(r.Min, n), mul(r.Max, n)}
}

/*
Contains checks if a given value lies in this range.
*/
func (r ByteRange) Contains(v uint64) bool {
	return r.Min <= v && v <= r.Max
}

/*
String returns a human readable representation of this range.
*/
func (r ByteRange) String() string {
	if r.Min == r.Max {
		return sizeString(r.Min)
	}
	return fmt.Sprintf("[%v ... %v]", sizeString(r.Min), sizeString(r.Max))
}

func sizeString(v uint64) string {
	if v > math.MaxInt64 {
		v = math.MaxInt64
	}
	return bitutil.ByteSizeString(int64(v), false)
}

/*
Estimation is a tree of memory estimations.
*/
type Estimation struct {
	Name       string        // Name of the estimated component
	Range      ByteRange     // Memory range of the component and all its children
	Components []*Estimation // Child components
}

/*
New creates a new estimation from a list of child components.
*/
func New(name string, components ...*Estimation) *Estimation {
	e := &Estimation{Name: name, Components: components}

	for _, c := range components {
		e.Range = e.Range.Add(c.Range)
	}

	return e
}

/*
Leaf creates a new estimation without children.
*/
func Leaf(name string, r ByteRange) *Estimation {
	return &Estimation{Name: name, Range: r}
}

/*
String returns a tree representation of this estimation.
*/
func (e *Estimation) String() string {
	var buf strings.Builder
	e.write(&buf, "")
	return buf.String()
}

func (e *Estimation) write(buf *strings.Builder, indent string) {
	buf.WriteString(fmt.Sprintf("%v%v: %v\n", indent, e.Name, e.Range))

	for _, c := range e.Components {
		c.write(buf, indent+"    ")
	}
}

/*
ToMap returns a map representation of this estimation.
*/
func (e *Estimation) ToMap() map[string]interface{} {
	comps := make([]interface{}, 0, len(e.Components))

	for _, c := range e.Components {
		comps = append(comps, c.ToMap())
	}

	return map[string]interface{}{
		"name":       e.Name,
		"bytesMin":   e.Range.Min,
		"bytesMax":   e.Range.Max,
		"memory":     e.Range.String(),
		"components": comps,
	}
}

// Projection estimation
// =====================

/*
Projection estimates the memory footprint of a graph which is built from a
given spec over a source with the given number of nodes and relationships.
The relationship count should cover all projected relationship types.
*/
func Projection(spec *graph.ProjectionSpec, nodeCount, relCount uint64) (ret *Estimation, err error) {

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(overflowError); !ok {
				panic(r)
			}
			ret = nil
			err = util.NewGraphError(util.ErrInternal,
				"Memory estimation overflow for %v nodes and %v relationships", nodeCount, relCount)
		}
	}()

	mappings, err := spec.NodePropertyMappings()
	if err != nil {
		return nil, err
	}

	n := nodeCount

	nodes := New("nodes",
		Leaf("id mapping", Fixed(n).Times(graph.NodeMappingBytes)),
		Leaf("labels", Fixed(column.BitsetBytes(n)).Times(uint64(len(spec.Labels())))))

	var props []*Estimation
	for _, m := range mappings {
		props = append(props, Leaf(m.Key, Column(m.Type, n)))
	}

	var parts []*Estimation
	for i := range spec.Relationships {
		sel := &spec.Relationships[i]

		agg, err := spec.PartitionAggregation(sel)
		if err != nil {
			return nil, err
		}

		certain := spec.AllNodes() && sel.Type == graph.AllTypes &&
			agg == topology.None && sel.Orientation != topology.Undirected

		parts = append(parts, Leaf(sel.Name, Partition(n, relCount, sel.Orientation, agg,
			uint64(len(spec.RelationshipPropertyMappings(sel))), certain)))
	}

	return New("graph", nodes,
		New("node properties", props...),
		New("relationships", parts...)), nil
}

/*
Column estimates the memory footprint of a property column of a given type
and size. An unknown type is estimated with the widest value.
*/
func Column(typ column.ValueType, size uint64) ByteRange {
	if typ == column.Bool {
		return Fixed(add(column.Overhead, column.BitsetBytes(size)))
	}

	// Sparse columns are only chosen if they are smaller than a dense column.
	// A column without any value is an empty sparse column.

	return ByteRange{column.Overhead, add(column.Overhead, mul(size, column.MaxValueBytes))}
}

/*
Partition estimates the memory footprint of a relationship partition. The
relationship count is an upper bound of the relationships of the partition.
If the count is certain then every relationship is stored exactly once.
*/
func Partition(nodeCount, relCount uint64, orientation topology.Orientation,
	agg topology.Aggregation, propCount uint64, certain bool) ByteRange {

	fixed := add(topology.PartitionOverhead, mul(add(nodeCount, 1), topology.OffsetBytes))

	// Undirected partitions store each relationship at both ends

	entries := relCount
	if orientation == topology.Undirected {
		entries = mul(relCount, 2)
	}

	entryMax := add(topology.MaxEntryBytes(nodeCount), mul(propCount, topology.PropertyBytes))
	ret := ByteRange{fixed, add(fixed, mul(entries, entryMax))}

	if certain {
		entryMin := add(1, mul(propCount, topology.PropertyBytes))
		ret.Min = add(fixed, mul(relCount, entryMin))
	}

	return ret
}

// Checked arithmetic
// ==================

/*
overflowError is raised if an estimation exceeds the value range.
*/
type overflowError struct{}

func add(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		panic(overflowError{})
	}
	return sum
}

func mul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		panic(overflowError{})
	}
	return lo
}
