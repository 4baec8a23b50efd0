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
Package column contains the property column store of a graph projection.

A column stores one value per node id of a projected graph. Columns are built
exactly once from a single scan of the source values and are immutable
afterwards. The builder picks the cheapest encoding for the observed values:

Long columns are stored in the narrowest signed integer width (8, 16, 32 or 64
bit) which holds every observed value and the default value.

Double columns are stored as float64 arrays.

Bool columns are stored as bit sets.

Long and double columns where only few nodes carry a value are stored sparse
as a sorted list of ids with their values.
*/
package column

import (
	"fmt"
	"math"
	"strings"
)

/*
ValueType is the type of the values of a column
*/
type ValueType int

/*
Known value types
*/
const (
	Unknown ValueType = iota
	Long
	Double
	Bool
)

/*
String returns a string representation of a value type.
*/
func (t ValueType) String() string {
	switch t {
	case Long:
		return "LONG"
	case Double:
		return "DOUBLE"
	case Bool:
		return "BOOLEAN"
	}
	return "UNKNOWN"
}

/*
ParseValueType parses a value type name. The empty string means that the type
should be inferred from the values.
*/
func ParseValueType(name string) (ValueType, error) {
	switch strings.ToUpper(name) {
	case "":
		return Unknown, nil
	case "LONG", "INTEGER", "INT":
		return Long, nil
	case "DOUBLE", "FLOAT":
		return Double, nil
	case "BOOLEAN", "BOOL":
		return Bool, nil
	}
	return Unknown, fmt.Errorf("Unknown value type: %v", name)
}

/*
Default values of a column if no value and no explicit default was given.
*/
var (
	DefaultLong   int64 = math.MinInt64
	DefaultDouble       = math.NaN()
	DefaultBool         = false
)

/*
Layout constants which are shared with the memory estimator.
*/
const (
	Overhead         = 64 // Fixed bytes of a column (struct and slice headers)
	SparseEntryBytes = 16 // Bytes per sparse entry (id and value)
	MaxValueBytes    = 8  // Widest value stored in a dense column
)

/*
BitsetBytes returns the number of bytes a bitset of a given size occupies.
*/
func BitsetBytes(size uint64) uint64 {
	return ((size + 63) / 64) * 8
}

/*
Column models a read-only typed property column.
*/
type Column interface {

	/*
		Type returns the value type of this column.
	*/
	Type() ValueType

	/*
		Size returns the number of elements of this column.
	*/
	Size() uint64

	/*
		Default returns the default value of this column.
	*/
	Default() interface{}

	/*
		Long returns the value of a given id as a long value.
	*/
	Long(id uint64) int64

	/*
		Double returns the value of a given id as a double value.
	*/
	Double(id uint64) float64

	/*
		Bool returns the value of a given id as a boolean value.
	*/
	Bool(id uint64) bool

	/*
		Value returns the value of a given id in its native type.
	*/
	Value(id uint64) interface{}

	/*
		Encoding returns the name of the encoding of this column.
	*/
	Encoding() string

	/*
		MemoryUsage returns the memory footprint of this column in bytes.
	*/
	MemoryUsage() uint64
}

// Dense long columns
// ==================

type integer interface {
	int8 | int16 | int32 | int64
}

/*
longColumn is a dense long column with a fixed value width. Columns whose
default does not fit the width mark the ids which carry a value in a bitset.
*/
type longColumn[T integer] struct {
	values  []T
	present []uint64 // Ids which carry a value (nil if every id is stored)
	def     int64
	width   uint64
}

func (c *longColumn[T]) Type() ValueType             { return Long }
func (c *longColumn[T]) Size() uint64                { return uint64(len(c.values)) }
func (c *longColumn[T]) Default() interface{}        { return c.def }
func (c *longColumn[T]) Double(id uint64) float64    { return float64(c.Long(id)) }
func (c *longColumn[T]) Bool(id uint64) bool         { return c.Long(id) != 0 }
func (c *longColumn[T]) Value(id uint64) interface{} { return c.Long(id) }

func (c *longColumn[T]) Long(id uint64) int64 {
	if c.present != nil && c.present[id/64]&(1<<(id%64)) == 0 {
		return c.def
	}
	return int64(c.values[id])
}

func (c *longColumn[T]) Encoding() string {
	if c.present != nil {
		return fmt.Sprintf("int%v+mask", c.width*8)
	}
	return fmt.Sprintf("int%v", c.width*8)
}

func (c *longColumn[T]) MemoryUsage() uint64 {
	return Overhead + uint64(len(c.values))*c.width + uint64(len(c.present))*8
}

// Dense double column
// ===================

/*
doubleColumn is a dense double column.
*/
type doubleColumn struct {
	values []float64
	def    float64
}

func (c *doubleColumn) Type() ValueType             { return Double }
func (c *doubleColumn) Size() uint64                { return uint64(len(c.values)) }
func (c *doubleColumn) Default() interface{}        { return c.def }
func (c *doubleColumn) Long(id uint64) int64        { return int64(c.values[id]) }
func (c *doubleColumn) Double(id uint64) float64    { return c.values[id] }
func (c *doubleColumn) Bool(id uint64) bool         { return c.values[id] != 0 }
func (c *doubleColumn) Value(id uint64) interface{} { return c.values[id] }
func (c *doubleColumn) Encoding() string            { return "double" }

func (c *doubleColumn) MemoryUsage() uint64 {
	return Overhead + uint64(len(c.values))*8
}

// Bool column
// ===========

/*
boolColumn is a bit-packed boolean column.
*/
type boolColumn struct {
	bits []uint64
	size uint64
	def  bool
}

func (c *boolColumn) Type() ValueType      { return Bool }
func (c *boolColumn) Size() uint64         { return c.size }
func (c *boolColumn) Default() interface{} { return c.def }
func (c *boolColumn) Encoding() string     { return "bitset" }

func (c *boolColumn) Bool(id uint64) bool {
	if id >= c.size {
		panic(fmt.Sprintf("Index out of range: %v (size %v)", id, c.size))
	}
	return c.bits[id/64]&(1<<(id%64)) != 0
}

func (c *boolColumn) Long(id uint64) int64 {
	if c.Bool(id) {
		return 1
	}
	return 0
}

func (c *boolColumn) Double(id uint64) float64 { return float64(c.Long(id)) }
func (c *boolColumn) Value(id uint64) interface{} {
	return c.Bool(id)
}

func (c *boolColumn) MemoryUsage() uint64 {
	return Overhead + uint64(len(c.bits))*8
}

// Sparse column
// =============

/*
sparseColumn stores only the ids which carry a value. Lookups are binary
searches over the sorted id list.
*/
type sparseColumn struct {
	typ     ValueType
	size    uint64
	ids     []uint64
	longs   []int64
	doubles []float64
	defL    int64
	defD    float64
}

func (c *sparseColumn) Type() ValueType { return c.typ }
func (c *sparseColumn) Size() uint64    { return c.size }

func (c *sparseColumn) Default() interface{} {
	if c.typ == Long {
		return c.defL
	}
	return c.defD
}

func (c *sparseColumn) Encoding() string {
	return fmt.Sprintf("sparse-%v", strings.ToLower(c.typ.String()))
}

func (c *sparseColumn) MemoryUsage() uint64 {
	return Overhead + uint64(len(c.ids))*SparseEntryBytes
}

/*
find returns the position of an id in the id list or -1.
*/
func (c *sparseColumn) find(id uint64) int {
	if id >= c.size {
		panic(fmt.Sprintf("Index out of range: %v (size %v)", id, c.size))
	}

	lo, hi := 0, len(c.ids)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if c.ids[mid] < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	if lo < len(c.ids) && c.ids[lo] == id {
		return lo
	}

	return -1
}

func (c *sparseColumn) Long(id uint64) int64 {
	pos := c.find(id)
	if c.typ == Long {
		if pos == -1 {
			return c.defL
		}
		return c.longs[pos]
	}
	if pos == -1 {
		return int64(c.defD)
	}
	return int64(c.doubles[pos])
}

func (c *sparseColumn) Double(id uint64) float64 {
	pos := c.find(id)
	if c.typ == Long {
		if pos == -1 {
			return float64(c.defL)
		}
		return float64(c.longs[pos])
	}
	if pos == -1 {
		return c.defD
	}
	return c.doubles[pos]
}

func (c *sparseColumn) Bool(id uint64) bool {
	return c.Double(id) != 0
}

func (c *sparseColumn) Value(id uint64) interface{} {
	if c.typ == Long {
		return c.Long(id)
	}
	return c.Double(id)
}
