/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package column

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/krotik/common/errorutil"
	"github.com/krotik/eliasgds/graph/util"
)

/*
DefaultSparseRatio is the default ratio between dense and sparse size from
which on a column is stored sparse.
*/
const DefaultSparseRatio = 4

/*
Builder collects the values of a column. Values are given once per id. The
builder keeps track of the value range so the final encoding can be chosen
without a second scan.
*/
type Builder struct {
	name        string      // Name of the column (used in errors)
	size        uint64      // Number of elements
	typ         ValueType   // Type of the column (Unknown until the first value)
	declared    bool        // Flag if the type was given explicitly
	def         interface{} // Explicit default value (nil if not given)
	sparseRatio uint64      // Sparse ratio
	longs       []int64     // Staged long values
	doubles     []float64   // Staged double values
	bools       []uint64    // Staged bool values
	present     []uint64    // Bitset of ids which carry a value
	count       uint64      // Number of ids which carry a value
	min, max    int64       // Range of staged long values
}

/*
NewBuilder creates a new column builder for a column of a given size. The
value type can be Unknown in which case it is inferred from the values. The
default value can be nil.
*/
func NewBuilder(name string, size uint64, typ ValueType, def interface{}) *Builder {
	return &Builder{
		name:        name,
		size:        size,
		typ:         typ,
		declared:    typ != Unknown,
		def:         def,
		sparseRatio: DefaultSparseRatio,
		present:     make([]uint64, BitsetBytes(size)/8),
		min:         math.MaxInt64,
		max:         math.MinInt64,
	}
}

/*
SetSparseRatio sets the ratio from which on a column is stored sparse. A ratio
of 0 disables sparse columns.
*/
func (b *Builder) SetSparseRatio(ratio uint64) {
	b.sparseRatio = ratio
}

/*
Set sets the value of a given id. Setting an id outside of the column size is
a fatal error.
*/
func (b *Builder) Set(id uint64, value interface{}) error {
	errorutil.AssertTrue(id < b.size,
		fmt.Sprintf("Column %v capacity exceeded: %v >= %v", b.name, id, b.size))

	if value == nil {
		return nil
	}

	l, d, bv, vt, err := classify(value)

	if err != nil {
		return util.NewGraphError(util.ErrInvalidConfig,
			"Property '%v' has an unsupported value: %v", b.name, value)
	}

	if b.typ == Unknown {
		b.typ = vt
	}

	switch b.typ {

	case Long:
		if vt == Double && b.declared {
			if d != math.Trunc(d) {
				return b.mixedTypeError(vt)
			}
			b.setLong(id, int64(d))

		} else if vt == Double {

			// An inferred long column becomes a double column with the first float value

			b.promote()
			b.setDouble(id, d)

		} else if vt == Long {
			b.setLong(id, l)

		} else {
			return b.mixedTypeError(vt)
		}

	case Double:
		if vt == Double {
			b.setDouble(id, d)
		} else if vt == Long {
			b.setDouble(id, float64(l))
		} else {
			return b.mixedTypeError(vt)
		}

	case Bool:
		if vt != Bool {
			return b.mixedTypeError(vt)
		}
		if b.bools == nil {
			b.bools = make([]uint64, BitsetBytes(b.size)/8)
		}
		if bv {
			b.bools[id/64] |= 1 << (id % 64)
		}
		b.mark(id)
	}

	return nil
}

/*
mixedTypeError returns an error for a value which does not fit the column.
*/
func (b *Builder) mixedTypeError(vt ValueType) error {
	return util.NewGraphError(util.ErrInvalidConfig,
		"Property '%v' has mixed value types: %v and %v", b.name, b.typ, vt)
}

/*
mark marks an id as carrying a value.
*/
func (b *Builder) mark(id uint64) {
	bit := uint64(1) << (id % 64)
	if b.present[id/64]&bit == 0 {
		b.present[id/64] |= bit
		b.count++
	}
}

/*
isSet checks if an id carries a value.
*/
func (b *Builder) isSet(id uint64) bool {
	return b.present[id/64]&(1<<(id%64)) != 0
}

func (b *Builder) setLong(id uint64, v int64) {
	if b.longs == nil {
		b.longs = make([]int64, b.size)
	}
	b.longs[id] = v
	if v < b.min {
		b.min = v
	}
	if v > b.max {
		b.max = v
	}
	b.mark(id)
}

func (b *Builder) setDouble(id uint64, v float64) {
	if b.doubles == nil {
		b.doubles = make([]float64, b.size)
	}
	b.doubles[id] = v
	b.mark(id)
}

/*
promote converts all staged long values to double values.
*/
func (b *Builder) promote() {
	b.doubles = make([]float64, b.size)
	for i, v := range b.longs {
		b.doubles[i] = float64(v)
	}
	b.longs = nil
	b.typ = Double
}

/*
Type returns the current type of the column.
*/
func (b *Builder) Type() ValueType {
	return b.typ
}

/*
Build creates the column. The builder should not be used afterwards.
*/
func (b *Builder) Build() (Column, error) {
	typ := b.typ

	if typ == Unknown {

		// No values - use the type of the default value

		typ = Double
		if b.def != nil {
			if _, _, _, vt, err := classify(b.def); err == nil {
				typ = vt
			}
		}
	}

	switch typ {
	case Long:
		def, err := b.longDefault()
		if err != nil {
			return nil, err
		}
		return b.buildLong(def), nil

	case Double:
		def, err := b.doubleDefault()
		if err != nil {
			return nil, err
		}
		return b.buildDouble(def), nil
	}

	def := DefaultBool
	if b.def != nil {
		_, _, bv, vt, err := classify(b.def)
		if err != nil || vt != Bool {
			return nil, util.NewGraphError(util.ErrInvalidConfig,
				"Default value of property '%v' must be a boolean: %v", b.name, b.def)
		}
		def = bv
	}

	col := &boolColumn{make([]uint64, BitsetBytes(b.size)/8), b.size, def}

	for i := range col.bits {
		col.bits[i] = b.present[i] & b.wordOf(b.bools, i)
		if def {
			col.bits[i] |= ^b.present[i]
		}
	}

	if rem := b.size % 64; rem != 0 && len(col.bits) > 0 {
		col.bits[len(col.bits)-1] &= (1 << rem) - 1
	}

	return col, nil
}

func (b *Builder) wordOf(words []uint64, i int) uint64 {
	if words == nil {
		return 0
	}
	return words[i]
}

func (b *Builder) longDefault() (int64, error) {
	if b.def == nil {
		return DefaultLong, nil
	}
	l, d, _, vt, err := classify(b.def)
	if err == nil && vt == Long {
		return l, nil
	} else if err == nil && vt == Double && d == math.Trunc(d) {
		return int64(d), nil
	}
	return 0, util.NewGraphError(util.ErrInvalidConfig,
		"Default value of property '%v' must be an integer: %v", b.name, b.def)
}

func (b *Builder) doubleDefault() (float64, error) {
	if b.def == nil {
		return DefaultDouble, nil
	}
	l, d, _, vt, err := classify(b.def)
	if err == nil && vt == Double {
		return d, nil
	} else if err == nil && vt == Long {
		return float64(l), nil
	}
	return 0, util.NewGraphError(util.ErrInvalidConfig,
		"Default value of property '%v' must be a number: %v", b.name, b.def)
}

/*
useSparse decides if a column with a given dense size in bytes should be
stored sparse.
*/
func (b *Builder) useSparse(dense uint64) bool {
	return b.sparseRatio > 0 && dense > b.sparseRatio*b.count*SparseEntryBytes
}

func (b *Builder) buildLong(def int64) Column {
	var present []uint64

	width := LongWidth(b.min, b.max)

	if b.count < b.size {

		// Missing values are either stored as the default or marked in a
		// bitset next to narrower values

		defWidth := LongWidth(min(b.min, def), max(b.max, def))

		if defWidth != width && b.size*width+BitsetBytes(b.size) < b.size*defWidth {
			present = b.present
		} else {
			width = defWidth
		}
	}

	dense := b.size * width
	if present != nil {
		dense += BitsetBytes(b.size)
	}

	if b.useSparse(dense) {
		col := &sparseColumn{typ: Long, size: b.size, defL: def,
			ids: make([]uint64, 0, b.count), longs: make([]int64, 0, b.count)}

		for i := uint64(0); i < b.size; i++ {
			if b.isSet(i) {
				col.ids = append(col.ids, i)
				col.longs = append(col.longs, b.longs[i])
			}
		}
		return col
	}

	get := func(i uint64) int64 {
		if b.isSet(i) {
			return b.longs[i]
		} else if present != nil {
			return 0
		}
		return def
	}

	switch width {
	case 1:
		return fillLong[int8](b.size, def, 1, present, get)
	case 2:
		return fillLong[int16](b.size, def, 2, present, get)
	case 4:
		return fillLong[int32](b.size, def, 4, present, get)
	}

	return fillLong[int64](b.size, def, 8, present, get)
}

func fillLong[T integer](size uint64, def int64, width uint64, present []uint64,
	get func(uint64) int64) Column {

	values := make([]T, size)
	for i := range values {
		values[i] = T(get(uint64(i)))
	}
	return &longColumn[T]{values, present, def, width}
}

func (b *Builder) buildDouble(def float64) Column {

	if b.useSparse(b.size * 8) {
		col := &sparseColumn{typ: Double, size: b.size, defD: def,
			ids: make([]uint64, 0, b.count), doubles: make([]float64, 0, b.count)}

		for i := uint64(0); i < b.size; i++ {
			if b.isSet(i) {
				col.ids = append(col.ids, i)
				col.doubles = append(col.doubles, b.doubleAt(i))
			}
		}
		return col
	}

	values := make([]float64, b.size)
	for i := range values {
		if b.isSet(uint64(i)) {
			values[i] = b.doubleAt(uint64(i))
		} else {
			values[i] = def
		}
	}

	return &doubleColumn{values, def}
}

/*
doubleAt returns a staged value as double. Columns which were declared as
double might have staged long values.
*/
func (b *Builder) doubleAt(id uint64) float64 {
	if b.doubles != nil {
		return b.doubles[id]
	}
	return float64(b.longs[id])
}

/*
LongWidth returns the narrowest byte width of a signed integer which can hold
all values between min and max.
*/
func LongWidth(min, max int64) uint64 {
	switch {
	case min >= math.MinInt8 && max <= math.MaxInt8:
		return 1
	case min >= math.MinInt16 && max <= math.MaxInt16:
		return 2
	case min >= math.MinInt32 && max <= math.MaxInt32:
		return 4
	}
	return 8
}

/*
FromLongs creates a long column from a given list of values.
*/
func FromLongs(name string, values []int64) Column {
	b := NewBuilder(name, uint64(len(values)), Long, nil)
	b.SetSparseRatio(0)
	for i, v := range values {
		b.setLong(uint64(i), v)
	}
	col, err := b.Build()
	errorutil.AssertOk(err)
	return col
}

/*
FromDoubles creates a double column from a given list of values.
*/
func FromDoubles(name string, values []float64) Column {
	b := NewBuilder(name, uint64(len(values)), Double, nil)
	b.SetSparseRatio(0)
	for i, v := range values {
		b.setDouble(uint64(i), v)
	}
	col, err := b.Build()
	errorutil.AssertOk(err)
	return col
}

/*
classify determines the type of a given source value.
*/
func classify(value interface{}) (int64, float64, bool, ValueType, error) {
	switch v := value.(type) {
	case int:
		return int64(v), 0, false, Long, nil
	case int8:
		return int64(v), 0, false, Long, nil
	case int16:
		return int64(v), 0, false, Long, nil
	case int32:
		return int64(v), 0, false, Long, nil
	case int64:
		return v, 0, false, Long, nil
	case uint8:
		return int64(v), 0, false, Long, nil
	case uint16:
		return int64(v), 0, false, Long, nil
	case uint32:
		return int64(v), 0, false, Long, nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, float64(v), false, Double, nil
		}
		return int64(v), 0, false, Long, nil
	case float32:
		return 0, float64(v), false, Double, nil
	case float64:
		return 0, v, false, Double, nil
	case bool:
		return 0, 0, v, Bool, nil
	case json.Number:
		if l, err := v.Int64(); err == nil {
			return l, 0, false, Long, nil
		}
		d, err := v.Float64()
		return 0, d, false, Double, err
	case string:
		if l, err := strconv.ParseInt(v, 10, 64); err == nil {
			return l, 0, false, Long, nil
		}
		if d, err := strconv.ParseFloat(v, 64); err == nil {
			return 0, d, false, Double, nil
		}
	}

	return 0, 0, false, Unknown, fmt.Errorf("Unsupported value: %v", value)
}

/*
ToFloat converts a given source value into a float value.
*/
func ToFloat(value interface{}) (float64, bool) {
	l, d, bv, vt, err := classify(value)
	if err != nil {
		return 0, false
	}
	switch vt {
	case Long:
		return float64(l), true
	case Bool:
		if bv {
			return 1, true
		}
		return 0, true
	}
	return d, true
}
