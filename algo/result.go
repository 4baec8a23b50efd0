/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package algo

import (
	"fmt"

	"github.com/krotik/eliasgds/catalog"
)

/*
Row is a single result row of a stream mode call.
*/
type Row map[string]interface{}

/*
RowIterator iterates lazily over result rows.
*/
type RowIterator interface {

	/*
		HasNext checks if there is another row.
	*/
	HasNext() bool

	/*
		Next returns the next row.
	*/
	Next() Row
}

/*
SliceRows is a row iterator over a fixed list of rows.
*/
type SliceRows struct {
	rows []Row
	pos  int
}

/*
NewSliceRows creates a new row iterator over a list of rows.
*/
func NewSliceRows(rows []Row) *SliceRows {
	return &SliceRows{rows, 0}
}

/*
HasNext checks if there is another row.
*/
func (s *SliceRows) HasNext() bool {
	return s.pos < len(s.rows)
}

/*
Next returns the next row.
*/
func (s *SliceRows) Next() Row {
	r := s.rows[s.pos]
	s.pos++
	return r
}

/*
Collect reads all remaining rows of an iterator.
*/
func Collect(it RowIterator) []Row {
	var ret []Row
	for it.HasNext() {
		ret = append(ret, it.Next())
	}
	return ret
}

/*
Summary is the single result row of a write, mutate or stats mode call.
*/
type Summary struct {
	NodePropertiesWritten uint64                 // Number of written or added node property values
	RelationshipsWritten  uint64                 // Number of written or added relationships
	CreateMillis          int64                  // Duration of the anonymous graph build
	ComputeMillis         int64                  // Duration of the computation
	WriteMillis           int64                  // Duration of the write or mutation
	PostProcessingMillis  int64                  // Duration of the statistics computation
	Stats                 map[string]interface{} // Algorithm specific statistics
	Configuration         map[string]interface{} // Effective configuration of the call
}

/*
ToMap returns a map representation of this summary. The statistics are part
of the top level map.
*/
func (s *Summary) ToMap() map[string]interface{} {
	ret := map[string]interface{}{
		"nodePropertiesWritten": s.NodePropertiesWritten,
		"relationshipsWritten":  s.RelationshipsWritten,
		"createMillis":          s.CreateMillis,
		"computeMillis":         s.ComputeMillis,
		"writeMillis":           s.WriteMillis,
		"postProcessingMillis":  s.PostProcessingMillis,
		"configuration":         s.Configuration,
	}

	for k, v := range s.Stats {
		ret[k] = v
	}

	return ret
}

/*
String returns a string representation of this summary.
*/
func (s *Summary) String() string {
	return fmt.Sprintf("Summary (written: %v properties, %v relationships; stats: %v)",
		s.NodePropertiesWritten, s.RelationshipsWritten, s.Stats)
}

/*
Result is the result of an algorithm call. Stream mode calls have rows, all
other calls have a summary.
*/
type Result struct {
	Rows    RowIterator // Result rows (stream mode)
	Summary *Summary    // Summary (write, mutate and stats mode)
}

/*
Distribution returns the distribution of a list of integer values as a map.
*/
func Distribution(values []uint64) map[string]interface{} {
	return catalog.NewDistribution(values).ToMap()
}

/*
DoubleDistribution returns the distribution of a list of floating point
values as a map.
*/
func DoubleDistribution(values []float64) map[string]interface{} {
	return catalog.NewDoubleDistribution(values).ToMap()
}
