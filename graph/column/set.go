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
	"sort"
	"sync"
	"sync/atomic"

	"github.com/krotik/eliasgds/graph/util"
)

/*
Set is a named collection of columns. New columns can be added while readers
access the set - readers always see a complete version of the set. Existing
columns are never replaced.
*/
type Set struct {
	columns atomic.Pointer[map[string]Column] // Current version of the set
	lock    sync.Mutex                        // Lock for writers
}

/*
NewSet creates a new column set with a given initial content.
*/
func NewSet(initial map[string]Column) *Set {
	cols := make(map[string]Column, len(initial))
	for k, v := range initial {
		cols[k] = v
	}

	s := &Set{}
	s.columns.Store(&cols)

	return s
}

/*
Get returns a column by name.
*/
func (s *Set) Get(name string) (Column, bool) {
	col, ok := (*s.columns.Load())[name]
	return col, ok
}

/*
Keys returns the sorted names of all columns.
*/
func (s *Set) Keys() []string {
	cols := *s.columns.Load()

	ret := make([]string, 0, len(cols))
	for k := range cols {
		ret = append(ret, k)
	}
	sort.Strings(ret)

	return ret
}

/*
Add adds a new column to the set. Returns an error if a column of the same
name exists already.
*/
func (s *Set) Add(name string, col Column) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	old := *s.columns.Load()

	if _, ok := old[name]; ok {
		return util.NewGraphError(util.ErrPropertyAlreadyExists,
			"Node property '%v' already exists", name)
	}

	cols := make(map[string]Column, len(old)+1)
	for k, v := range old {
		cols[k] = v
	}
	cols[name] = col

	s.columns.Store(&cols)

	return nil
}

/*
MemoryUsage returns the memory footprint of all columns in bytes.
*/
func (s *Set) MemoryUsage() uint64 {
	var ret uint64

	for _, col := range *s.columns.Load() {
		ret += col.MemoryUsage()
	}

	return ret
}
