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
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/krotik/eliasgds/graph/util"
)

func buildTestPartition(t *testing.T, o Orientation, a Aggregation) (*Partition, error) {
	pb := NewPartitionBuilder("R", 4, o, a, []string{"w"})

	pb.Add(0, 1, []float64{1})
	pb.Add(0, 1, []float64{3})
	pb.Add(2, 0, []float64{5})
	pb.Add(3, 3, []float64{7})
	pb.Add(0, 2, []float64{2})

	if res := pb.Staged(); res != 5 {
		t.Error("Unexpected result:", res)
	}

	return pb.Build(context.Background())
}

func neighbours(p *Partition, node uint64) string {
	var ret []string

	idx := p.PropertyIndex("w")

	p.ForEachRelationship(node, func(target uint64, relIndex uint64) bool {
		ret = append(ret, fmt.Sprintf("%v:%v", target, p.PropertyValue(idx, relIndex)))
		return true
	})

	return fmt.Sprint(ret)
}

func TestNaturalPartition(t *testing.T) {

	p, err := buildTestPartition(t, Natural, Default)
	if err != nil {
		t.Error(err)
		return
	}

	if res := neighbours(p, 0); res != "[1:1 1:3 2:2]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := fmt.Sprint(p.Degree(0), p.Degree(1), p.Degree(2), p.Degree(3)); res != "3 0 1 1" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := p.RelationshipCount(); res != 5 {
		t.Error("Unexpected result:", res)
		return
	}

	if res := p.MemoryUsage(); res != PartitionOverhead+5*OffsetBytes+5+5*PropertyBytes {
		t.Error("Unexpected result:", res)
		return
	}

	if res := fmt.Sprint(p.Name(), p.Orientation(), p.Aggregation(), p.NodeCount()); res != "RNATURAL NONE 4" {
		t.Error("Unexpected result:", res)
		return
	}

	// Iteration can stop early and be repeated

	var count int
	p.ForEachNeighbor(0, func(target uint64) bool {
		count++
		return false
	})

	if count != 1 {
		t.Error("Unexpected result:", count)
		return
	}

	if res := neighbours(p, 0); res != "[1:1 1:3 2:2]" {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestAggregation(t *testing.T) {

	p, err := buildTestPartition(t, Natural, Sum)
	if err != nil {
		t.Error(err)
		return
	}

	if res := p.String(); res != `R (NATURAL, SUM)
  0 -> 1 w=4 2 w=2
  2 -> 0 w=5
  3 -> 3 w=7
` {
		t.Error("Unexpected result:", res)
		return
	}

	if res := p.RelationshipCount(); res != 4 {
		t.Error("Unexpected result:", res)
		return
	}

	p, _ = buildTestPartition(t, Natural, Min)

	if res := neighbours(p, 0); res != "[1:1 2:2]" {
		t.Error("Unexpected result:", res)
		return
	}

	p, _ = buildTestPartition(t, Natural, Max)

	if res := neighbours(p, 0); res != "[1:3 2:2]" {
		t.Error("Unexpected result:", res)
		return
	}

	p, _ = buildTestPartition(t, Natural, Count)

	if res := neighbours(p, 0); res != "[1:2 2:1]" {
		t.Error("Unexpected result:", res)
		return
	}

	_, err = buildTestPartition(t, Natural, Single)

	if err == nil || err.Error() != "GraphError: Conflicting relationship (Conflicting values for property 'w' of relationship 'R' between nodes 0 and 1: 1 and 3)" {
		t.Error("Unexpected result:", err)
		return
	}

	// Single without conflicting values just removes duplicates

	pb := NewPartitionBuilder("R", 3, Natural, Single, []string{"w"})
	pb.SetSourceIDs(func(id uint64) uint64 { return id + 100 })
	pb.Add(0, 2, []float64{1})
	pb.Add(0, 1, []float64{1})
	pb.Add(0, 2, []float64{1})

	if p, err = pb.Build(context.Background()); err != nil {
		t.Error(err)
		return
	}

	if res := neighbours(p, 0); res != "[1:1 2:1]" {
		t.Error("Unexpected result:", res)
		return
	}

	pb = NewPartitionBuilder("R", 3, Natural, Single, []string{"w"})
	pb.SetSourceIDs(func(id uint64) uint64 { return id + 100 })
	pb.Add(1, 2, []float64{1})
	pb.Add(1, 2, []float64{2})

	if _, err = pb.Build(context.Background()); err == nil || err.Error() != "GraphError: Conflicting relationship (Conflicting values for property 'w' of relationship 'R' between nodes 101 and 102: 1 and 2)" {
		t.Error("Unexpected result:", err)
		return
	}
}

func TestOrientation(t *testing.T) {

	p, err := buildTestPartition(t, Reverse, None)
	if err != nil {
		t.Error(err)
		return
	}

	if res := fmt.Sprintf("%v %v %v %v", neighbours(p, 0), neighbours(p, 1), neighbours(p, 2), neighbours(p, 3)); res != "[2:5] [0:1 0:3] [0:2] [3:7]" {
		t.Error("Unexpected result:", res)
		return
	}

	p, err = buildTestPartition(t, Undirected, Default)
	if err != nil {
		t.Error(err)
		return
	}

	if res := fmt.Sprintf("%v %v %v %v", neighbours(p, 0), neighbours(p, 1), neighbours(p, 2), neighbours(p, 3)); res != "[1:1 2:5] [0:1] [0:5] [3:7]" {
		t.Error("Unexpected result:", res)
		return
	}

	// Each undirected relationship counts once per endpoint, self loops once

	if res := fmt.Sprint(p.Degree(0), p.Degree(1), p.Degree(2), p.Degree(3), p.RelationshipCount()); res != "2 1 1 1 5" {
		t.Error("Unexpected result:", res)
		return
	}

	p, _ = buildTestPartition(t, Undirected, Sum)

	if res := fmt.Sprintf("%v %v", neighbours(p, 0), neighbours(p, 2)); res != "[1:4 2:7] [0:7]" {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestLargeDeltas(t *testing.T) {

	pb := NewPartitionBuilder("R", 100000, Natural, None, nil)
	pb.Add(0, 99999, nil)
	pb.Add(0, 5, nil)
	pb.Add(0, 70000, nil)
	pb.Add(99999, 0, nil)

	p, err := pb.Build(context.Background())
	if err != nil {
		t.Error(err)
		return
	}

	var res []uint64
	p.ForEachNeighbor(0, func(target uint64) bool {
		res = append(res, target)
		return true
	})

	if fmt.Sprint(res) != "[99999 5 70000]" {
		t.Error("Unexpected result:", res)
		return
	}

	res = nil
	p.ForEachNeighbor(99999, func(target uint64) bool {
		res = append(res, target)
		return true
	})

	if fmt.Sprint(res) != "[0]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := MaxEntryBytes(100000); res != 3 {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestBuildCancelled(t *testing.T) {

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pb := NewPartitionBuilder("R", 2, Natural, None, nil)
	pb.Add(0, 1, nil)

	_, err := pb.Build(ctx)

	if !errors.Is(err, util.ErrCancelled) {
		t.Error("Unexpected result:", err)
		return
	}
}

func TestTopology(t *testing.T) {

	p1, _ := buildTestPartition(t, Natural, None)
	p2, _ := buildTestPartition(t, Undirected, None)

	top := New(4, map[string]*Partition{"R": p1})

	if err := top.Add("R", p2); err == nil || err.Error() != "GraphError: Relationship type already exists (Relationship type 'R' already exists)" {
		t.Error("Unexpected result:", err)
		return
	}

	if res := top.Version(); res != 1 {
		t.Error("Unexpected result:", res)
		return
	}

	if err := top.Add("S", p2); err != nil {
		t.Error(err)
		return
	}

	if res := fmt.Sprint(top.Version(), top.Types(), top.NodeCount()); res != "2 [R S] 4" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := fmt.Sprint(top.Degree(0), top.Degree(0, "S"), top.Degree(0, "X")); res != "5 2 0" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := fmt.Sprint(top.RelationshipCount(), top.RelationshipCount("R")); res != "10 5" {
		t.Error("Unexpected result:", res)
		return
	}

	var res []uint64
	top.ForEachNeighbor(0, nil, func(target uint64) bool {
		res = append(res, target)
		return len(res) < 4
	})

	if fmt.Sprint(res) != "[1 1 2 1]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := top.MemoryUsage(); res != p1.MemoryUsage()+p2.MemoryUsage() {
		t.Error("Unexpected result:", res)
		return
	}

	if p, ok := top.Partition("S"); !ok || p != p2 {
		t.Error("Unexpected result:", p, ok)
		return
	}
}

func TestConcurrentAppend(t *testing.T) {
	p1, _ := buildTestPartition(t, Natural, None)

	top := New(4, nil)

	var wg sync.WaitGroup
	var lock sync.Mutex
	var success, failed int

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := top.Add("T", p1)

			lock.Lock()
			defer lock.Unlock()

			if err == nil {
				success++
			} else if errors.Is(err, util.ErrRelationshipTypeAlreadyExists) {
				failed++
			}
		}()
	}

	wg.Wait()

	if success != 1 || failed != 9 {
		t.Error("Unexpected result:", success, failed)
		return
	}
}

func TestToUndirected(t *testing.T) {

	p, _ := buildTestPartition(t, Natural, Sum)

	u, err := ToUndirected(context.Background(), p, "U", None)
	if err != nil {
		t.Error(err)
		return
	}

	if res := fmt.Sprintf("%v %v %v %v %v", u.Name(), u.Orientation(), neighbours(u, 0), neighbours(u, 1), neighbours(u, 2)); res != "U UNDIRECTED [1:4 2:2] [0:4] [0:2]" {
		t.Error("Unexpected result:", res)
		return
	}

	// Converting an undirected partition does not duplicate relationships

	u2, _ := ToUndirected(context.Background(), u, "U2", Sum)

	if res := fmt.Sprint(neighbours(u2, 0), u2.RelationshipCount() == u.RelationshipCount()); res != "[1:4 2:2]true" {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestParse(t *testing.T) {

	if o, err := ParseOrientation("undirected"); err != nil || o != Undirected {
		t.Error("Unexpected result:", o, err)
		return
	}

	if _, err := ParseOrientation("sideways"); err == nil || err.Error() != "Unknown orientation: sideways" {
		t.Error("Unexpected result:", err)
		return
	}

	if a, err := ParseAggregation("sum"); err != nil || a != Sum {
		t.Error("Unexpected result:", a, err)
		return
	}

	if _, err := ParseAggregation("avg"); err == nil || err.Error() != "Unknown aggregation: avg" {
		t.Error("Unexpected result:", err)
		return
	}
}
