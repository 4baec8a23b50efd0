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
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/krotik/eliasgds/graph/column"
	"github.com/krotik/eliasgds/graph/source"
	"github.com/krotik/eliasgds/graph/topology"
	"github.com/krotik/eliasgds/graph/util"
)

const testGraph = `
{
	"nodes" : [
		{ "key" : "n0", "labels" : [ "Person" ], "age" : 30 },
		{ "key" : "n1", "labels" : [ "Person" ], "age" : 40 },
		{ "key" : "n2", "labels" : [ "Person", "Admin" ], "age" : 50 },
		{ "key" : "n3", "labels" : [ "City" ] },
		{ "key" : "n4", "labels" : [ "City" ] }
	],
	"edges" : [
		{ "start" : "n0", "end" : "n1", "type" : "KNOWS", "weight" : 1 },
		{ "start" : "n0", "end" : "n1", "type" : "KNOWS", "weight" : 3 },
		{ "start" : "n1", "end" : "n2", "type" : "KNOWS", "weight" : 2 },
		{ "start" : "n2", "end" : "n3", "type" : "LIVES_IN" },
		{ "start" : "n0", "end" : "n3", "type" : "LIVES_IN" }
	]
}`

func testStore(t *testing.T) *source.MemoryStore {
	ms := source.NewMemoryStore("test")

	if _, err := source.ImportJSON(bytes.NewBufferString(testGraph), ms); err != nil {
		t.Fatal(err)
	}

	return ms
}

func buildTestGraph(t *testing.T, ms source.Source, nodes, rels, nodeProps interface{}) (*Graph, error) {
	spec, err := ParseProjection(nodes, rels, nodeProps, nil)
	if err != nil {
		t.Fatal(err)
	}

	return Build(context.Background(), ms, spec, DefaultBuildOptions())
}

func relationships(g *Graph, node uint64, relType string, weightKey string) string {
	var ret []string

	g.ForEachRelationship(node, relType, weightKey, -1, func(target uint64, weight float64) bool {
		ret = append(ret, fmt.Sprintf("%v:%v", target, weight))
		return true
	})

	return fmt.Sprint(ret)
}

func TestBuildAll(t *testing.T) {
	ms := testStore(t)

	g, err := buildTestGraph(t, ms, "*", "*", nil)
	if err != nil {
		t.Error(err)
		return
	}

	if res := fmt.Sprint(g.NodeCount(), g.RelationshipCount(), g.RelationshipTypes(), g.NodeLabels()); res != "5 5 [__ALL__] []" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := fmt.Sprint(g.Degree(0), g.Degree(1), g.Degree(2), g.Degree(3)); res != "3 1 1 0" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := relationships(g, 0, AllTypesPartition, ""); res != "[1:-1 1:-1 3:-1]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := len(g.ID()); res != 36 {
		t.Error("Unexpected result:", res)
		return
	}

	if res := g.Version(); res != 1 {
		t.Error("Unexpected result:", res)
		return
	}

	// Two builds of the same spec are structurally equal

	g2, _ := buildTestGraph(t, ms, "*", "*", nil)

	p1, _ := g.Partition(AllTypesPartition)
	p2, _ := g2.Partition(AllTypesPartition)

	if p1.String() != p2.String() || g.MemoryUsage() != g2.MemoryUsage() || g.ID() == g2.ID() {
		t.Error("Unexpected result:", p1, p2)
		return
	}
}

func TestBuildProjection(t *testing.T) {
	ms := testStore(t)

	g, err := buildTestGraph(t, ms, map[string]interface{}{
		"Person": map[string]interface{}{
			"properties": []interface{}{"age"},
		},
		"City": "City",
	}, map[string]interface{}{
		"KNOWS": map[string]interface{}{
			"orientation": "UNDIRECTED",
			"aggregation": "SUM",
			"properties": map[string]interface{}{
				"w": map[string]interface{}{
					"property":     "weight",
					"defaultValue": 1.0,
				},
			},
		},
		"LIVES_IN": "LIVES_IN",
	}, map[string]interface{}{
		"size": map[string]interface{}{
			"defaultValue": 7,
		},
	})

	if err != nil {
		t.Error(err)
		return
	}

	if res := fmt.Sprint(g.NodeCount(), g.RelationshipCount(), g.RelationshipTypes(), g.NodeLabels()); res != "5 6 [KNOWS LIVES_IN] [City Person]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := fmt.Sprint(g.RelationshipCount("KNOWS"), g.RelationshipCount("LIVES_IN")); res != "4 2" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := relationships(g, 1, "KNOWS", "w"); res != "[0:4 2:2]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := relationships(g, 0, "LIVES_IN", "w"); res != "[3:-1]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := fmt.Sprint(g.RelationshipPropertyKeys("KNOWS"), g.RelationshipPropertyKeys("LIVES_IN"), g.RelationshipPropertyKeys("X")); res != "[w] [] []" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := fmt.Sprint(g.HasLabel(2, "Person"), g.HasLabel(2, "Admin"), g.HasLabel(3, "City"), g.HasLabel(3, "Person")); res != "true false true false" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := g.NodePropertyKeys(); fmt.Sprint(res) != "[age size]" {
		t.Error("Unexpected result:", res)
		return
	}

	age, _ := g.NodeProperty("age")

	if res := fmt.Sprintf("%v %v %v %v", age.Long(0), age.Long(2), age.Long(3) == column.DefaultLong, age.Encoding()); res != "30 50 true int8+mask" {
		t.Error("Unexpected result:", res)
		return
	}

	size, _ := g.NodeProperty("size")

	// A column without any source values holds only its default

	if res := fmt.Sprintf("%v %v %v", size.Long(0), size.Long(4), size.Encoding()); res != "7 7 sparse-long" {
		t.Error("Unexpected result:", res)
		return
	}

	var neighbours []uint64

	g.ForEachNeighbor(1, nil, func(target uint64) bool {
		neighbours = append(neighbours, target)
		return true
	})

	if res := fmt.Sprint(neighbours); res != "[0 2]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := g.MemoryUsage(); res != 5*NodeMappingBytes+2*8+age.MemoryUsage()+size.MemoryUsage()+g.topology.MemoryUsage() {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestBuildLabelFilter(t *testing.T) {
	ms := testStore(t)

	g, err := buildTestGraph(t, ms, "City", "*", nil)
	if err != nil {
		t.Error(err)
		return
	}

	if res := fmt.Sprint(g.NodeCount(), g.RelationshipCount(), g.SourceID(0), g.SourceID(1)); res != "2 0 3 4" {
		t.Error("Unexpected result:", res)
		return
	}

	if id, ok := g.NodeID(4); !ok || id != 1 {
		t.Error("Unexpected result:", id, ok)
		return
	}

	if _, ok := g.NodeID(0); ok {
		t.Error("Unexpected result")
		return
	}

	// The node id mapping is the inverse of the source ids

	if res := len(g.nodeIDs); uint64(res) != g.NodeCount() {
		t.Error("Unexpected result:", res)
		return
	}

	for node := uint64(0); node < g.NodeCount(); node++ {
		if id, ok := g.NodeID(g.SourceID(node)); !ok || id != node {
			t.Error("Unexpected result:", node, id, ok)
			return
		}
	}

	if res := g.String(); res != fmt.Sprintf("Graph %v (2 nodes, 0 relationships, types: [__ALL__], properties: [])", g.ID()) {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestBuildErrors(t *testing.T) {
	ms := testStore(t)

	_, err := buildTestGraph(t, ms, []interface{}{"Robot", "Person", "Alien"}, "*", nil)
	if err == nil || err.Error() != "GraphError: Unknown label (Invalid node projection, one or more labels not found: 'Alien', 'Robot')" {
		t.Error("Unexpected result:", err)
		return
	}

	_, err = buildTestGraph(t, ms, "*", "LIKES", nil)
	if err == nil || err.Error() != "GraphError: Unknown relationship type (Invalid relationship projection, one or more relationship types not found: 'LIKES')" {
		t.Error("Unexpected result:", err)
		return
	}

	_, err = buildTestGraph(t, ms, "*", "*", "height")
	if err == nil || err.Error() != "GraphError: Missing property (Node property 'height' not found)" {
		t.Error("Unexpected result:", err)
		return
	}

	if !errors.Is(err, util.ErrMissingProperty) || util.ClassOf(err) != util.ClassProperty {
		t.Error("Unexpected result:", err)
		return
	}

	spec, _ := ParseProjection("*", map[string]interface{}{
		"KNOWS": map[string]interface{}{
			"aggregation": "SINGLE",
			"properties":  "weight",
		},
	}, nil, nil)

	_, err = Build(context.Background(), ms, spec, DefaultBuildOptions())
	if err == nil || err.Error() != "GraphError: Conflicting relationship (Conflicting values for property 'weight' of relationship 'KNOWS' between nodes 0 and 1: 1 and 3)" {
		t.Error("Unexpected result:", err)
		return
	}

	spec, _ = ParseProjection("*", map[string]interface{}{
		"KNOWS": map[string]interface{}{
			"properties": "height",
		},
	}, nil, nil)

	_, err = Build(context.Background(), ms, spec, DefaultBuildOptions())
	if err == nil || err.Error() != "GraphError: Missing property (Relationship property 'height' not found)" {
		t.Error("Unexpected result:", err)
		return
	}

	// Mixed value types fail the column build

	ms.AddNode([]string{"Person"}, map[string]interface{}{"age": true})

	_, err = buildTestGraph(t, ms, "*", "*", "age")
	if err == nil || err.Error() != "GraphError: Invalid configuration (Property 'age' has mixed value types: LONG and BOOLEAN)" {
		t.Error("Unexpected result:", err)
		return
	}
}

func TestBuildCancelled(t *testing.T) {
	ms := testStore(t)

	spec, _ := ParseProjection("*", "*", nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, ms, spec, DefaultBuildOptions())

	if !errors.Is(err, util.ErrCancelled) || util.ClassOf(err) != util.ClassCancelled {
		t.Error("Unexpected result:", err)
		return
	}
}

func TestAppend(t *testing.T) {
	ms := testStore(t)

	g, err := buildTestGraph(t, ms, "*", "KNOWS", nil)
	if err != nil {
		t.Error(err)
		return
	}

	if err := g.AddNodeProperty("score", column.FromDoubles("score", []float64{1, 2, 3, 4, 5})); err != nil {
		t.Error(err)
		return
	}

	if err := g.AddNodeProperty("score", column.FromDoubles("score", []float64{1, 2, 3, 4, 5})); err == nil || err.Error() != "GraphError: Property already exists (Node property 'score' already exists)" {
		t.Error("Unexpected result:", err)
		return
	}

	if err := g.AddNodeProperty("short", column.FromDoubles("short", []float64{1})); err == nil || err.Error() != "GraphError: Internal error (Column 'short' has 1 values but graph has 5 nodes)" {
		t.Error("Unexpected result:", err)
		return
	}

	score, _ := g.NodeProperty("score")

	for i := uint64(0); i < 5; i++ {
		if score.Double(i) != float64(i+1) {
			t.Error("Unexpected result:", score.Double(i))
			return
		}
	}

	kp, _ := g.Partition("KNOWS")
	up, err := topology.ToUndirected(context.Background(), kp, "KNOWS_UNDIRECTED", topology.None)
	if err != nil {
		t.Error(err)
		return
	}

	// Concurrent appends under one name - exactly one succeeds

	var wg sync.WaitGroup
	var lock sync.Mutex
	var errs []error

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.AddRelationshipType("KNOWS_UNDIRECTED", up)
			lock.Lock()
			errs = append(errs, err)
			lock.Unlock()
		}()
	}

	wg.Wait()

	success := 0
	for _, err := range errs {
		if err == nil {
			success++
		} else if !errors.Is(err, util.ErrRelationshipTypeAlreadyExists) {
			t.Error("Unexpected result:", err)
			return
		}
	}

	if success != 1 {
		t.Error("Unexpected result:", success)
		return
	}

	if res := fmt.Sprint(g.Version(), g.RelationshipTypes(), g.RelationshipCount("KNOWS"), g.RelationshipCount("KNOWS_UNDIRECTED")); res != "3 [KNOWS KNOWS_UNDIRECTED] 3 4" {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestView(t *testing.T) {
	ms := testStore(t)

	g, err := buildTestGraph(t, ms, []string{"Person", "City"}, []string{"KNOWS", "LIVES_IN"}, nil)
	if err != nil {
		t.Error(err)
		return
	}

	v, err := NewView(g, []string{"Person"}, []string{"KNOWS", "LIVES_IN"})
	if err != nil {
		t.Error(err)
		return
	}

	if res := fmt.Sprint(v.NodeCount(), v.IncludedCount(), v.Include(0), v.Include(3), v.Types()); res != "5 3 true false [KNOWS LIVES_IN]" {
		t.Error("Unexpected result:", res)
		return
	}

	// Node 0 has two KNOWS relationships to node 1 and one LIVES_IN
	// relationship to a city which is not part of the view

	if res := fmt.Sprint(v.Degree(0), g.Degree(0)); res != "2 3" {
		t.Error("Unexpected result:", res)
		return
	}

	var res []string

	v.ForEachRelationship(0, "weight", 0, func(target uint64, weight float64) bool {
		res = append(res, fmt.Sprint(target))
		return true
	})

	if fmt.Sprint(res) != "[1 1]" {
		t.Error("Unexpected result:", res)
		return
	}

	v, err = NewView(g, nil, []string{"*"})
	if err != nil {
		t.Error(err)
		return
	}

	if res := fmt.Sprint(v.IncludedCount(), v.Degree(0), v.Types(), v.Graph() == g, v.HasRelationshipProperty("weight")); res != "5 3 [KNOWS LIVES_IN] true false" {
		t.Error("Unexpected result:", res)
		return
	}

	if _, err = NewView(g, []string{"Admin"}, nil); err == nil || err.Error() != "GraphError: Unknown label (Invalid node projection, one or more labels not found: 'Admin')" {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err = NewView(g, nil, []string{"LIKES"}); err == nil || err.Error() != "GraphError: Unknown relationship type (Invalid relationship projection, one or more relationship types not found: 'LIKES')" {
		t.Error("Unexpected result:", err)
		return
	}
}
