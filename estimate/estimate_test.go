/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package estimate

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/krotik/eliasgds/graph"
	"github.com/krotik/eliasgds/graph/column"
	"github.com/krotik/eliasgds/graph/source"
	"github.com/krotik/eliasgds/graph/topology"
)

const testGraph = `
{
	"nodes" : [
		{ "key" : "n0", "labels" : [ "Person" ], "age" : 30, "active" : true },
		{ "key" : "n1", "labels" : [ "Person" ], "age" : 40 },
		{ "key" : "n2", "labels" : [ "Person", "Admin" ], "age" : 5000000000, "score" : 1.5 },
		{ "key" : "n3", "labels" : [ "City" ] },
		{ "key" : "n4", "labels" : [ "City" ] }
	],
	"edges" : [
		{ "start" : "n0", "end" : "n1", "type" : "KNOWS", "weight" : 1 },
		{ "start" : "n0", "end" : "n1", "type" : "KNOWS", "weight" : 3 },
		{ "start" : "n1", "end" : "n2", "type" : "KNOWS", "weight" : 2 },
		{ "start" : "n2", "end" : "n2", "type" : "KNOWS", "weight" : 2 },
		{ "start" : "n2", "end" : "n3", "type" : "LIVES_IN" },
		{ "start" : "n0", "end" : "n3", "type" : "LIVES_IN" }
	]
}`

func TestEstimateString(t *testing.T) {

	spec, err := graph.ParseProjection("*", "*", nil, nil)
	if err != nil {
		t.Error(err)
		return
	}

	e, err := Projection(spec, 5, 5)
	if err != nil {
		t.Error(err)
		return
	}

	if res := e.String(); res != `graph: 349 B
    nodes: 120 B
        id mapping: 120 B
        labels: 0 B
    node properties: 0 B
    relationships: 229 B
        __ALL__: 229 B
` {
		t.Error("Unexpected result:", res)
		return
	}

	if res := fmt.Sprint(e.ToMap()["bytesMin"], " ", e.ToMap()["memory"]); res != "349 349 B" {
		t.Error("Unexpected result:", res)
		return
	}

	r := ByteRange{1000, 2048}.Add(Fixed(24))

	if res := r.String(); res != "[1.0 KiB ... 2.0 KiB]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := r.Times(1024).String(); res != "[1.0 MiB ... 2.0 MiB]" {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestColumnAndPartition(t *testing.T) {

	if res := Column(column.Bool, 100); res != Fixed(column.Overhead+16) {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Column(column.Unknown, 100); res != (ByteRange{column.Overhead, column.Overhead + 800}) {
		t.Error("Unexpected result:", res)
		return
	}

	// Undirected partitions store every relationship twice

	natural := Partition(10, 10, topology.Natural, topology.None, 1, false)
	undirected := Partition(10, 10, topology.Undirected, topology.None, 1, false)

	if res := fmt.Sprint(natural.Min, " ", natural.Max, " ", undirected.Min, " ", undirected.Max); res != "304 394 304 484" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Partition(10, 10, topology.Natural, topology.None, 1, true); res != (ByteRange{394, 394}) {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestEstimateOverflow(t *testing.T) {

	spec, _ := graph.ParseProjection("*", "*", nil, nil)

	_, err := Projection(spec, math.MaxUint64, 1)
	if err == nil || err.Error() != "GraphError: Internal error (Memory estimation overflow for 18446744073709551615 nodes and 1 relationships)" {
		t.Error("Unexpected result:", err)
		return
	}

	_, err = Projection(spec, 1000, math.MaxUint64/2)
	if err == nil {
		t.Error("Overflow should be detected")
		return
	}
}

func TestEstimateBracketsBuild(t *testing.T) {
	ctx := context.Background()
	ms := source.NewMemoryStore("test")

	if _, err := source.ImportJSON(bytes.NewBufferString(testGraph), ms); err != nil {
		t.Error(err)
		return
	}

	testSpec := func(nodes, rels, nodeProps, relProps interface{}) {
		spec, err := graph.ParseProjection(nodes, rels, nodeProps, relProps)
		if err != nil {
			t.Fatal(err)
		}

		nodeCount, _ := ms.NodeCount(ctx, spec.Labels())
		relCount, _ := ms.RelationshipCount(ctx, spec.Types())

		e, err := Projection(spec, nodeCount, relCount)
		if err != nil {
			t.Fatal(err)
		}

		g, err := graph.Build(ctx, ms, spec, graph.DefaultBuildOptions())
		if err != nil {
			t.Fatal(err)
		}

		if !e.Range.Contains(g.MemoryUsage()) {
			t.Errorf("Estimate %v does not contain %v for %v:\n%v", e.Range, g.MemoryUsage(), spec, e)
		}
	}

	testSpec("*", "*", nil, nil)
	testSpec("*", "*", []interface{}{"age", "active", "score"}, []interface{}{"weight"})
	testSpec([]interface{}{"Person"}, "KNOWS", "age", nil)
	testSpec([]interface{}{"Person", "City"}, map[string]interface{}{
		"KNOWS": map[string]interface{}{
			"orientation": "UNDIRECTED",
			"aggregation": "SUM",
			"properties":  "weight",
		},
		"LIVES_IN": map[string]interface{}{
			"orientation": "REVERSE",
		},
		"ALL": "*",
	}, map[string]interface{}{
		"size": map[string]interface{}{
			"defaultValue": 7,
		},
	}, nil)
	testSpec("*", map[string]interface{}{
		"ALL": map[string]interface{}{
			"type":        "*",
			"aggregation": "COUNT",
		},
	}, nil, nil)
}

func TestCache(t *testing.T) {

	spec, _ := graph.ParseProjection("*", "*", nil, nil)
	c := NewCache(DefaultCacheSize)

	e1, err := c.Projection(spec, 10, 10)
	if err != nil {
		t.Error(err)
		return
	}

	e2, _ := c.Projection(spec, 10, 10)
	e3, _ := c.Projection(spec, 10, 11)

	if e1 != e2 || e1 == e3 {
		t.Error("Unexpected cache behaviour")
		return
	}

	if _, err := c.Projection(spec, math.MaxUint64, 1); err == nil {
		t.Error("Overflow should be detected")
		return
	}
}
