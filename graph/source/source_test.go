/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/krotik/eliasgds/graph/util"
)

const testGraph = `
{
	"nodes" : [
		{ "key" : "a", "labels" : [ "Person", "Admin" ], "age" : 42 },
		{ "key" : "b", "kind" : "Person", "age" : 30.5 },
		{ "key" : "c", "labels" : [ "City" ] }
	],
	"edges" : [
		{ "start" : "a", "end" : "b", "type" : "KNOWS", "weight" : 1 },
		{ "start" : "b", "end" : "c", "type" : "LIVES_IN" }
	]
}`

func TestImportAndRead(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore("test")

	keys, err := ImportJSON(bytes.NewBufferString(testGraph), ms)
	if err != nil {
		t.Error(err)
		return
	}

	if res := fmt.Sprint(keys["a"], keys["b"], keys["c"]); res != "0 1 2" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := ms.String(); res != "MemoryStore test (3 nodes, 2 relationships)" {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := ms.Labels(ctx); fmt.Sprint(res) != "[Admin City Person]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := ms.RelationshipTypes(ctx); fmt.Sprint(res) != "[KNOWS LIVES_IN]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := ms.NodePropertyKeys(ctx); fmt.Sprint(res) != "[age]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := ms.RelationshipPropertyKeys(ctx); fmt.Sprint(res) != "[weight]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := ms.NodeLabels(0); fmt.Sprint(res) != "[Person Admin]" {
		t.Error("Unexpected result:", res)
		return
	}

	var res []string

	ms.IterateNodes(ctx, []string{"Person", "Unknown"}, func(id uint64, labels []string) error {
		res = append(res, fmt.Sprint(id, labels))
		return nil
	})

	if fmt.Sprint(res) != "[0 [Person Admin] 1 [Person]]" {
		t.Error("Unexpected result:", res)
		return
	}

	res = nil

	ms.IterateNodes(ctx, nil, func(id uint64, labels []string) error {
		res = append(res, fmt.Sprint(id))
		return nil
	})

	if fmt.Sprint(res) != "[0 1 2]" {
		t.Error("Unexpected result:", res)
		return
	}

	res = nil

	ms.IterateRelationships(ctx, []string{"KNOWS"}, func(rel *Relationship) error {
		res = append(res, fmt.Sprintf("%v %v %v %v", rel.Start, rel.End, rel.Type, rel.Properties))
		return nil
	})

	if fmt.Sprint(res) != "[0 1 KNOWS map[weight:1]]" {
		t.Error("Unexpected result:", res)
		return
	}

	if v, ok, err := ms.ReadNodeProperty(ctx, 1, "age"); !ok || err != nil || fmt.Sprint(v) != "30.5" {
		t.Error("Unexpected result:", v, ok, err)
		return
	}

	if v, ok, err := ms.ReadNodeProperty(ctx, 2, "age"); ok || err != nil || v != nil {
		t.Error("Unexpected result:", v, ok, err)
		return
	}

	if _, _, err := ms.ReadNodeProperty(ctx, 5, "age"); err == nil || err.Error() != "GraphError: Could not access source store (Node 5 does not exist)" {
		t.Error("Unexpected result:", err)
		return
	}

	if res, _ := ms.NodeCount(ctx, []string{"Person"}); res != 2 {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := ms.NodeCount(ctx, nil); res != 3 {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := ms.RelationshipCount(ctx, []string{"LIVES_IN"}); res != 1 {
		t.Error("Unexpected result:", res)
		return
	}

	if res := ms.Relationships(""); len(res) != 2 {
		t.Error("Unexpected result:", res)
		return
	}

	// Callback errors stop the iteration

	testErr := errors.New("stop")
	count := 0

	err = ms.IterateNodes(ctx, nil, func(id uint64, labels []string) error {
		count++
		return testErr
	})

	if err != testErr || count != 1 {
		t.Error("Unexpected result:", err, count)
		return
	}
}

func TestWrite(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore("test")

	ms.AddNode([]string{"A"}, map[string]interface{}{"x": 1})
	ms.AddNode(nil, nil)

	if err := ms.WriteNodeProperty(ctx, 1, "component", int64(5)); err != nil {
		t.Error(err)
		return
	}

	if v, ok := ms.NodeProperty(1, "component"); !ok || v != int64(5) {
		t.Error("Unexpected result:", v, ok)
		return
	}

	if res, _ := ms.NodePropertyKeys(ctx); fmt.Sprint(res) != "[component x]" {
		t.Error("Unexpected result:", res)
		return
	}

	if err := ms.WriteNodeProperty(ctx, 2, "component", 1); err == nil || err.Error() != "GraphError: Could not access source store (Node 2 does not exist)" {
		t.Error("Unexpected result:", err)
		return
	}

	if err := ms.WriteRelationship(ctx, 0, 1, "R", map[string]interface{}{"w": 2.5}); err != nil {
		t.Error(err)
		return
	}

	if err := ms.WriteRelationship(ctx, 0, 7, "R", nil); err == nil || err.Error() != "GraphError: Could not access source store (Cannot create relationship 0 -> 7: node does not exist)" {
		t.Error("Unexpected result:", err)
		return
	}

	var buf bytes.Buffer

	ms2 := NewMemoryStore("test2")
	ms2.AddNode([]string{"A"}, map[string]interface{}{"x": 1})
	ms2.AddNode(nil, nil)
	ms2.AddRelationship(0, 1, "R", map[string]interface{}{"w": 2.5})

	if err := ExportJSON(&buf, ms2); err != nil {
		t.Error(err)
		return
	}

	if res := buf.String(); res != `{
  "nodes" : [
    { "key": "0", "labels": ["A"], "x": 1 },
    { "key": "1", "labels": [] }
  ],
  "edges" : [
    { "end": "1", "start": "0", "type": "R", "w": 2.5 }
  ]
}` {
		t.Error("Unexpected result:", res)
		return
	}

	// Exported documents can be imported again

	ms3 := NewMemoryStore("test3")

	if _, err := ImportJSON(&buf, ms3); err != nil {
		t.Error(err)
		return
	}

	if res := ms3.String(); res != "MemoryStore test3 (2 nodes, 1 relationships)" {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestImportErrors(t *testing.T) {
	ms := NewMemoryStore("test")

	_, err := ImportJSON(bytes.NewBufferString(`{ "nodes" : [ { "key" : "1",`), ms)

	if err == nil || err.Error() != "Could not decode file content as object with list of nodes and edges: unexpected EOF" {
		t.Error("Unexpected result:", err)
		return
	}

	_, err = ImportJSON(bytes.NewBufferString(`{ "nodes" : [ { "name" : "1" } ] }`), ms)

	if err == nil || err.Error() != "Node without key: map[name:1]" {
		t.Error("Unexpected result:", err)
		return
	}

	_, err = ImportJSON(bytes.NewBufferString(`{ "nodes" : [ { "key" : "1" }, { "key" : "1" } ] }`), NewMemoryStore("x"))

	if err == nil || err.Error() != "Duplicate node key: 1" {
		t.Error("Unexpected result:", err)
		return
	}

	_, err = ImportJSON(bytes.NewBufferString(`{ "nodes" : [ { "key" : "1", "labels" : "A" } ] }`), NewMemoryStore("x"))

	if err == nil || err.Error() != "Labels of node 1 must be a list" {
		t.Error("Unexpected result:", err)
		return
	}

	_, err = ImportJSON(bytes.NewBufferString(`{ "nodes" : [ { "key" : "1" } ], "edges" : [ { "start" : "1", "end" : "2", "type" : "R" } ] }`), NewMemoryStore("x"))

	if err == nil || err.Error() != "Edge with unknown start or end node: map[end:2 start:1 type:R]" {
		t.Error("Unexpected result:", err)
		return
	}

	_, err = ImportJSON(bytes.NewBufferString(`{ "nodes" : [ { "key" : "1" } ], "edges" : [ { "start" : "1", "end" : "1" } ] }`), NewMemoryStore("x"))

	if err == nil || err.Error() != "Edge without type: map[end:1 start:1]" {
		t.Error("Unexpected result:", err)
		return
	}
}

func TestCancelledIteration(t *testing.T) {
	ms := NewMemoryStore("test")
	ms.AddNode(nil, nil)
	ms.AddNode(nil, nil)
	ms.AddRelationship(0, 1, "R", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ms.IterateNodes(ctx, nil, func(id uint64, labels []string) error {
		return nil
	})

	if !errors.Is(err, util.ErrCancelled) {
		t.Error("Unexpected result:", err)
		return
	}

	err = ms.IterateRelationships(ctx, nil, func(rel *Relationship) error {
		return nil
	})

	if !errors.Is(err, util.ErrCancelled) {
		t.Error("Unexpected result:", err)
		return
	}
}
