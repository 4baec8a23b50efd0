/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package catalogfunc

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/krotik/eliasgds/algo"
	"github.com/krotik/eliasgds/algo/all"
	"github.com/krotik/eliasgds/catalog"
	"github.com/krotik/eliasgds/graph/source"
)

const testGraph = `
{
	"nodes" : [
		{ "key" : "a", "labels" : [ "Person" ], "age" : 30 },
		{ "key" : "b", "labels" : [ "Person" ], "age" : 40 },
		{ "key" : "c", "labels" : [ "Person" ] },
		{ "key" : "d", "labels" : [ "City" ] }
	],
	"edges" : [
		{ "start" : "a", "end" : "b", "type" : "KNOWS", "since" : 2010 },
		{ "start" : "b", "end" : "c", "type" : "KNOWS", "since" : 2015 },
		{ "start" : "c", "end" : "d", "type" : "LIVES_IN" }
	]
}`

func newTestEnv(t *testing.T) (*catalog.Catalog, *source.MemoryStore, *algo.Executor) {
	ms := source.NewMemoryStore("test")

	if _, err := source.ImportJSON(bytes.NewBufferString(testGraph), ms); err != nil {
		t.Fatal(err)
	}

	cat := catalog.New()

	return cat, ms, algo.NewExecutor(all.NewRegistry(), cat)
}

func TestCatalogFunctions(t *testing.T) {
	cat, ms, _ := newTestEnv(t)
	defer cat.Close()

	cf := &CreateFunc{cat, ms}

	if _, err := cf.DocString(); err != nil {
		t.Error(err)
		return
	}

	if _, err := cf.Run("", nil, nil, 0, []interface{}{"alice", "g"}); err == nil ||
		err.Error() != "Function requires 4 or 5 parameters: owner, graph name, node projection,"+
			" relationship projection and optionally a property map" {
		t.Error(err)
		return
	}

	if _, err := cf.Run("", nil, nil, 0, []interface{}{"alice", "g", "*", "*", "bla"}); err == nil ||
		err.Error() != "Fifth parameter must be a map" {
		t.Error(err)
		return
	}

	if _, err := cf.Run("", nil, nil, 0, []interface{}{"alice", "g", "Robot", "*"}); err == nil ||
		err.Error() != "GraphError: Unknown label (Invalid node projection, one or more labels not found: 'Robot')" {
		t.Error(err)
		return
	}

	res, err := cf.Run("", nil, nil, 0, []interface{}{"alice", "g",
		[]interface{}{"Person", "City"},
		map[interface{}]interface{}{
			"KNOWS": map[interface{}]interface{}{
				"type":       "KNOWS",
				"properties": "since",
			},
		},
		map[interface{}]interface{}{
			"nodeProperties": "age",
		},
	})
	if err != nil {
		t.Error(err)
		return
	}

	info := res.(map[interface{}]interface{})

	if res := fmt.Sprint(info["graphName"], " ", info["nodeCount"], " ", info["relationshipCount"]); res != "g 4 2" {
		t.Error("Unexpected result:", res)
		return
	}

	if _, ok := info["nodeCount"].(float64); !ok {
		t.Error("Numbers should be converted to ECAL numbers:", info)
		return
	}

	if _, err := cf.Run("", nil, nil, 0, []interface{}{"alice", "g", "*", "*"}); err == nil ||
		err.Error() != "GraphError: Graph already exists (Graph 'g' already exists)" {
		t.Error(err)
		return
	}

	// Exists and list

	ef := &ExistsFunc{cat}

	if _, err := ef.DocString(); err != nil {
		t.Error(err)
		return
	}

	if _, err := ef.Run("", nil, nil, 0, []interface{}{"alice"}); err == nil ||
		err.Error() != "Function requires 2 parameters: owner and graph name" {
		t.Error(err)
		return
	}

	r1, _ := ef.Run("", nil, nil, 0, []interface{}{"alice", "g"})
	r2, _ := ef.Run("", nil, nil, 0, []interface{}{"bob", "g"})

	if res := fmt.Sprint(r1, r2); res != "true false" {
		t.Error("Unexpected result:", res)
		return
	}

	lf := &ListFunc{cat}

	if _, err := lf.DocString(); err != nil {
		t.Error(err)
		return
	}

	if _, err := lf.Run("", nil, nil, 0, []interface{}{}); err == nil ||
		err.Error() != "Function requires 1 or 2 parameters: owner and optionally a graph name" {
		t.Error(err)
		return
	}

	res, _ = lf.Run("", nil, nil, 0, []interface{}{"alice"})
	list := res.([]interface{})

	if _, ok := list[0].(map[interface{}]interface{})["degreeDistribution"]; len(list) != 1 || ok {
		t.Error("Unexpected result:", list)
		return
	}

	res, _ = lf.Run("", nil, nil, 0, []interface{}{"alice", "g"})
	dist := res.([]interface{})[0].(map[interface{}]interface{})["degreeDistribution"].(map[interface{}]interface{})

	if res := fmt.Sprint(dist["min"], " ", dist["max"]); res != "0 1" {
		t.Error("Unexpected result:", res)
		return
	}

	res, _ = lf.Run("", nil, nil, 0, []interface{}{"bob"})

	if res := fmt.Sprint(res); res != "[]" {
		t.Error("Unexpected result:", res)
		return
	}

	// Write-back

	wf := &WriteNodePropertiesFunc{cat, ms}

	if _, err := wf.DocString(); err != nil {
		t.Error(err)
		return
	}

	if _, err := wf.Run("", nil, nil, 0, []interface{}{"alice", "g"}); err == nil ||
		err.Error() != "Function requires 3 parameters: owner, graph name and a list of property keys" {
		t.Error(err)
		return
	}

	if _, err := wf.Run("", nil, nil, 0, []interface{}{"alice", "g", []interface{}{1}}); err == nil ||
		err.Error() != "Third parameter must be a list of strings" {
		t.Error(err)
		return
	}

	if _, err := wf.Run("", nil, nil, 0, []interface{}{"alice", "g", "height"}); err == nil ||
		err.Error() != "GraphError: Unknown property (Node property 'height' not found in graph 'g')" {
		t.Error(err)
		return
	}

	readOnly := &WriteNodePropertiesFunc{cat, struct{ source.Source }{ms}}

	if _, err := readOnly.Run("", nil, nil, 0, []interface{}{"alice", "g", "age"}); err == nil ||
		!strings.HasPrefix(err.Error(), "Source store") {
		t.Error(err)
		return
	}

	res, err = wf.Run("", nil, nil, 0, []interface{}{"alice", "g", []interface{}{"age"}})
	if err != nil {
		t.Error(err)
		return
	}

	if res := res.(map[interface{}]interface{})["nodePropertiesWritten"]; res != float64(2) {
		t.Error("Unexpected result:", res)
		return
	}

	rf := &WriteRelationshipFunc{cat, ms}

	if _, err := rf.DocString(); err != nil {
		t.Error(err)
		return
	}

	if _, err := rf.Run("", nil, nil, 0, []interface{}{"alice", "g"}); err == nil ||
		err.Error() != "Function requires 3 or 4 parameters: owner, graph name,"+
			" relationship type and optionally a relationship property" {
		t.Error(err)
		return
	}

	if _, err := rf.Run("", nil, nil, 0, []interface{}{"alice", "g", "LIVES_IN"}); err == nil ||
		err.Error() != "GraphError: Unknown relationship type (Relationship type 'LIVES_IN' not found in graph 'g')" {
		t.Error(err)
		return
	}

	before := len(ms.Relationships("KNOWS"))

	res, err = rf.Run("", nil, nil, 0, []interface{}{"alice", "g", "KNOWS", "since"})
	if err != nil {
		t.Error(err)
		return
	}

	if res := fmt.Sprint(res.(map[interface{}]interface{})["relationshipsWritten"], " ",
		len(ms.Relationships("KNOWS"))-before); res != "2 2" {
		t.Error("Unexpected result:", res)
		return
	}

	// Drop

	df := &DropFunc{cat}

	if _, err := df.DocString(); err != nil {
		t.Error(err)
		return
	}

	if _, err := df.Run("", nil, nil, 0, []interface{}{"alice"}); err == nil ||
		err.Error() != "Function requires 2 parameters: owner and graph name" {
		t.Error(err)
		return
	}

	res, err = df.Run("", nil, nil, 0, []interface{}{"alice", "g"})
	if err != nil || res.(map[interface{}]interface{})["graphName"] != "g" {
		t.Error("Unexpected result:", res, err)
		return
	}

	if _, err := df.Run("", nil, nil, 0, []interface{}{"alice", "g"}); err == nil ||
		err.Error() != "GraphError: Graph not found (Graph 'g' not found)" {
		t.Error(err)
		return
	}
}

func TestAlgoFunctions(t *testing.T) {
	cat, ms, exec := newTestEnv(t)
	defer cat.Close()

	if _, err := (&CreateFunc{cat, ms}).Run("", nil, nil, 0, []interface{}{"alice", "g", "*", "*"}); err != nil {
		t.Error(err)
		return
	}

	rf := &RunFunc{exec, ms}

	if _, err := rf.DocString(); err != nil {
		t.Error(err)
		return
	}

	if _, err := rf.Run("", nil, nil, 0, []interface{}{"alice", "g", "wcc"}); err == nil ||
		err.Error() != "Function requires 4 or 5 parameters: owner, graph name,"+
			" algorithm, mode and optionally a configuration map" {
		t.Error(err)
		return
	}

	if _, err := rf.Run("", nil, nil, 0, []interface{}{"alice", "g", "wcc", "explain"}); err == nil ||
		err.Error() != "GraphError: Invalid configuration (Unknown execution mode: 'explain')" {
		t.Error(err)
		return
	}

	if _, err := rf.Run("", nil, nil, 0, []interface{}{"alice", "g", "wcc", "stats", "bla"}); err == nil ||
		err.Error() != "Fifth parameter must be a map" {
		t.Error(err)
		return
	}

	if _, err := rf.Run("", nil, nil, 0, []interface{}{"alice", "g", "wcc", "stats",
		map[interface{}]interface{}{"foo": 1}}); err == nil ||
		err.Error() != "GraphError: Unknown configuration key (foo)" {
		t.Error(err)
		return
	}

	res, err := rf.Run("", nil, nil, 0, []interface{}{"alice", "g", "wcc", "stats"})
	if err != nil {
		t.Error(err)
		return
	}

	if res := res.(map[interface{}]interface{})["componentCount"]; res != float64(1) {
		t.Error("Unexpected result:", res)
		return
	}

	res, err = rf.Run("", nil, nil, 0, []interface{}{"alice", "g", "degree", "stream",
		map[interface{}]interface{}{"concurrency": float64(2)}})
	if err != nil {
		t.Error(err)
		return
	}

	if res := fmt.Sprint(res); res != "[map[nodeId:0 score:1] map[nodeId:1 score:1] "+
		"map[nodeId:2 score:1] map[nodeId:3 score:0]]" {
		t.Error("Unexpected result:", res)
		return
	}

	// Anonymous graph

	res, err = rf.Run("", nil, nil, 0, []interface{}{"alice", "", "wcc", "stream",
		map[interface{}]interface{}{
			"nodeProjection":         "Person",
			"relationshipProjection": "KNOWS",
		}})
	if err != nil {
		t.Error(err)
		return
	}

	if res := fmt.Sprint(res); res != "[map[componentId:0 nodeId:0] map[componentId:0 nodeId:1] "+
		"map[componentId:0 nodeId:2]]" {
		t.Error("Unexpected result:", res)
		return
	}

	// Estimation

	ef := &EstimateFunc{exec, ms}

	if _, err := ef.DocString(); err != nil {
		t.Error(err)
		return
	}

	if _, err := ef.Run("", nil, nil, 0, []interface{}{"alice"}); err == nil {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := ef.Run("", nil, nil, 0, []interface{}{"alice", "h", "wcc", "stats"}); err == nil ||
		err.Error() != "GraphError: Graph not found (Graph 'h' not found)" {
		t.Error(err)
		return
	}

	res, err = ef.Run("", nil, nil, 0, []interface{}{"alice", "g", "wcc", "stats"})
	if err != nil {
		t.Error(err)
		return
	}

	est := res.(map[interface{}]interface{})

	if res := fmt.Sprint(est["requiredMemory"], " ", est["bytesMin"], " ", est["bytesMax"]); res != "[100 B ... 128 B] 100 128" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := fmt.Sprint(est["treeView"]); !strings.HasPrefix(res, "wcc: [100 B ... 128 B]\n") {
		t.Error("Unexpected result:", res)
		return
	}
}
