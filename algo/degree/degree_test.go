/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package degree

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/krotik/eliasgds/algo"
	"github.com/krotik/eliasgds/catalog"
	"github.com/krotik/eliasgds/graph/source"
)

const testGraph = `
{
	"nodes" : [
		{ "key" : "a" }, { "key" : "b" }, { "key" : "c" }, { "key" : "d" }
	],
	"edges" : [
		{ "start" : "a", "end" : "b", "type" : "LINK", "weight" : 1 },
		{ "start" : "b", "end" : "c", "type" : "LINK", "weight" : 1 },
		{ "start" : "c", "end" : "a", "type" : "LINK", "weight" : 1 },
		{ "start" : "d", "end" : "a", "type" : "LINK", "weight" : 1 },
		{ "start" : "a", "end" : "c", "type" : "LINK", "weight" : 3 }
	]
}`

func TestDegree(t *testing.T) {
	ms := source.NewMemoryStore("test")

	ids, err := source.ImportJSON(bytes.NewBufferString(testGraph), ms)
	if err != nil {
		t.Error(err)
		return
	}

	cat := catalog.New()
	defer cat.Close()

	r := algo.NewRegistry()
	Register(r)

	exec := algo.NewExecutor(r, cat)

	run := func(mode algo.Mode, config map[string]interface{}) (*algo.Result, error) {
		config["nodeProjection"] = "*"
		config["relationshipProjection"] = "*"
		config["relationshipProperties"] = "weight"

		return exec.Run(context.Background(), &algo.Request{
			Owner:     "alice",
			Algorithm: Name,
			Mode:      mode,
			Config:    config,
			Source:    ms,
		})
	}

	res, err := run(algo.Stream, map[string]interface{}{})
	if err != nil {
		t.Error(err)
		return
	}

	byID := make(map[uint64]interface{})
	for _, row := range algo.Collect(res.Rows) {
		byID[row["nodeId"].(uint64)] = row[ResultKey]
	}

	if res := fmt.Sprint(byID[ids["a"]], byID[ids["b"]], byID[ids["c"]], byID[ids["d"]]); res != "2 1 1 1" {
		t.Error("Unexpected result:", res)
		return
	}

	res, err = run(algo.Stats, map[string]interface{}{"relationshipWeightProperty": "weight"})
	if err != nil {
		t.Error(err)
		return
	}

	if res := fmt.Sprint(res.Summary.Stats["centralityDistribution"]); res !=
		"map[max:4 mean:1.75 min:1 p50:1 p75:1 p90:4 p95:4 p99:4 p999:4]" {
		t.Error("Unexpected result:", res)
		return
	}

	_, err = run(algo.Stats, map[string]interface{}{"relationshipWeightProperty": "cost"})

	if err == nil || err.Error() != "GraphError: Missing property (Weight property 'cost' not found)" {
		t.Error("Unexpected result:", err)
		return
	}

	res, err = run(algo.Write, map[string]interface{}{"writeProperty": "degree"})
	if err != nil {
		t.Error(err)
		return
	}

	if v, _ := ms.NodeProperty(ids["a"], "degree"); fmt.Sprint(res.Summary.NodePropertiesWritten, " ", v) != "4 2" {
		t.Error("Unexpected result:", res.Summary.NodePropertiesWritten, v)
		return
	}
}
