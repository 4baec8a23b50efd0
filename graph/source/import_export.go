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
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

/*
Reserved attributes of the import format
*/
const (
	AttrKey    = "key"    // Key of a node
	AttrLabels = "labels" // List of labels of a node
	AttrKind   = "kind"   // Single label of a node
	AttrStart  = "start"  // Key of the start node of a relationship
	AttrEnd    = "end"    // Key of the end node of a relationship
	AttrType   = "type"   // Type of a relationship
)

/*
ImportJSON imports nodes and relationships from a JSON document into a memory
store. The document is an object with a list of nodes and a list of edges:

	{
		"nodes" : [ { "key" : "a", "labels" : [ "Person" ], "age" : 42 }, ... ],
		"edges" : [ { "start" : "a", "end" : "b", "type" : "KNOWS", "weight" : 1 }, ... ]
	}

Returns a map from node keys to store ids.
*/
func ImportJSON(in io.Reader, ms *MemoryStore) (map[string]uint64, error) {
	dec := json.NewDecoder(in)
	dec.UseNumber()

	gdata := make(map[string][]map[string]interface{})

	if err := dec.Decode(&gdata); err != nil {
		return nil, fmt.Errorf("Could not decode file content as object with list of nodes and edges: %s", err.Error())
	}

	keys := make(map[string]uint64)

	for _, ndata := range gdata["nodes"] {
		key, ok := ndata[AttrKey]
		if !ok {
			return nil, fmt.Errorf("Node without key: %v", ndata)
		}

		var labels []string

		if kind, ok := ndata[AttrKind]; ok {
			labels = append(labels, fmt.Sprint(kind))
		}

		if l, ok := ndata[AttrLabels]; ok {
			list, ok := l.([]interface{})
			if !ok {
				return nil, fmt.Errorf("Labels of node %v must be a list", key)
			}
			for _, label := range list {
				labels = append(labels, fmt.Sprint(label))
			}
		}

		props := make(map[string]interface{})
		for k, v := range ndata {
			if k != AttrKey && k != AttrKind && k != AttrLabels {
				props[k] = v
			}
		}

		keyStr := fmt.Sprint(key)

		if _, ok := keys[keyStr]; ok {
			return nil, fmt.Errorf("Duplicate node key: %v", keyStr)
		}

		keys[keyStr] = ms.AddNode(labels, props)
	}

	for _, edata := range gdata["edges"] {
		start, ok1 := keys[fmt.Sprint(edata[AttrStart])]
		end, ok2 := keys[fmt.Sprint(edata[AttrEnd])]

		if !ok1 || !ok2 {
			return nil, fmt.Errorf("Edge with unknown start or end node: %v", edata)
		}

		relType, ok := edata[AttrType]
		if !ok {
			return nil, fmt.Errorf("Edge without type: %v", edata)
		}

		props := make(map[string]interface{})
		for k, v := range edata {
			if k != AttrStart && k != AttrEnd && k != AttrType {
				props[k] = v
			}
		}

		if err := ms.AddRelationship(start, end, fmt.Sprint(relType), props); err != nil {
			return nil, err
		}
	}

	return keys, nil
}

/*
ExportJSON exports the content of a memory store as a JSON document in the
format of ImportJSON. Node keys are the store ids.
*/
func ExportJSON(out io.Writer, ms *MemoryStore) error {
	ms.lock.RLock()

	nodes := make([]map[string]interface{}, 0, len(ms.nodeProps))

	for i, props := range ms.nodeProps {
		ndata := map[string]interface{}{
			AttrKey:    fmt.Sprint(i),
			AttrLabels: ms.labelsOf(uint64(i)),
		}
		for k, v := range props {
			ndata[k] = v
		}
		nodes = append(nodes, ndata)
	}

	edges := make([]map[string]interface{}, 0, len(ms.rels))

	for _, r := range ms.rels {
		edata := map[string]interface{}{
			AttrStart: fmt.Sprint(r.start),
			AttrEnd:   fmt.Sprint(r.end),
			AttrType:  ms.names.DecodeType(r.typ),
		}
		for k, v := range r.props {
			edata[k] = v
		}
		edges = append(edges, edata)
	}

	ms.lock.RUnlock()

	var buf bytes.Buffer

	buf.WriteString("{\n  \"nodes\" : [\n")
	if err := writeItems(&buf, nodes); err != nil {
		return err
	}
	buf.WriteString("  ],\n  \"edges\" : [\n")
	if err := writeItems(&buf, edges); err != nil {
		return err
	}
	buf.WriteString("  ]\n}")

	_, err := out.Write(buf.Bytes())

	return err
}

/*
writeItems writes a list of objects with sorted keys - one object per line.
*/
func writeItems(buf *bytes.Buffer, items []map[string]interface{}) error {
	for i, item := range items {
		keys := make([]string, 0, len(item))
		for k := range item {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteString("    {")

		for j, k := range keys {
			v, err := json.Marshal(item[k])
			if err != nil {
				return fmt.Errorf("Could not export value of %v: %v", k, err)
			}

			buf.WriteString(fmt.Sprintf(" %q: %s", k, v))

			if j < len(keys)-1 {
				buf.WriteString(",")
			}
		}

		buf.WriteString(" }")

		if i < len(items)-1 {
			buf.WriteString(",")
		}

		buf.WriteString("\n")
	}

	return nil
}
