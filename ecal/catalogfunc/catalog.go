/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package catalogfunc contains ECAL functions which give scripts access to the
graph catalog and the algorithm executor.
*/
package catalogfunc

import (
	"context"
	"fmt"

	"github.com/krotik/ecal/parser"
	"github.com/krotik/ecal/scope"
	"github.com/krotik/eliasgds/catalog"
	"github.com/krotik/eliasgds/graph"
	"github.com/krotik/eliasgds/graph/source"
)

/*
CreateFunc projects a graph from the source store into the catalog.
*/
type CreateFunc struct {
	Catalog *catalog.Catalog
	Store   source.Source
}

/*
Run executes the ECAL function.
*/
func (f *CreateFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {
	var err error
	var spec *graph.ProjectionSpec
	var info *catalog.Info
	var props map[interface{}]interface{}

	if arglen := len(args); arglen != 4 && arglen != 5 {
		return nil, fmt.Errorf("Function requires 4 or 5 parameters: owner, graph name, node projection," +
			" relationship projection and optionally a property map")
	}

	owner, name := fmt.Sprint(args[0]), fmt.Sprint(args[1])

	if len(args) > 4 {
		var ok bool

		if props, ok = args[4].(map[interface{}]interface{}); !ok {
			err = fmt.Errorf("Fifth parameter must be a map")
		}
	}

	if err == nil {
		spec, err = graph.ParseProjection(
			scope.ConvertECALToJSONObject(args[2]),
			scope.ConvertECALToJSONObject(args[3]),
			scope.ConvertECALToJSONObject(props["nodeProperties"]),
			scope.ConvertECALToJSONObject(props["relationshipProperties"]))
	}

	if err == nil {
		if info, err = f.Catalog.Create(context.Background(), owner, name, f.Store, spec); err == nil {
			return ecalObject(info.ToMap()), nil
		}
	}

	return nil, err
}

/*
DocString returns a descriptive string.
*/
func (f *CreateFunc) DocString() (string, error) {
	return "Projects a graph from the source store into the graph catalog.", nil
}

/*
ExistsFunc checks if a graph exists in the catalog.
*/
type ExistsFunc struct {
	Catalog *catalog.Catalog
}

/*
Run executes the ECAL function.
*/
func (f *ExistsFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {
	if arglen := len(args); arglen != 2 {
		return nil, fmt.Errorf("Function requires 2 parameters: owner and graph name")
	}

	return f.Catalog.Exists(fmt.Sprint(args[0]), fmt.Sprint(args[1])), nil
}

/*
DocString returns a descriptive string.
*/
func (f *ExistsFunc) DocString() (string, error) {
	return "Checks if a graph exists in the graph catalog.", nil
}

/*
ListFunc lists the graphs of an owner.
*/
type ListFunc struct {
	Catalog *catalog.Catalog
}

/*
Run executes the ECAL function.
*/
func (f *ListFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {
	var name string

	if arglen := len(args); arglen != 1 && arglen != 2 {
		return nil, fmt.Errorf("Function requires 1 or 2 parameters: owner and optionally a graph name")
	}

	if len(args) > 1 {
		name = fmt.Sprint(args[1])
	}

	// The degree distribution is only computed when a single graph is requested

	infos := f.Catalog.List(fmt.Sprint(args[0]), name, name != "")
	ret := make([]interface{}, 0, len(infos))

	for _, info := range infos {
		ret = append(ret, ecalObject(info.ToMap()))
	}

	return ret, nil
}

/*
DocString returns a descriptive string.
*/
func (f *ListFunc) DocString() (string, error) {
	return "Lists the graphs of an owner in the graph catalog.", nil
}

/*
DropFunc removes a graph from the catalog.
*/
type DropFunc struct {
	Catalog *catalog.Catalog
}

/*
Run executes the ECAL function.
*/
func (f *DropFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {
	if arglen := len(args); arglen != 2 {
		return nil, fmt.Errorf("Function requires 2 parameters: owner and graph name")
	}

	info, err := f.Catalog.Drop(fmt.Sprint(args[0]), fmt.Sprint(args[1]))
	if err != nil {
		return nil, err
	}

	return ecalObject(info.ToMap()), nil
}

/*
DocString returns a descriptive string.
*/
func (f *DropFunc) DocString() (string, error) {
	return "Removes a graph from the graph catalog.", nil
}

/*
WriteNodePropertiesFunc writes node properties of a graph back to the source store.
*/
type WriteNodePropertiesFunc struct {
	Catalog *catalog.Catalog
	Store   source.Source
}

/*
Run executes the ECAL function.
*/
func (f *WriteNodePropertiesFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {
	if arglen := len(args); arglen != 3 {
		return nil, fmt.Errorf("Function requires 3 parameters: owner, graph name and a list of property keys")
	}

	keys, ok := stringList(args[2])
	if !ok {
		return nil, fmt.Errorf("Third parameter must be a list of strings")
	}

	sink, err := sinkOf(f.Store)
	if err != nil {
		return nil, err
	}

	res, err := f.Catalog.WriteNodeProperties(context.Background(),
		fmt.Sprint(args[0]), fmt.Sprint(args[1]), sink, keys)

	return writeResult(res, err)
}

/*
DocString returns a descriptive string.
*/
func (f *WriteNodePropertiesFunc) DocString() (string, error) {
	return "Writes node properties of a graph back to the source store.", nil
}

/*
WriteRelationshipFunc writes relationships of a graph back to the source store.
*/
type WriteRelationshipFunc struct {
	Catalog *catalog.Catalog
	Store   source.Source
}

/*
Run executes the ECAL function.
*/
func (f *WriteRelationshipFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {
	var property string

	if arglen := len(args); arglen != 3 && arglen != 4 {
		return nil, fmt.Errorf("Function requires 3 or 4 parameters: owner, graph name," +
			" relationship type and optionally a relationship property")
	}

	if len(args) > 3 {
		property = fmt.Sprint(args[3])
	}

	sink, err := sinkOf(f.Store)
	if err != nil {
		return nil, err
	}

	res, err := f.Catalog.WriteRelationship(context.Background(),
		fmt.Sprint(args[0]), fmt.Sprint(args[1]), sink, fmt.Sprint(args[2]), property)

	return writeResult(res, err)
}

/*
DocString returns a descriptive string.
*/
func (f *WriteRelationshipFunc) DocString() (string, error) {
	return "Writes relationships of a graph back to the source store.", nil
}

func sinkOf(store source.Source) (source.Sink, error) {
	sink, ok := store.(source.Sink)
	if !ok {
		return nil, fmt.Errorf("Source store %v is not writable", store)
	}
	return sink, nil
}

func writeResult(res *catalog.WriteResult, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}

	return ecalObject(map[string]interface{}{
		"nodePropertiesWritten": res.NodePropertiesWritten,
		"relationshipsWritten":  res.RelationshipsWritten,
		"writeMillis":           res.WriteMillis,
	}), nil
}
