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
	"context"
	"fmt"

	"github.com/krotik/ecal/parser"
	"github.com/krotik/ecal/scope"
	"github.com/krotik/eliasgds/algo"
	"github.com/krotik/eliasgds/graph/source"
)

/*
RunFunc runs a graph algorithm. An empty graph name runs the algorithm on an
anonymous graph which is projected from the source store.
*/
type RunFunc struct {
	Executor *algo.Executor
	Store    source.Source
}

/*
Run executes the ECAL function.
*/
func (f *RunFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {
	req, err := algoRequest(args, f.Store)
	if err != nil {
		return nil, err
	}

	res, err := f.Executor.Run(context.Background(), req)
	if err != nil {
		return nil, err
	}

	if res.Rows != nil {
		return ecalObject(algo.Collect(res.Rows)), nil
	}

	return ecalObject(res.Summary.ToMap()), nil
}

/*
DocString returns a descriptive string.
*/
func (f *RunFunc) DocString() (string, error) {
	return "Runs a graph algorithm on a cataloged or an anonymous graph.", nil
}

/*
EstimateFunc estimates the memory which an algorithm call requires.
*/
type EstimateFunc struct {
	Executor *algo.Executor
	Store    source.Source
}

/*
Run executes the ECAL function.
*/
func (f *EstimateFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {
	req, err := algoRequest(args, f.Store)
	if err != nil {
		return nil, err
	}

	est, err := f.Executor.Estimate(context.Background(), req)
	if err != nil {
		return nil, err
	}

	return ecalObject(map[string]interface{}{
		"requiredMemory": est.Range.String(),
		"bytesMin":       est.Range.Min,
		"bytesMax":       est.Range.Max,
		"treeView":       est.String(),
	}), nil
}

/*
DocString returns a descriptive string.
*/
func (f *EstimateFunc) DocString() (string, error) {
	return "Estimates the memory which a graph algorithm call requires.", nil
}

/*
algoRequest creates an algorithm request from ECAL function arguments.
*/
func algoRequest(args []interface{}, store source.Source) (*algo.Request, error) {
	var config map[string]interface{}

	if arglen := len(args); arglen != 4 && arglen != 5 {
		return nil, fmt.Errorf("Function requires 4 or 5 parameters: owner, graph name," +
			" algorithm, mode and optionally a configuration map")
	}

	mode, err := algo.ParseMode(fmt.Sprint(args[3]))
	if err != nil {
		return nil, err
	}

	if len(args) > 4 {
		if _, ok := args[4].(map[interface{}]interface{}); !ok {
			return nil, fmt.Errorf("Fifth parameter must be a map")
		}
		config = scope.ConvertECALToJSONObject(args[4]).(map[string]interface{})
	}

	return &algo.Request{
		Owner:     fmt.Sprint(args[0]),
		GraphName: fmt.Sprint(args[1]),
		Algorithm: fmt.Sprint(args[2]),
		Mode:      mode,
		Config:    config,
		Source:    store,
	}, nil
}
