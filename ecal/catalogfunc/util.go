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
	"github.com/krotik/ecal/scope"
	"github.com/krotik/ecal/stdlib"
	"github.com/krotik/eliasgds/algo"
	"github.com/krotik/eliasgds/catalog"
	"github.com/krotik/eliasgds/graph/source"
)

/*
AddCatalogStdlibFunctions adds the graph catalog functions to the ECAL stdlib
package gds.
*/
func AddCatalogStdlibFunctions(cat *catalog.Catalog, store source.Source, exec *algo.Executor) {
	stdlib.AddStdlibPkg("gds", "Graph catalog and algorithm functions")

	stdlib.AddStdlibFunc("gds", "create", &CreateFunc{Catalog: cat, Store: store})
	stdlib.AddStdlibFunc("gds", "exists", &ExistsFunc{Catalog: cat})
	stdlib.AddStdlibFunc("gds", "list", &ListFunc{Catalog: cat})
	stdlib.AddStdlibFunc("gds", "drop", &DropFunc{Catalog: cat})
	stdlib.AddStdlibFunc("gds", "writeNodeProperties", &WriteNodePropertiesFunc{Catalog: cat, Store: store})
	stdlib.AddStdlibFunc("gds", "writeRelationship", &WriteRelationshipFunc{Catalog: cat, Store: store})
	stdlib.AddStdlibFunc("gds", "run", &RunFunc{Executor: exec, Store: store})
	stdlib.AddStdlibFunc("gds", "estimate", &EstimateFunc{Executor: exec, Store: store})
}

/*
ecalObject converts a result value into an ECAL object. Numbers become
floating point values.
*/
func ecalObject(v interface{}) interface{} {
	return scope.ConvertJSONToECALObject(jsonObject(v))
}

/*
jsonObject converts a result value into a plain JSON object.
*/
func jsonObject(v interface{}) interface{} {
	switch t := v.(type) {
	case algo.Row:
		return jsonObject(map[string]interface{}(t))

	case map[string]interface{}:
		ret := make(map[string]interface{}, len(t))
		for k, v := range t {
			ret[k] = jsonObject(v)
		}
		return ret

	case []algo.Row:
		ret := make([]interface{}, len(t))
		for i, v := range t {
			ret[i] = jsonObject(v)
		}
		return ret

	case []interface{}:
		ret := make([]interface{}, len(t))
		for i, v := range t {
			ret[i] = jsonObject(v)
		}
		return ret

	case []string:
		ret := make([]interface{}, len(t))
		for i, v := range t {
			ret[i] = v
		}
		return ret

	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	}

	return v
}

/*
stringList converts an ECAL value into a list of strings.
*/
func stringList(v interface{}) ([]string, bool) {
	switch l := v.(type) {
	case string:
		return []string{l}, true
	case []interface{}:
		ret := make([]string, 0, len(l))
		for _, i := range l {
			s, ok := i.(string)
			if !ok {
				return nil, false
			}
			ret = append(ret, s)
		}
		return ret, true
	}

	return nil, false
}
