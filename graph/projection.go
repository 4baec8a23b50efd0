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
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/krotik/common/stringutil"
	"github.com/krotik/eliasgds/graph/column"
	"github.com/krotik/eliasgds/graph/topology"
	"github.com/krotik/eliasgds/graph/util"
)

/*
PropertyMapping maps a source property to a projected property.
*/
type PropertyMapping struct {
	Key          string               // Name of the projected property
	Property     string               // Name of the source property
	DefaultValue interface{}          // Default value for missing values
	HasDefault   bool                 // Flag if a default value was given
	Type         column.ValueType     // Declared value type (Unknown infers)
	Aggregation  topology.Aggregation // Aggregation for relationship properties
}

/*
NodeSelector selects nodes by label.
*/
type NodeSelector struct {
	Label      string            // Label of the selected nodes
	Properties []PropertyMapping // Properties of nodes with this label
}

/*
RelationshipSelector selects relationships by type.
*/
type RelationshipSelector struct {
	Name        string               // Name of the projected relationship type
	Type        string               // Type in the source store
	Orientation topology.Orientation // Orientation of the projection
	Aggregation topology.Aggregation // Aggregation of parallel relationships
	Properties  []PropertyMapping    // Properties of the selected relationships
}

/*
ProjectionSpec is a declarative description of a projection.
*/
type ProjectionSpec struct {
	Nodes                  []NodeSelector         // Node selectors
	Relationships          []RelationshipSelector // Relationship selectors
	NodeProperties         []PropertyMapping      // Properties of all projected nodes
	RelationshipProperties []PropertyMapping      // Properties of all projected relationships
}

/*
AllNodes returns if this spec projects all nodes.
*/
func (s *ProjectionSpec) AllNodes() bool {
	for _, n := range s.Nodes {
		if n.Label == AllLabels {
			return true
		}
	}
	return false
}

/*
Labels returns the sorted explicit labels of this spec.
*/
func (s *ProjectionSpec) Labels() []string {
	var ret []string

	for _, n := range s.Nodes {
		if n.Label != AllLabels && stringutil.IndexOf(n.Label, ret) == -1 {
			ret = append(ret, n.Label)
		}
	}

	sort.Strings(ret)

	return ret
}

/*
AllTypes returns if this spec projects relationships of all types.
*/
func (s *ProjectionSpec) AllTypes() bool {
	for _, r := range s.Relationships {
		if r.Type == AllTypes {
			return true
		}
	}
	return false
}

/*
Types returns the sorted explicit source relationship types of this spec.
*/
func (s *ProjectionSpec) Types() []string {
	var ret []string

	for _, r := range s.Relationships {
		if r.Type != AllTypes && stringutil.IndexOf(r.Type, ret) == -1 {
			ret = append(ret, r.Type)
		}
	}

	sort.Strings(ret)

	return ret
}

/*
ScopedMapping is a node property mapping together with the labels of the
nodes it applies to.
*/
type ScopedMapping struct {
	PropertyMapping
	Labels []string // Labels of nodes which carry the property (nil for all)
}

/*
NodePropertyMappings returns all node property mappings sorted by key. A
mapping which is declared more than once must be declared identically.
*/
func (s *ProjectionSpec) NodePropertyMappings() ([]*ScopedMapping, error) {
	mappings := make(map[string]*ScopedMapping)

	add := func(m PropertyMapping, label string) error {
		sm, ok := mappings[m.Key]

		if !ok {
			sm = &ScopedMapping{m, nil}
			mappings[m.Key] = sm

			if label != "" && label != AllLabels {
				sm.Labels = []string{label}
			}

			return nil
		}

		if sm.Property != m.Property || sm.Type != m.Type ||
			sm.HasDefault != m.HasDefault || fmt.Sprint(sm.DefaultValue) != fmt.Sprint(m.DefaultValue) {

			return util.NewGraphError(util.ErrInvalidConfig,
				"Node property '%v' is declared with different mappings", m.Key)
		}

		if sm.Labels != nil {
			if label == "" || label == AllLabels {
				sm.Labels = nil
			} else if stringutil.IndexOf(label, sm.Labels) == -1 {
				sm.Labels = append(sm.Labels, label)
			}
		}

		return nil
	}

	for _, m := range s.NodeProperties {
		if err := add(m, ""); err != nil {
			return nil, err
		}
	}

	for _, n := range s.Nodes {
		for _, m := range n.Properties {
			if err := add(m, n.Label); err != nil {
				return nil, err
			}
		}
	}

	ret := make([]*ScopedMapping, 0, len(mappings))
	for _, m := range mappings {
		sort.Strings(m.Labels)
		ret = append(ret, m)
	}

	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Key < ret[j].Key
	})

	return ret, nil
}

/*
RelationshipPropertyMappings returns the property mappings of a relationship
selector including the global relationship properties.
*/
func (s *ProjectionSpec) RelationshipPropertyMappings(sel *RelationshipSelector) []PropertyMapping {
	ret := append([]PropertyMapping(nil), sel.Properties...)

	for _, m := range s.RelationshipProperties {
		found := false
		for _, e := range ret {
			if e.Key == m.Key {
				found = true
				break
			}
		}

		if !found {
			ret = append(ret, m)
		}
	}

	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Key < ret[j].Key
	})

	return ret
}

/*
PartitionAggregation returns the aggregation which is applied to the
partition of a relationship selector. The aggregation of the selector wins.
Otherwise the property mappings may declare a common aggregation.
*/
func (s *ProjectionSpec) PartitionAggregation(sel *RelationshipSelector) (topology.Aggregation, error) {
	if sel.Aggregation != topology.Default {
		return sel.Aggregation, nil
	}

	agg := topology.Default

	for _, m := range s.RelationshipPropertyMappings(sel) {
		if m.Aggregation == topology.Default {
			continue
		}

		if agg != topology.Default && agg != m.Aggregation {
			return agg, util.NewGraphError(util.ErrInvalidConfig,
				"Relationship projection '%v' has conflicting aggregations: %v and %v",
				sel.Name, agg, m.Aggregation)
		}

		agg = m.Aggregation
	}

	return agg.Resolve(), nil
}

/*
ToMap returns a canonical map representation of this spec.
*/
func (s *ProjectionSpec) ToMap() map[string]interface{} {
	nodes := make(map[string]interface{})

	for _, n := range s.Nodes {
		nodes[n.Label] = map[string]interface{}{
			"label":      n.Label,
			"properties": mappingsToMap(n.Properties, false),
		}
	}

	rels := make(map[string]interface{})

	for _, r := range s.Relationships {
		rels[r.Name] = map[string]interface{}{
			"type":        r.Type,
			"orientation": r.Orientation.String(),
			"aggregation": r.Aggregation.String(),
			"properties":  mappingsToMap(r.Properties, true),
		}
	}

	return map[string]interface{}{
		"nodeProjection":         nodes,
		"relationshipProjection": rels,
		"nodeProperties":         mappingsToMap(s.NodeProperties, false),
		"relationshipProperties": mappingsToMap(s.RelationshipProperties, true),
	}
}

func mappingsToMap(mappings []PropertyMapping, rel bool) map[string]interface{} {
	ret := make(map[string]interface{})

	for _, m := range mappings {
		mm := map[string]interface{}{
			"property":     m.Property,
			"defaultValue": m.DefaultValue,
		}

		if m.Type != column.Unknown {
			mm["type"] = m.Type.String()
		}

		if rel {
			mm["aggregation"] = m.Aggregation.String()
		}

		ret[m.Key] = mm
	}

	return ret
}

/*
String returns a canonical string representation of this spec.
*/
func (s *ProjectionSpec) String() string {
	ret, _ := json.Marshal(s.ToMap())
	return string(ret)
}

// Parsing
// =======

/*
ParseProjection parses a projection spec from loosely typed values.
*/
func ParseProjection(nodeProjection, relationshipProjection,
	nodeProperties, relationshipProperties interface{}) (*ProjectionSpec, error) {

	var err error

	spec := &ProjectionSpec{}

	if spec.Nodes, err = parseNodeProjection(nodeProjection); err == nil {
		if spec.Relationships, err = parseRelationshipProjection(relationshipProjection); err == nil {
			if spec.NodeProperties, err = parseProperties("nodeProperties", nodeProperties, false); err == nil {
				spec.RelationshipProperties, err = parseProperties("relationshipProperties",
					relationshipProperties, true)
			}
		}
	}

	if err == nil {

		// Validate relationship aggregations early

		for i := range spec.Relationships {
			if _, err = spec.PartitionAggregation(&spec.Relationships[i]); err != nil {
				break
			}
		}
	}

	if err != nil {
		return nil, err
	}

	return spec, nil
}

/*
parseNodeProjection parses the node selectors of a projection.
*/
func parseNodeProjection(v interface{}) ([]NodeSelector, error) {
	var ret []NodeSelector

	if v == nil {
		return nil, util.NewGraphError(util.ErrInvalidConfig, "Node projection is required")
	}

	if names, ok := stringList(v); ok {
		for _, n := range names {
			ret = append(ret, NodeSelector{Label: n})
		}
		return ret, validateNonEmpty("node", len(ret))
	}

	m, ok := asMap(v)
	if !ok {
		return nil, util.NewGraphError(util.ErrInvalidConfig,
			"Invalid node projection: %v", v)
	}

	for _, key := range sortedMapKeys(m) {
		val := m[key]
		sel := NodeSelector{Label: key}

		if label, ok := val.(string); ok {
			sel.Label = label

		} else if vm, ok := asMap(val); ok {
			for _, k := range sortedMapKeys(vm) {
				var err error

				switch k {
				case "label":
					sel.Label = fmt.Sprint(vm[k])
				case "properties":
					sel.Properties, err = parseProperties(key, vm[k], false)
				default:
					err = util.NewGraphError(util.ErrInvalidConfig,
						"Unknown key '%v' in node projection '%v'", k, key)
				}

				if err != nil {
					return nil, err
				}
			}

		} else {
			return nil, util.NewGraphError(util.ErrInvalidConfig,
				"Invalid node projection '%v': %v", key, val)
		}

		ret = append(ret, sel)
	}

	return ret, validateNonEmpty("node", len(ret))
}

/*
parseRelationshipProjection parses the relationship selectors of a projection.
*/
func parseRelationshipProjection(v interface{}) ([]RelationshipSelector, error) {
	var ret []RelationshipSelector

	if v == nil {
		return nil, util.NewGraphError(util.ErrInvalidConfig, "Relationship projection is required")
	}

	if names, ok := stringList(v); ok {
		for _, n := range names {
			ret = append(ret, RelationshipSelector{Name: partitionName(n, n), Type: n,
				Orientation: topology.Natural, Aggregation: topology.Default})
		}
		return ret, validateNonEmpty("relationship", len(ret))
	}

	m, ok := asMap(v)
	if !ok {
		return nil, util.NewGraphError(util.ErrInvalidConfig,
			"Invalid relationship projection: %v", v)
	}

	for _, key := range sortedMapKeys(m) {
		val := m[key]
		sel := RelationshipSelector{Name: key, Type: key,
			Orientation: topology.Natural, Aggregation: topology.Default}

		if relType, ok := val.(string); ok {
			sel.Type = relType

		} else if vm, ok := asMap(val); ok {
			for _, k := range sortedMapKeys(vm) {
				var err error

				switch k {
				case "type":
					sel.Type = fmt.Sprint(vm[k])
				case "orientation":
					sel.Orientation, err = topology.ParseOrientation(fmt.Sprint(vm[k]))
				case "aggregation":
					sel.Aggregation, err = topology.ParseAggregation(fmt.Sprint(vm[k]))
				case "properties":
					sel.Properties, err = parseProperties(key, vm[k], true)
				default:
					err = fmt.Errorf("Unknown key '%v' in relationship projection '%v'", k, key)
				}

				if err != nil {
					return nil, asConfigError(err)
				}
			}

		} else {
			return nil, util.NewGraphError(util.ErrInvalidConfig,
				"Invalid relationship projection '%v': %v", key, val)
		}

		sel.Name = partitionName(key, sel.Type)

		ret = append(ret, sel)
	}

	return ret, validateNonEmpty("relationship", len(ret))
}

/*
partitionName returns the partition name of a relationship projection.
*/
func partitionName(key, relType string) string {
	if key == AllTypes || (relType == AllTypes && key == relType) {
		return AllTypesPartition
	}
	return key
}

/*
parseProperties parses a list or map of property mappings.
*/
func parseProperties(owner string, v interface{}, rel bool) ([]PropertyMapping, error) {
	var ret []PropertyMapping

	if v == nil {
		return nil, nil
	}

	if names, ok := stringList(v); ok {
		for _, n := range names {
			if err := validatePropertyName(n); err != nil {
				return nil, err
			}
			ret = append(ret, PropertyMapping{Key: n, Property: n})
		}
		return ret, nil
	}

	m, ok := asMap(v)
	if !ok {
		return nil, util.NewGraphError(util.ErrInvalidConfig,
			"Invalid properties of '%v': %v", owner, v)
	}

	for _, key := range sortedMapKeys(m) {
		val := m[key]
		pm := PropertyMapping{Key: key, Property: key}

		if prop, ok := val.(string); ok {
			pm.Property = prop

		} else if vm, ok := asMap(val); ok {
			for _, k := range sortedMapKeys(vm) {
				var err error

				switch {
				case k == "property":
					pm.Property = fmt.Sprint(vm[k])
				case k == "defaultValue":
					pm.DefaultValue, pm.HasDefault = vm[k], vm[k] != nil
				case k == "type":
					pm.Type, err = column.ParseValueType(fmt.Sprint(vm[k]))
				case k == "aggregation" && rel:
					pm.Aggregation, err = topology.ParseAggregation(fmt.Sprint(vm[k]))
				default:
					err = fmt.Errorf("Unknown key '%v' in property '%v' of '%v'", k, key, owner)
				}

				if err != nil {
					return nil, asConfigError(err)
				}
			}

		} else {
			return nil, util.NewGraphError(util.ErrInvalidConfig,
				"Invalid property '%v' of '%v': %v", key, owner, val)
		}

		if err := validatePropertyName(pm.Key); err != nil {
			return nil, err
		}

		ret = append(ret, pm)
	}

	return ret, nil
}

// Helper functions
// ================

/*
asConfigError converts an error into a configuration error.
*/
func asConfigError(err error) error {
	if _, ok := err.(*util.GraphError); ok {
		return err
	}
	return &util.GraphError{Type: util.ErrInvalidConfig, Detail: err.Error()}
}

/*
validatePropertyName checks that a projected property name is alpha numeric.
*/
func validatePropertyName(name string) error {
	if name == "" || !stringutil.IsAlphaNumeric(name) {
		return util.NewGraphError(util.ErrInvalidConfig,
			"Property name must be alpha numeric: '%v'", name)
	}
	return nil
}

func validateNonEmpty(kind string, count int) error {
	if count == 0 {
		return util.NewGraphError(util.ErrInvalidConfig, "Empty %v projection", kind)
	}
	return nil
}

/*
stringList converts a string or a list of strings into a list of strings.
*/
func stringList(v interface{}) ([]string, bool) {
	switch l := v.(type) {
	case string:
		return []string{strings.TrimSpace(l)}, true
	case []string:
		return l, true
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

/*
asMap converts a map value with string or interface keys.
*/
func asMap(v interface{}) (map[interface{}]interface{}, bool) {
	switch m := v.(type) {
	case map[interface{}]interface{}:
		return m, true
	case map[string]interface{}:
		return toInterfaceMap(m), true
	}
	return nil, false
}

func toInterfaceMap(m map[string]interface{}) map[interface{}]interface{} {
	ret := make(map[interface{}]interface{}, len(m))
	for k, v := range m {
		ret[k] = v
	}
	return ret
}

/*
sortedMapKeys returns the keys of a map as sorted strings.
*/
func sortedMapKeys(m map[interface{}]interface{}) []string {
	ret := make([]string, 0, len(m))
	for k := range m {
		ret = append(ret, fmt.Sprint(k))
	}
	sort.Strings(ret)
	return ret
}
