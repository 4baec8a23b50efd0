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
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/krotik/common/bitutil"
	"github.com/krotik/eliasgds/graph/util"
)

/*
iterationCheck is the number of iterated items after which the context is
checked for cancellation.
*/
const iterationCheck = 1024

/*
memoryRelationship is a stored relationship
*/
type memoryRelationship struct {
	start, end uint64
	typ        uint16
	props      map[string]interface{}
}

/*
MemoryStore is a thread-safe in-memory source store. Node ids are assigned
in insertion order. Node labels are stored as packed lists of label codes.
*/
type MemoryStore struct {
	name         string                   // Name of the store
	mainDB       map[string]string        // Database for label and type codes
	names        *util.NamesManager       // Names manager for labels and types
	nodeLabels   []string                 // Packed label codes of each node
	nodeProps    []map[string]interface{} // Properties of each node
	rels         []*memoryRelationship    // All relationships
	nodePropKeys map[string]bool          // Known node property keys
	relPropKeys  map[string]bool          // Known relationship property keys
	lock         *sync.RWMutex            // Lock for the store
}

/*
NewMemoryStore creates a new empty memory store.
*/
func NewMemoryStore(name string) *MemoryStore {
	mainDB := make(map[string]string)

	return &MemoryStore{name, mainDB, util.NewNamesManager(mainDB), nil, nil, nil,
		make(map[string]bool), make(map[string]bool), &sync.RWMutex{}}
}

/*
Name returns the name of this store.
*/
func (ms *MemoryStore) Name() string {
	return ms.name
}

/*
AddNode adds a new node and returns its id.
*/
func (ms *MemoryStore) AddNode(labels []string, props map[string]interface{}) uint64 {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	var highest uint64

	codes := make([]uint64, 0, len(labels))
	seen := make(map[uint64]bool)

	for _, l := range labels {
		code := uint64(ms.names.EncodeLabel(l, true))

		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
			if code > highest {
				highest = code
			}
		}
	}

	nprops := make(map[string]interface{}, len(props))
	for k, v := range props {
		nprops[k] = v
		ms.nodePropKeys[k] = true
	}

	ms.nodeLabels = append(ms.nodeLabels, bitutil.PackList(codes, highest))
	ms.nodeProps = append(ms.nodeProps, nprops)

	return uint64(len(ms.nodeProps) - 1)
}

/*
AddRelationship adds a new relationship between two existing nodes.
*/
func (ms *MemoryStore) AddRelationship(start, end uint64, relType string, props map[string]interface{}) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	if start >= uint64(len(ms.nodeProps)) || end >= uint64(len(ms.nodeProps)) {
		return util.NewGraphError(util.ErrSourceAccess,
			"Cannot create relationship %v -> %v: node does not exist", start, end)
	}

	rprops := make(map[string]interface{}, len(props))
	for k, v := range props {
		rprops[k] = v
		ms.relPropKeys[k] = true
	}

	ms.rels = append(ms.rels, &memoryRelationship{start, end,
		ms.names.EncodeType(relType, true), rprops})

	return nil
}

/*
NodeLabels returns the labels of a node.
*/
func (ms *MemoryStore) NodeLabels(id uint64) []string {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	return ms.labelsOf(id)
}

/*
labelsOf decodes the labels of a node.
*/
func (ms *MemoryStore) labelsOf(id uint64) []string {
	codes := bitutil.UnpackList(ms.nodeLabels[id])
	ret := make([]string, 0, len(codes))

	for _, c := range codes {
		ret = append(ret, ms.names.DecodeLabel(uint16(c)))
	}

	return ret
}

/*
NodeProperty returns a property of a node.
*/
func (ms *MemoryStore) NodeProperty(id uint64, key string) (interface{}, bool) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	if id >= uint64(len(ms.nodeProps)) {
		return nil, false
	}

	val, ok := ms.nodeProps[id][key]
	return val, ok
}

/*
Relationships returns all relationships of a given type. An empty type
returns all relationships.
*/
func (ms *MemoryStore) Relationships(relType string) []*Relationship {
	var ret []*Relationship

	ms.IterateRelationships(context.Background(), typeList(relType), func(rel *Relationship) error {
		ret = append(ret, rel)
		return nil
	})

	return ret
}

func typeList(relType string) []string {
	if relType == "" {
		return nil
	}
	return []string{relType}
}

// Source interface
// ================

/*
Labels returns all known node labels.
*/
func (ms *MemoryStore) Labels(ctx context.Context) ([]string, error) {
	return ms.allNames(util.PrefixLabel, ms.names.DecodeLabel), nil
}

/*
RelationshipTypes returns all known relationship types.
*/
func (ms *MemoryStore) RelationshipTypes(ctx context.Context) ([]string, error) {
	return ms.allNames(util.PrefixType, ms.names.DecodeType), nil
}

func (ms *MemoryStore) allNames(prefix string, decode func(uint16) string) []string {
	count := ms.names.Count(prefix)
	ret := make([]string, 0, count)

	for i := uint16(1); i <= count; i++ {
		ret = append(ret, decode(i))
	}

	sort.Strings(ret)

	return ret
}

/*
NodePropertyKeys returns all known node property keys.
*/
func (ms *MemoryStore) NodePropertyKeys(ctx context.Context) ([]string, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	return sortedKeys(ms.nodePropKeys), nil
}

/*
RelationshipPropertyKeys returns all known relationship property keys.
*/
func (ms *MemoryStore) RelationshipPropertyKeys(ctx context.Context) ([]string, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	return sortedKeys(ms.relPropKeys), nil
}

func sortedKeys(m map[string]bool) []string {
	ret := make([]string, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

/*
labelFilter returns a lookup of label codes for a list of labels. Returns nil
if all labels should match.
*/
func (ms *MemoryStore) labelFilter(labels []string) map[uint64]bool {
	if len(labels) == 0 {
		return nil
	}

	ret := make(map[uint64]bool, len(labels))
	for _, l := range labels {
		if code := ms.names.EncodeLabel(l, false); code != 0 {
			ret[uint64(code)] = true
		}
	}

	return ret
}

/*
matches checks if a node has one of the labels of a given filter.
*/
func (ms *MemoryStore) matches(id uint64, filter map[uint64]bool) bool {
	if filter == nil {
		return true
	}

	for _, c := range bitutil.UnpackList(ms.nodeLabels[id]) {
		if filter[c] {
			return true
		}
	}

	return false
}

/*
IterateNodes calls a given function for every node which has at least one
of the given labels.
*/
func (ms *MemoryStore) IterateNodes(ctx context.Context, labels []string,
	fn func(id uint64, labels []string) error) error {

	ms.lock.RLock()
	count := uint64(len(ms.nodeLabels))
	filter := ms.labelFilter(labels)
	ms.lock.RUnlock()

	for i := uint64(0); i < count; i++ {

		if i%iterationCheck == 0 && ctx.Err() != nil {
			return &util.GraphError{Type: util.ErrCancelled, Detail: ctx.Err().Error()}
		}

		ms.lock.RLock()
		match := ms.matches(i, filter)
		nodeLabels := ms.labelsOf(i)
		ms.lock.RUnlock()

		if match {
			if err := fn(i, nodeLabels); err != nil {
				return err
			}
		}
	}

	return nil
}

/*
IterateRelationships calls a given function for every relationship of the
given types.
*/
func (ms *MemoryStore) IterateRelationships(ctx context.Context, types []string,
	fn func(rel *Relationship) error) error {

	ms.lock.RLock()
	count := len(ms.rels)

	var filter map[uint16]bool

	if len(types) > 0 {
		filter = make(map[uint16]bool)
		for _, t := range types {
			if code := ms.names.EncodeType(t, false); code != 0 {
				filter[code] = true
			}
		}
	}
	ms.lock.RUnlock()

	for i := 0; i < count; i++ {

		if i%iterationCheck == 0 && ctx.Err() != nil {
			return &util.GraphError{Type: util.ErrCancelled, Detail: ctx.Err().Error()}
		}

		ms.lock.RLock()
		r := ms.rels[i]

		var rel *Relationship

		if filter == nil || filter[r.typ] {
			props := make(map[string]interface{}, len(r.props))
			for k, v := range r.props {
				props[k] = v
			}
			rel = &Relationship{r.start, r.end, ms.names.DecodeType(r.typ), props}
		}
		ms.lock.RUnlock()

		if rel != nil {
			if err := fn(rel); err != nil {
				return err
			}
		}
	}

	return nil
}

/*
ReadNodeProperty reads a single property of a node.
*/
func (ms *MemoryStore) ReadNodeProperty(ctx context.Context, id uint64, key string) (interface{}, bool, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	if id >= uint64(len(ms.nodeProps)) {
		return nil, false, util.NewGraphError(util.ErrSourceAccess, "Node %v does not exist", id)
	}

	val, ok := ms.nodeProps[id][key]

	return val, ok, nil
}

// Sink interface
// ==============

/*
WriteNodeProperty writes a single property of a node.
*/
func (ms *MemoryStore) WriteNodeProperty(ctx context.Context, id uint64, key string, value interface{}) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	if id >= uint64(len(ms.nodeProps)) {
		return util.NewGraphError(util.ErrSourceAccess, "Node %v does not exist", id)
	}

	ms.nodeProps[id][key] = value
	ms.nodePropKeys[key] = true

	return nil
}

/*
WriteRelationship creates a new relationship.
*/
func (ms *MemoryStore) WriteRelationship(ctx context.Context, start, end uint64, relType string,
	props map[string]interface{}) error {

	return ms.AddRelationship(start, end, relType, props)
}

// Counter interface
// =================

/*
NodeCount returns the number of nodes with at least one of the given labels.
*/
func (ms *MemoryStore) NodeCount(ctx context.Context, labels []string) (uint64, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	if len(labels) == 0 {
		return uint64(len(ms.nodeLabels)), nil
	}

	var ret uint64

	filter := ms.labelFilter(labels)
	for i := range ms.nodeLabels {
		if ms.matches(uint64(i), filter) {
			ret++
		}
	}

	return ret, nil
}

/*
RelationshipCount returns the number of relationships of the given types.
*/
func (ms *MemoryStore) RelationshipCount(ctx context.Context, types []string) (uint64, error) {
	var ret uint64

	err := ms.IterateRelationships(ctx, types, func(rel *Relationship) error {
		ret++
		return nil
	})

	return ret, err
}

/*
String returns a string representation of this store.
*/
func (ms *MemoryStore) String() string {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	return fmt.Sprintf("MemoryStore %v (%v nodes, %v relationships)",
		ms.name, len(ms.nodeProps), len(ms.rels))
}
