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
Package source contains the interfaces of the persistent graph store from which
graph projections are built and to which results are written back.

The store is an external capability - projections only read from it through
the Source interface and write results through the Sink interface. Node ids of
the store are opaque uint64 values.

MemoryStore is a thread-safe in-memory implementation which can be filled
from a JSON document with ImportJSON.
*/
package source

import "context"

/*
Relationship is a relationship as seen in the source store.
*/
type Relationship struct {
	Start      uint64                 // Start node id
	End        uint64                 // End node id
	Type       string                 // Relationship type
	Properties map[string]interface{} // Relationship properties
}

/*
Source models read access to a persistent graph store.
*/
type Source interface {

	/*
		Labels returns all known node labels.
	*/
	Labels(ctx context.Context) ([]string, error)

	/*
		RelationshipTypes returns all known relationship types.
	*/
	RelationshipTypes(ctx context.Context) ([]string, error)

	/*
		NodePropertyKeys returns all known node property keys.
	*/
	NodePropertyKeys(ctx context.Context) ([]string, error)

	/*
		RelationshipPropertyKeys returns all known relationship property keys.
	*/
	RelationshipPropertyKeys(ctx context.Context) ([]string, error)

	/*
		IterateNodes calls a given function for every node which has at least one
		of the given labels. An empty label list selects all nodes. The order of
		iteration is stable for an unchanged store.
	*/
	IterateNodes(ctx context.Context, labels []string, fn func(id uint64, labels []string) error) error

	/*
		IterateRelationships calls a given function for every relationship of the
		given types. An empty type list selects all relationships.
	*/
	IterateRelationships(ctx context.Context, types []string, fn func(rel *Relationship) error) error

	/*
		ReadNodeProperty reads a single property of a node.
	*/
	ReadNodeProperty(ctx context.Context, id uint64, key string) (interface{}, bool, error)
}

/*
Sink models write access to a persistent graph store.
*/
type Sink interface {

	/*
		WriteNodeProperty writes a single property of a node.
	*/
	WriteNodeProperty(ctx context.Context, id uint64, key string, value interface{}) error

	/*
		WriteRelationship creates a new relationship.
	*/
	WriteRelationship(ctx context.Context, start, end uint64, relType string, props map[string]interface{}) error
}

/*
Store models a source store which can be read and written.
*/
type Store interface {
	Source
	Sink
}

/*
Counter is implemented by sources which can quickly count their content.
Counts may be approximate.
*/
type Counter interface {

	/*
		NodeCount returns the number of nodes with at least one of the given
		labels. An empty list counts all nodes.
	*/
	NodeCount(ctx context.Context, labels []string) (uint64, error)

	/*
		RelationshipCount returns the number of relationships of the given types.
		An empty list counts all relationships.
	*/
	RelationshipCount(ctx context.Context, types []string) (uint64, error)
}
