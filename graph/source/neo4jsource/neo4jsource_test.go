/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package neo4jsource

import (
	"testing"

	"github.com/krotik/eliasgds/graph/source"
)

// Make sure the store fulfills the source interfaces

var _ source.Store = &Store{}
var _ source.Counter = &Store{}

func TestQueries(t *testing.T) {

	if res := NodeQuery(nil, false); res != "MATCH (n) RETURN id(n) AS id, labels(n) AS labels ORDER BY id" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := NodeQuery([]string{"Person"}, true); res != "MATCH (n) WHERE any(l IN labels(n) WHERE l IN $labels) RETURN count(n) AS count" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := RelationshipQuery([]string{"KNOWS"}, false); res != "MATCH (a)-[r]->(b) WHERE type(r) IN $types RETURN id(a) AS start, id(b) AS end, type(r) AS type, properties(r) AS props ORDER BY id(r)" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := RelationshipQuery(nil, true); res != "MATCH (a)-[r]->(b) RETURN count(r) AS count" {
		t.Error("Unexpected result:", res)
		return
	}

	if res, err := WriteRelationshipQuery("SIMILAR_TO"); err != nil || res != "MATCH (a), (b) WHERE id(a) = $start AND id(b) = $end CREATE (a)-[r:`SIMILAR_TO`]->(b) SET r += $props" {
		t.Error("Unexpected result:", res, err)
		return
	}

	if _, err := WriteRelationshipQuery("X`]->() DETACH DELETE a //"); err == nil || err.Error() != "GraphError: Invalid configuration (Relationship type must be alpha numeric: 'X`]->() DETACH DELETE a //')" {
		t.Error("Unexpected result:", err)
		return
	}

	if res := toInt64(int64(5)) + toInt64(3) + toInt64(2.0) + toInt64("x"); res != 10 {
		t.Error("Unexpected result:", res)
		return
	}
}
