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
Package graph contains the projection of a source store into an in-memory graph.

ProjectionSpec

A projection spec describes which nodes, relationships and properties of a
source store are projected. Specs are usually parsed from the loosely typed
values of a call:

	nodeProjection:         "*", "Person", ["Person", "City"] or
	                        {"P": {"label": "Person", "properties": ["age"]}}
	relationshipProjection: "*", "KNOWS", ["KNOWS"] or
	                        {"K": {"type": "KNOWS", "orientation": "UNDIRECTED",
	                               "aggregation": "SUM", "properties": {"w": {"property": "weight", "defaultValue": 1.0}}}}

Build

Build reads a source store once and produces a Graph. A Graph holds a dense
node id space, typed property columns and one compressed partition per
projected relationship type.

View

A View restricts a Graph to nodes with given labels and to given relationship
types. Algorithms run on views.

Mutation

A Graph is read-only apart from two operations: new node property columns and
new relationship types can be appended. Every mutation increases the version
of the graph.
*/
package graph

import "go.opentelemetry.io/otel"

// Global variables
// ================

/*
Wildcards of a projection
*/
const (
	AllLabels         = "*"       // Projects all nodes
	AllTypes          = "*"       // Projects all relationship types
	AllTypesPartition = "__ALL__" // Partition name of a wildcard relationship projection
)

/*
NodeMappingBytes is the number of bytes which are used per node to map
between node ids and source ids.
*/
const NodeMappingBytes = 24

/*
cancelCheckInterval is the number of nodes after which a build checks for
cancellation.
*/
const cancelCheckInterval = 1 << 12

/*
tracer creates the spans of projection builds.
*/
var tracer = otel.Tracer("eliasgds.graph")
