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
Package neo4jsource provides a source store which reads from and writes to a
Neo4j database using the official Go driver.

Node ids of the store are the internal Neo4j node ids.
*/
package neo4jsource

import (
	"context"
	"fmt"

	"github.com/krotik/common/stringutil"
	"github.com/krotik/eliasgds/graph/source"
	"github.com/krotik/eliasgds/graph/util"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

/*
Queries used by the store
*/
const (
	QueryLabels            = "CALL db.labels() YIELD label RETURN label ORDER BY label"
	QueryRelationshipTypes = "CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType ORDER BY relationshipType"
	QueryNodeKeys          = "MATCH (n) UNWIND keys(n) AS key RETURN DISTINCT key ORDER BY key"
	QueryRelationshipKeys  = "MATCH ()-[r]->() UNWIND keys(r) AS key RETURN DISTINCT key ORDER BY key"
	QueryNodeProperty      = "MATCH (n) WHERE id(n) = $id RETURN n[$key] AS value"
	QueryWriteNodeProperty = "MATCH (n) WHERE id(n) = $id SET n += $props"
)

/*
Store is a source store backed by a Neo4j database.
*/
type Store struct {
	driver   neo4j.DriverWithContext // Driver for the database
	database string                  // Name of the database (empty for default)
}

/*
NewStore creates a new store for a given driver.
*/
func NewStore(driver neo4j.DriverWithContext, database string) *Store {
	return &Store{driver, database}
}

/*
Connect creates a new driver and store for a given database URI.
*/
func Connect(ctx context.Context, uri, user, password, database string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, util.NewGraphError(util.ErrSourceAccess, "Could not create driver: %v", err)
	}

	if err = driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, util.NewGraphError(util.ErrSourceAccess, "Could not connect to %v: %v", uri, err)
	}

	return NewStore(driver, database), nil
}

/*
Close closes the underlying driver.
*/
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

/*
run runs a query and calls a given function for every record.
*/
func (s *Store) run(ctx context.Context, mode neo4j.AccessMode, query string,
	params map[string]interface{}, fn func(rec *neo4j.Record) error) error {

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return s.wrapError(ctx, err)
	}

	for result.Next(ctx) {
		if fn != nil {
			if err := fn(result.Record()); err != nil {
				return err
			}
		}
	}

	if err = result.Err(); err != nil {
		return s.wrapError(ctx, err)
	}

	return nil
}

/*
wrapError wraps a driver error into a graph error.
*/
func (s *Store) wrapError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return &util.GraphError{Type: util.ErrCancelled, Detail: ctx.Err().Error()}
	}
	return &util.GraphError{Type: util.ErrSourceAccess, Detail: err.Error()}
}

/*
strings runs a query which returns a single string column.
*/
func (s *Store) strings(ctx context.Context, query string) ([]string, error) {
	var ret []string

	err := s.run(ctx, neo4j.AccessModeRead, query, nil, func(rec *neo4j.Record) error {
		ret = append(ret, fmt.Sprint(rec.Values[0]))
		return nil
	})

	return ret, err
}

/*
Labels returns all known node labels.
*/
func (s *Store) Labels(ctx context.Context) ([]string, error) {
	return s.strings(ctx, QueryLabels)
}

/*
RelationshipTypes returns all known relationship types.
*/
func (s *Store) RelationshipTypes(ctx context.Context) ([]string, error) {
	return s.strings(ctx, QueryRelationshipTypes)
}

/*
NodePropertyKeys returns all known node property keys.
*/
func (s *Store) NodePropertyKeys(ctx context.Context) ([]string, error) {
	return s.strings(ctx, QueryNodeKeys)
}

/*
RelationshipPropertyKeys returns all known relationship property keys.
*/
func (s *Store) RelationshipPropertyKeys(ctx context.Context) ([]string, error) {
	return s.strings(ctx, QueryRelationshipKeys)
}

/*
NodeQuery returns the query which iterates nodes with a list of labels.
*/
func NodeQuery(labels []string, count bool) string {
	q := "MATCH (n)"

	if len(labels) > 0 {
		q += " WHERE any(l IN labels(n) WHERE l IN $labels)"
	}

	if count {
		return q + " RETURN count(n) AS count"
	}

	return q + " RETURN id(n) AS id, labels(n) AS labels ORDER BY id"
}

/*
RelationshipQuery returns the query which iterates relationships of a list of
types.
*/
func RelationshipQuery(types []string, count bool) string {
	q := "MATCH (a)-[r]->(b)"

	if len(types) > 0 {
		q += " WHERE type(r) IN $types"
	}

	if count {
		return q + " RETURN count(r) AS count"
	}

	return q + " RETURN id(a) AS start, id(b) AS end, type(r) AS type, properties(r) AS props ORDER BY id(r)"
}

/*
WriteRelationshipQuery returns the query which creates a relationship of a
given type. Relationship types cannot be query parameters so only alpha
numeric type names are accepted.
*/
func WriteRelationshipQuery(relType string) (string, error) {
	if relType == "" || !stringutil.IsAlphaNumeric(relType) {
		return "", util.NewGraphError(util.ErrInvalidConfig,
			"Relationship type must be alpha numeric: '%v'", relType)
	}

	return fmt.Sprintf("MATCH (a), (b) WHERE id(a) = $start AND id(b) = $end "+
		"CREATE (a)-[r:`%v`]->(b) SET r += $props", relType), nil
}

/*
IterateNodes calls a given function for every node which has at least one
of the given labels.
*/
func (s *Store) IterateNodes(ctx context.Context, labels []string,
	fn func(id uint64, labels []string) error) error {

	return s.run(ctx, neo4j.AccessModeRead, NodeQuery(labels, false),
		map[string]interface{}{"labels": labels}, func(rec *neo4j.Record) error {

			id, _ := rec.Get("id")
			rawLabels, _ := rec.Get("labels")

			var nodeLabels []string
			if l, ok := rawLabels.([]interface{}); ok {
				for _, label := range l {
					nodeLabels = append(nodeLabels, fmt.Sprint(label))
				}
			}

			return fn(uint64(toInt64(id)), nodeLabels)
		})
}

/*
IterateRelationships calls a given function for every relationship of the
given types.
*/
func (s *Store) IterateRelationships(ctx context.Context, types []string,
	fn func(rel *source.Relationship) error) error {

	return s.run(ctx, neo4j.AccessModeRead, RelationshipQuery(types, false),
		map[string]interface{}{"types": types}, func(rec *neo4j.Record) error {

			start, _ := rec.Get("start")
			end, _ := rec.Get("end")
			relType, _ := rec.Get("type")
			rawProps, _ := rec.Get("props")

			props, _ := rawProps.(map[string]interface{})

			return fn(&source.Relationship{
				Start:      uint64(toInt64(start)),
				End:        uint64(toInt64(end)),
				Type:       fmt.Sprint(relType),
				Properties: props,
			})
		})
}

/*
ReadNodeProperty reads a single property of a node.
*/
func (s *Store) ReadNodeProperty(ctx context.Context, id uint64, key string) (interface{}, bool, error) {
	var value interface{}
	var found bool

	err := s.run(ctx, neo4j.AccessModeRead, QueryNodeProperty,
		map[string]interface{}{"id": int64(id), "key": key}, func(rec *neo4j.Record) error {
			value, _ = rec.Get("value")
			found = value != nil
			return nil
		})

	return value, found, err
}

/*
WriteNodeProperty writes a single property of a node.
*/
func (s *Store) WriteNodeProperty(ctx context.Context, id uint64, key string, value interface{}) error {
	return s.run(ctx, neo4j.AccessModeWrite, QueryWriteNodeProperty,
		map[string]interface{}{"id": int64(id), "props": map[string]interface{}{key: value}}, nil)
}

/*
WriteRelationship creates a new relationship.
*/
func (s *Store) WriteRelationship(ctx context.Context, start, end uint64, relType string,
	props map[string]interface{}) error {

	query, err := WriteRelationshipQuery(relType)
	if err != nil {
		return err
	}

	if props == nil {
		props = map[string]interface{}{}
	}

	return s.run(ctx, neo4j.AccessModeWrite, query, map[string]interface{}{
		"start": int64(start),
		"end":   int64(end),
		"props": props,
	}, nil)
}

/*
NodeCount returns the number of nodes with at least one of the given labels.
*/
func (s *Store) NodeCount(ctx context.Context, labels []string) (uint64, error) {
	return s.count(ctx, NodeQuery(labels, true), map[string]interface{}{"labels": labels})
}

/*
RelationshipCount returns the number of relationships of the given types.
*/
func (s *Store) RelationshipCount(ctx context.Context, types []string) (uint64, error) {
	return s.count(ctx, RelationshipQuery(types, true), map[string]interface{}{"types": types})
}

func (s *Store) count(ctx context.Context, query string, params map[string]interface{}) (uint64, error) {
	var ret uint64

	err := s.run(ctx, neo4j.AccessModeRead, query, params, func(rec *neo4j.Record) error {
		c, _ := rec.Get("count")
		ret = uint64(toInt64(c))
		return nil
	})

	return ret, err
}

/*
toInt64 converts a driver value into an int64.
*/
func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
