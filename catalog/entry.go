/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package catalog

import (
	"fmt"
	"sync"
	"time"

	"github.com/krotik/common/bitutil"
	"github.com/krotik/eliasgds/graph"
	"github.com/krotik/eliasgds/graph/util"
	"golang.org/x/sync/singleflight"
)

/*
Entry is a named graph of the catalog.
*/
type Entry struct {
	owner     string           // Owner of the graph
	name      string           // Name of the graph
	graph     *graph.Graph     // Graph instance
	createdAt time.Time        // Creation time
	clock     func() time.Time // Clock for timestamps

	lock           sync.RWMutex  // Lock for metadata
	lastModifiedAt time.Time     // Time of the last successful mutation
	degrees        *Distribution // Cached degree distribution
	degreesVersion uint64        // Graph version of the cached degree distribution

	writeLock sync.Mutex         // Single writer slot
	flight    singleflight.Group // Group for degree distribution computations
}

/*
newEntry creates a new catalog entry.
*/
func newEntry(owner, name string, g *graph.Graph, clock func() time.Time) *Entry {
	now := clock()

	return &Entry{
		owner:          owner,
		name:           name,
		graph:          g,
		createdAt:      now,
		clock:          clock,
		lastModifiedAt: now,
	}
}

/*
Owner returns the owner of this entry.
*/
func (e *Entry) Owner() string {
	return e.owner
}

/*
Name returns the graph name of this entry.
*/
func (e *Entry) Name() string {
	return e.name
}

/*
Graph returns the graph of this entry.
*/
func (e *Entry) Graph() *graph.Graph {
	return e.graph
}

/*
CreatedAt returns the creation time of this entry.
*/
func (e *Entry) CreatedAt() time.Time {
	return e.createdAt
}

/*
LastModifiedAt returns the time of the last successful mutation.
*/
func (e *Entry) LastModifiedAt() time.Time {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return e.lastModifiedAt
}

/*
Mutate runs a given function in the single writer slot of this entry. The
function may append new property columns or relationship types to the graph.
Readers are not blocked. The modification time is only updated if the
function succeeds.
*/
func (e *Entry) Mutate(f func(g *graph.Graph) error) (err error) {
	e.writeLock.Lock()
	defer e.writeLock.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = util.NewGraphError(util.ErrInternal,
				"Mutation of graph '%v' failed: %v", e.name, r)
		}
	}()

	if err = f(e.graph); err == nil {
		e.lock.Lock()
		e.lastModifiedAt = e.clock()
		e.lock.Unlock()

		LogDebug("Mutated graph ", e.name, " of ", e.owner, " (version ", e.graph.Version(), ")")
	}

	return err
}

/*
DegreeDistribution returns the distribution of node degrees over all
relationship types. The result is cached until the graph is mutated.
Concurrent callers share a single computation.
*/
func (e *Entry) DegreeDistribution() *Distribution {
	version := e.graph.Version()

	e.lock.RLock()
	if e.degrees != nil && e.degreesVersion == version {
		defer e.lock.RUnlock()
		return e.degrees
	}
	e.lock.RUnlock()

	res, _, _ := e.flight.Do(fmt.Sprint(version), func() (interface{}, error) {
		g := e.graph
		degrees := make([]uint64, g.NodeCount())

		for node := range degrees {
			degrees[node] = g.Degree(uint64(node))
		}

		dist := NewDistribution(degrees)

		e.lock.Lock()
		if version >= e.degreesVersion {
			e.degrees = dist
			e.degreesVersion = version
		}
		e.lock.Unlock()

		return dist, nil
	})

	return res.(*Distribution)
}

/*
Info returns the metadata of this entry.
*/
func (e *Entry) Info(withDegrees bool) *Info {
	g := e.graph
	mem := g.MemoryUsage()

	info := &Info{
		Owner:             e.owner,
		Name:              e.name,
		ID:                g.ID(),
		Spec:              g.Spec(),
		NodeCount:         g.NodeCount(),
		RelationshipCount: g.RelationshipCount(),
		MemoryUsage:       mem,
		SizeString:        bitutil.ByteSizeString(int64(mem), false),
		CreatedAt:         e.createdAt,
		LastModifiedAt:    e.LastModifiedAt(),
	}

	if withDegrees {
		info.DegreeDistribution = e.DegreeDistribution()
	}

	return info
}

/*
Info is the metadata of a catalog entry.
*/
type Info struct {
	Owner              string                // Owner of the graph
	Name               string                // Name of the graph
	ID                 string                // Unique id of the graph instance
	Spec               *graph.ProjectionSpec // Projection spec which was used to build the graph
	NodeCount          uint64                // Number of nodes
	RelationshipCount  uint64                // Number of relationships
	MemoryUsage        uint64                // Memory footprint in bytes
	SizeString         string                // Human readable memory footprint
	CreatedAt          time.Time             // Creation time
	LastModifiedAt     time.Time             // Time of the last mutation
	DegreeDistribution *Distribution         // Degree distribution (optional)
}

/*
ToMap returns a map representation of this info object. Timestamps are
milliseconds since the epoch.
*/
func (i *Info) ToMap() map[string]interface{} {
	ret := map[string]interface{}{
		"graphName":         i.Name,
		"graphId":           i.ID,
		"relationshipCount": i.RelationshipCount,
		"nodeCount":         i.NodeCount,
		"memoryUsage":       i.SizeString,
		"sizeInBytes":       i.MemoryUsage,
		"creationTime":      i.CreatedAt.UnixMilli(),
		"modificationTime":  i.LastModifiedAt.UnixMilli(),
	}

	spec := i.Spec.ToMap()
	for k, v := range spec {
		ret[k] = v
	}

	if i.DegreeDistribution != nil {
		ret["degreeDistribution"] = i.DegreeDistribution.ToMap()
	}

	return ret
}
