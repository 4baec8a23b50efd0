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
Package catalog contains the graph catalog.

The catalog stores named graph projections per owner. Owners are isolated
from each other: no operation which is called for one owner can see or change
the graphs of another owner. The catalog is volatile and not persisted.

Create

A graph name is reserved before the graph is built. A concurrent create call
for the same owner and name fails immediately. Before the build the memory
footprint of the projection is estimated and checked against the configured
memory limit. The reservation is released if the build fails.

Mutate

Cataloged graphs can be extended with new node properties and relationship
types through the single writer slot of their entry (see Entry.Mutate).
*/
package catalog

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/krotik/common/bitutil"
	"github.com/krotik/common/stringutil"
	"github.com/krotik/eliasgds/estimate"
	"github.com/krotik/eliasgds/graph"
	"github.com/krotik/eliasgds/graph/source"
	"github.com/krotik/eliasgds/graph/topology"
	"github.com/krotik/eliasgds/graph/util"
	"github.com/krotik/eliasgds/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("eliasgds.catalog")

/*
Catalog is the registry of named graphs.
*/
type Catalog struct {
	lock      sync.RWMutex                 // Lock for the entry maps
	entries   map[string]map[string]*Entry // Entries by owner and name (nil entries are reservations)
	closed    uint64                       // Number of Close calls (invalidates pending reservations)
	maxMemory uint64                       // Memory limit for new graphs (0 is unlimited)
	preflight bool                         // Flag if graphs should be estimated before they are built
	buildOpts graph.BuildOptions           // Options for projection builds
	collector *metrics.Collector           // Metrics collector (may be nil)
	writer    *Writer                      // Writer for write-back operations
	estimates *estimate.Cache              // Cache for memory estimations
	clock     func() time.Time             // Clock for timestamps
}

/*
Option is an option of a catalog.
*/
type Option func(c *Catalog)

/*
WithMaxMemory sets the memory limit for new graphs. A limit of 0 disables the
check.
*/
func WithMaxMemory(bytes uint64) Option {
	return func(c *Catalog) {
		c.maxMemory = bytes
	}
}

/*
WithPreflight enables or disables the memory estimation before builds.
*/
func WithPreflight(enabled bool) Option {
	return func(c *Catalog) {
		c.preflight = enabled
	}
}

/*
WithBuildOptions sets the options for projection builds.
*/
func WithBuildOptions(opts graph.BuildOptions) Option {
	return func(c *Catalog) {
		c.buildOpts = opts
	}
}

/*
WithCollector sets the metrics collector of the catalog.
*/
func WithCollector(collector *metrics.Collector) Option {
	return func(c *Catalog) {
		c.collector = collector
	}
}

/*
WithWriter sets the writer for write-back operations.
*/
func WithWriter(w *Writer) Option {
	return func(c *Catalog) {
		c.writer = w
	}
}

/*
WithClock sets the clock which is used for timestamps.
*/
func WithClock(clock func() time.Time) Option {
	return func(c *Catalog) {
		c.clock = clock
	}
}

/*
New creates a new empty catalog.
*/
func New(opts ...Option) *Catalog {
	c := &Catalog{
		entries:   make(map[string]map[string]*Entry),
		preflight: true,
		buildOpts: graph.DefaultBuildOptions(),
		estimates: estimate.NewCache(estimate.DefaultCacheSize),
		clock:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.writer == nil {
		c.writer = NewWriter(DefaultWriteConcurrency, DefaultWriteBatchSize)
	}

	return c
}

/*
Close releases all resources of the catalog. All graphs are dropped.
*/
func (c *Catalog) Close() {
	c.lock.Lock()
	owners := make([]string, 0, len(c.entries))
	for owner := range c.entries {
		owners = append(owners, owner)
	}
	c.entries = make(map[string]map[string]*Entry)
	c.closed++
	c.lock.Unlock()

	for _, owner := range owners {
		c.collector.SetGraphs(owner, 0)
	}
	c.collector.SetMemory(0)

	c.writer.Close()
}

/*
Writer returns the writer of this catalog.
*/
func (c *Catalog) Writer() *Writer {
	return c.writer
}

/*
MaxMemory returns the memory limit of this catalog.
*/
func (c *Catalog) MaxMemory() uint64 {
	return c.maxMemory
}

/*
Estimate returns the memory estimation of a projection for a given source. The
source must be able to count its nodes and relationships.
*/
func (c *Catalog) Estimate(ctx context.Context, src source.Source,
	spec *graph.ProjectionSpec) (*estimate.Estimation, error) {

	counter, ok := src.(source.Counter)
	if !ok {
		return nil, util.NewGraphError(util.ErrInvalidConfig,
			"Source %v cannot count its nodes and relationships", src)
	}

	nodeCount, err := counter.NodeCount(ctx, spec.Labels())
	if err != nil {
		return nil, err
	}

	relCount, err := counter.RelationshipCount(ctx, spec.Types())
	if err != nil {
		return nil, err
	}

	return c.estimates.Projection(spec, nodeCount, relCount)
}

/*
CheckMemory checks an estimation against the memory limit of this catalog.
*/
func (c *Catalog) CheckMemory(name string, e *estimate.Estimation) error {
	if c.maxMemory > 0 && e.Range.Max > c.maxMemory {
		return util.NewGraphError(util.ErrMemoryLimit,
			"Graph '%v' requires up to %v but only %v are allowed", name,
			sizeString(e.Range.Max), sizeString(c.maxMemory))
	}
	return nil
}

func sizeString(bytes uint64) string {
	return bitutil.ByteSizeString(int64(min(bytes, math.MaxInt64)), false)
}

/*
Build builds a graph without registering it. The memory footprint is checked
before the build if the source can count its content.
*/
func (c *Catalog) Build(ctx context.Context, name string, src source.Source,
	spec *graph.ProjectionSpec) (g *graph.Graph, err error) {

	defer func() {
		if r := recover(); r != nil {
			g = nil
			err = util.NewGraphError(util.ErrInternal, "Build of graph '%v' failed: %v", name, r)
		}
	}()

	if _, ok := src.(source.Counter); ok && c.preflight {
		est, err := c.Estimate(ctx, src, spec)
		if err != nil {
			return nil, err
		}

		LogDebug("Estimated memory of graph ", name, ": ", est.Range)

		if err = c.CheckMemory(name, est); err != nil {
			return nil, err
		}
	}

	start := time.Now()

	g, err = graph.Build(ctx, src, spec, c.buildOpts)

	c.collector.BuildFinished(ctx, time.Since(start), err)

	return g, err
}

/*
Create builds a new graph and stores it in the catalog.
*/
func (c *Catalog) Create(ctx context.Context, owner, name string, src source.Source,
	spec *graph.ProjectionSpec) (*Info, error) {

	ctx, span := tracer.Start(ctx, "catalog.Create", trace.WithAttributes(
		attribute.String("graph.owner", owner),
		attribute.String("graph.name", name)))
	defer span.End()

	info, err := c.create(ctx, owner, name, src, spec)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("graph.node_count", int64(info.NodeCount)),
		attribute.Int64("graph.relationship_count", int64(info.RelationshipCount)))
	span.SetStatus(codes.Ok, "")

	return info, nil
}

func (c *Catalog) create(ctx context.Context, owner, name string, src source.Source,
	spec *graph.ProjectionSpec) (*Info, error) {

	if name == "" {
		return nil, util.NewGraphError(util.ErrInvalidConfig, "Graph name must not be empty")
	}

	gen, err := c.reserve(owner, name)
	if err != nil {
		return nil, err
	}

	g, err := c.Build(ctx, name, src, spec)

	if err == nil && ctx.Err() != nil {
		err = util.NewGraphError(util.ErrCancelled, "Creation of graph '%v' was cancelled", name)
	}

	if err != nil {
		c.release(owner, name)
		return nil, err
	}

	e := newEntry(owner, name, g, c.clock)

	if err = c.publish(gen, e); err != nil {
		return nil, err
	}

	c.updateMetrics(owner)

	LogInfo("Created graph ", name, " for ", owner, ": ", g)

	return e.Info(false), nil
}

/*
reserve reserves a graph name of an owner. Returns the close count at the
time of the reservation.
*/
func (c *Catalog) reserve(owner, name string) (uint64, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	graphs, ok := c.entries[owner]
	if !ok {
		graphs = make(map[string]*Entry)
		c.entries[owner] = graphs
	}

	if _, ok := graphs[name]; ok {
		return 0, util.NewGraphError(util.ErrGraphAlreadyExists, "Graph '%v' already exists", name)
	}

	graphs[name] = nil

	return c.closed, nil
}

/*
publish replaces the reservation of an entry with the entry. Fails if the
catalog was closed since the reservation was made.
*/
func (c *Catalog) publish(gen uint64, e *Entry) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	graphs, ok := c.entries[e.owner]

	if reserved, ok2 := graphs[e.name]; c.closed != gen || !ok || !ok2 || reserved != nil {
		return util.NewGraphError(util.ErrCancelled,
			"Catalog was closed while graph '%v' was created", e.name)
	}

	graphs[e.name] = e

	return nil
}

/*
release removes the reservation of a graph name.
*/
func (c *Catalog) release(owner, name string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if graphs, ok := c.entries[owner]; ok {
		if e, ok := graphs[name]; ok && e == nil {
			delete(graphs, name)
		}
		if len(graphs) == 0 {
			delete(c.entries, owner)
		}
	}
}

/*
Exists checks if a graph exists.
*/
func (c *Catalog) Exists(owner, name string) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.entries[owner][name] != nil
}

/*
Get returns the entry of a graph.
*/
func (c *Catalog) Get(owner, name string) (*Entry, error) {
	c.lock.RLock()
	e := c.entries[owner][name]
	c.lock.RUnlock()

	if e == nil {
		return nil, util.NewGraphError(util.ErrGraphNotFound, "Graph '%v' not found", name)
	}

	return e, nil
}

/*
List returns the metadata of all graphs of an owner sorted by name. If a name
is given only the graph of that name is listed.
*/
func (c *Catalog) List(owner, name string, withDegrees bool) []*Info {
	var entries []*Entry

	c.lock.RLock()
	for n, e := range c.entries[owner] {
		if e != nil && (name == "" || name == n) {
			entries = append(entries, e)
		}
	}
	c.lock.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].name < entries[j].name
	})

	ret := make([]*Info, 0, len(entries))
	for _, e := range entries {
		ret = append(ret, e.Info(withDegrees))
	}

	return ret
}

/*
Drop removes a graph from the catalog. The metadata of the removed graph is
returned.
*/
func (c *Catalog) Drop(owner, name string) (*Info, error) {
	c.lock.Lock()

	e := c.entries[owner][name]
	if e == nil {
		c.lock.Unlock()
		return nil, util.NewGraphError(util.ErrGraphNotFound, "Graph '%v' not found", name)
	}

	delete(c.entries[owner], name)
	if len(c.entries[owner]) == 0 {
		delete(c.entries, owner)
	}

	c.lock.Unlock()

	c.updateMetrics(owner)

	LogInfo("Dropped graph ", name, " of ", owner)

	return e.Info(false), nil
}

/*
WriteNodeProperties writes node properties of a graph back to a sink. All
properties are checked before anything is written.
*/
func (c *Catalog) WriteNodeProperties(ctx context.Context, owner, name string, sink source.Sink,
	keys []string) (*WriteResult, error) {

	e, err := c.Get(owner, name)
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return nil, util.NewGraphError(util.ErrInvalidConfig, "No node properties given")
	}

	known := e.graph.NodePropertyKeys()

	for _, k := range keys {
		if stringutil.IndexOf(k, known) == -1 {
			return nil, util.NewGraphError(util.ErrUnknownProperty,
				"Node property '%v' not found in graph '%v'", k, name)
		}
	}

	return c.writer.WriteNodeProperties(ctx, e.graph, sink, keys)
}

/*
WriteRelationship writes all relationships of a relationship type back to a
sink. The relationship type and the optional property are checked before
anything is written.
*/
func (c *Catalog) WriteRelationship(ctx context.Context, owner, name string, sink source.Sink,
	relType string, property string) (*WriteResult, error) {

	e, err := c.Get(owner, name)
	if err != nil {
		return nil, err
	}

	p, ok := e.graph.Partition(relType)
	if !ok {
		return nil, util.NewGraphError(util.ErrUnknownRelationshipType,
			"Relationship type '%v' not found in graph '%v'", relType, name)
	}

	if property != "" && p.PropertyIndex(property) == -1 {
		return nil, util.NewGraphError(util.ErrUnknownProperty,
			"Relationship property '%v' not found for relationship type '%v' in graph '%v'",
			property, relType, name)
	}

	return c.writer.WriteRelationships(ctx, e.graph, sink, p, relType, property)
}

/*
ToUndirected adds an undirected copy of a relationship type to a graph.
Parallel relationships are combined with a given aggregation.
*/
func (c *Catalog) ToUndirected(ctx context.Context, owner, name string, relType string,
	newType string, agg topology.Aggregation) (*Info, error) {

	e, err := c.Get(owner, name)
	if err != nil {
		return nil, err
	}

	err = e.Mutate(func(g *graph.Graph) error {
		p, ok := g.Partition(relType)
		if !ok {
			return util.NewGraphError(util.ErrUnknownRelationshipType,
				"Relationship type '%v' not found in graph '%v'", relType, name)
		}

		if _, ok := g.Partition(newType); ok {
			return util.NewGraphError(util.ErrRelationshipTypeAlreadyExists,
				"Relationship type '%v' already exists", newType)
		}

		up, err := topology.ToUndirected(ctx, p, newType, agg)
		if err != nil {
			return err
		}

		return g.AddRelationshipType(newType, up)
	})

	if err != nil {
		return nil, err
	}

	c.updateMetrics(owner)

	return e.Info(false), nil
}

/*
updateMetrics updates the catalog metrics for an owner.
*/
func (c *Catalog) updateMetrics(owner string) {
	if c.collector == nil {
		return
	}

	var mem uint64
	var count int

	c.lock.RLock()
	for o, graphs := range c.entries {
		for _, e := range graphs {
			if e == nil {
				continue
			}
			mem += e.graph.MemoryUsage()
			if o == owner {
				count++
			}
		}
	}
	c.lock.RUnlock()

	c.collector.SetGraphs(owner, count)
	c.collector.SetMemory(mem)
}

/*
String returns a string representation of this catalog.
*/
func (c *Catalog) String() string {
	c.lock.RLock()
	defer c.lock.RUnlock()

	var count int
	for _, graphs := range c.entries {
		for _, e := range graphs {
			if e != nil {
				count++
			}
		}
	}

	return fmt.Sprintf("Catalog (%v owners, %v graphs)", len(c.entries), count)
}
