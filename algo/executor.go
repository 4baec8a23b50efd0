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
Package algo contains the algorithm execution framework.

Algorithms are registered per execution mode in a Registry. The Executor runs
a call through a fixed sequence of states:

	RESOLVE_SOURCE -> LOOKUP_CATALOG | BUILD_ANONYMOUS -> VALIDATE_CONFIG -> COMPUTE -> DISPATCH_RESULT -> DONE

The configuration of a call is parsed while the source is resolved. Unknown or
malformed keys are reported before any storage is accessed. Graph specific
checks (e.g. a referenced property must exist) are done in VALIDATE_CONFIG
before any computation starts.

Modes

Stream mode returns lazy result rows. Write mode writes the results back to
the source store. Mutate mode adds the results as a new node property to a
cataloged graph. Stats mode only returns aggregate statistics. A cancelled
call never changes the catalog.
*/
package algo

import (
	"context"
	"fmt"
	"time"

	"github.com/krotik/eliasgds/catalog"
	"github.com/krotik/eliasgds/estimate"
	"github.com/krotik/eliasgds/graph"
	"github.com/krotik/eliasgds/graph/source"
	"github.com/krotik/eliasgds/graph/util"
	"github.com/krotik/eliasgds/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("eliasgds.algo")

/*
Request is a single algorithm call.
*/
type Request struct {
	Owner     string                 // Owner of the cataloged graph
	GraphName string                 // Name of the cataloged graph (empty for anonymous graphs)
	Algorithm string                 // Name of the algorithm
	Mode      Mode                   // Execution mode
	Config    map[string]interface{} // Configuration of the call
	Source    source.Source          // Source store for anonymous graphs and write mode
}

/*
String returns a string representation of this request.
*/
func (r *Request) String() string {
	name := r.GraphName
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("%v (%v) on %v of %v", r.Algorithm, r.Mode, name, r.Owner)
}

/*
Executor runs algorithm calls.
*/
type Executor struct {
	registry  *Registry          // Known procedures
	catalog   *catalog.Catalog   // Catalog for named graphs and projection builds
	collector *metrics.Collector // Metrics collector (may be nil)
	limits    Limits             // Concurrency limits
	batchSize uint64             // Batch size of write mode calls
}

/*
Option is an option of an executor.
*/
type Option func(e *Executor)

/*
WithCollector sets the metrics collector of an executor.
*/
func WithCollector(collector *metrics.Collector) Option {
	return func(e *Executor) {
		e.collector = collector
	}
}

/*
WithLimits sets the concurrency limits of an executor.
*/
func WithLimits(limits Limits) Option {
	return func(e *Executor) {
		e.limits = limits
	}
}

/*
WithWriteBatchSize sets the number of node ids per write task.
*/
func WithWriteBatchSize(size uint64) Option {
	return func(e *Executor) {
		e.batchSize = size
	}
}

/*
NewExecutor creates a new executor.
*/
func NewExecutor(registry *Registry, cat *catalog.Catalog, opts ...Option) *Executor {
	e := &Executor{
		registry:  registry,
		catalog:   cat,
		limits:    DefaultLimits(),
		batchSize: catalog.DefaultWriteBatchSize,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

/*
Registry returns the procedure registry of this executor.
*/
func (e *Executor) Registry() *Registry {
	return e.registry
}

// States
// ======

type state int

const (
	stateResolveSource state = iota
	stateLookupCatalog
	stateBuildAnonymous
	stateValidateConfig
	stateCompute
	stateDispatchResult
	stateDone
)

var stateNames = []string{"RESOLVE_SOURCE", "LOOKUP_CATALOG", "BUILD_ANONYMOUS",
	"VALIDATE_CONFIG", "COMPUTE", "DISPATCH_RESULT", "DONE"}

func (s state) String() string {
	return stateNames[s]
}

/*
call is the state of a running algorithm call.
*/
type call struct {
	req     *Request       // Request of the call
	proc    *Procedure     // Resolved procedure
	cfg     Config         // Parsed configuration
	sink    source.Sink    // Sink for write mode
	entry   *catalog.Entry // Catalog entry (nil for anonymous graphs)
	graph   *graph.Graph   // Graph of the call
	view    *graph.View    // View on the graph
	comp    Computation    // Result of the computation
	compute time.Duration  // Duration of the computation
	summary *Summary       // Summary of the call
	result  *Result        // Result of the call
}

/*
Run runs an algorithm call.
*/
func (e *Executor) Run(ctx context.Context, req *Request) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "algo.Run", trace.WithAttributes(
		attribute.String("algo.name", req.Algorithm),
		attribute.String("algo.mode", req.Mode.String()),
		attribute.String("graph.owner", req.Owner),
		attribute.String("graph.name", req.GraphName)))
	defer span.End()

	c := &call{req: req, summary: &Summary{}}

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = util.NewGraphError(util.ErrInternal, "Algorithm '%v' failed: %v", req.Algorithm, r)
		}

		e.collector.AlgorithmFinished(ctx, req.Algorithm, req.Mode.String(), c.compute, err)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}()

	for st := stateResolveSource; err == nil; {
		LogDebug("Algorithm ", req, ": ", st)

		if st == stateDone {
			return c.result, nil
		}

		st, err = e.step(ctx, c, st)
	}

	LogDebug("Algorithm ", req, " failed: ", err)

	return nil, err
}

/*
step runs a single state of a call and returns the next state.
*/
func (e *Executor) step(ctx context.Context, c *call, st state) (state, error) {
	switch st {
	case stateResolveSource:
		return e.resolveSource(c)

	case stateLookupCatalog:
		entry, err := e.catalog.Get(c.req.Owner, c.req.GraphName)
		if err != nil {
			return st, err
		}

		c.entry = entry
		c.graph = entry.Graph()

		return stateValidateConfig, nil

	case stateBuildAnonymous:
		start := time.Now()

		g, err := e.catalog.Build(ctx, "anonymous", c.req.Source, c.cfg.Base().Projection)
		if err != nil {
			return st, err
		}

		c.graph = g
		c.summary.CreateMillis = time.Since(start).Milliseconds()

		return stateValidateConfig, nil

	case stateValidateConfig:
		return stateCompute, e.validate(c)

	case stateCompute:
		return stateDispatchResult, e.compute(ctx, c)

	case stateDispatchResult:
		return stateDone, e.dispatch(ctx, c)
	}

	return stateDone, nil
}

/*
resolveSource finds the procedure of a call and parses its configuration.
*/
func (e *Executor) resolveSource(c *call) (state, error) {
	var err error

	req := c.req
	anonymous := req.GraphName == ""

	if c.proc, err = e.registry.Lookup(req.Algorithm, req.Mode); err != nil {
		return stateResolveSource, err
	}

	if c.cfg, err = e.parseConfig(c.proc, req, anonymous); err != nil {
		return stateResolveSource, err
	}

	if anonymous && req.Mode == Mutate {
		return stateResolveSource, util.NewGraphError(util.ErrInvalidConfig,
			"Mutate mode requires a cataloged graph")
	}

	if anonymous && req.Source == nil {
		return stateResolveSource, util.NewGraphError(util.ErrInvalidConfig,
			"Anonymous graphs require a source store")
	}

	if req.Mode == Write {
		sink, ok := req.Source.(source.Sink)
		if !ok {
			return stateResolveSource, util.NewGraphError(util.ErrInvalidConfig,
				"Write mode requires a writable source store")
		}
		c.sink = sink
	}

	if anonymous {
		return stateBuildAnonymous, nil
	}

	return stateLookupCatalog, nil
}

/*
parseConfig parses the configuration of a call.
*/
func (e *Executor) parseConfig(proc *Procedure, req *Request, anonymous bool) (Config, error) {
	r := NewConfigReader(req.Config)

	base, err := NewBaseConfig(r, req.Mode, e.limits, anonymous)
	if err != nil {
		return nil, err
	}

	cfg, err := proc.NewConfig(r, base)
	if err == nil {
		err = r.Finish()
	}

	return cfg, err
}

/*
validate checks the configuration of a call against its graph.
*/
func (e *Executor) validate(c *call) error {
	var err error

	base := c.cfg.Base()

	if c.view, err = graph.NewView(c.graph, base.NodeLabels, base.RelationshipTypes); err != nil {
		return err
	}

	if c.proc.Validate != nil {
		if err = c.proc.Validate(c.cfg, c.view); err != nil {
			return err
		}
	}

	if c.req.Mode == Mutate {
		if _, ok := c.graph.NodeProperty(base.MutateProperty); ok {
			return util.NewGraphError(util.ErrPropertyAlreadyExists,
				"Node property '%v' already exists in graph '%v'", base.MutateProperty, c.req.GraphName)
		}
	}

	c.summary.Configuration = c.cfg.ToMap()

	return nil
}

/*
compute runs the algorithm of a call.
*/
func (e *Executor) compute(ctx context.Context, c *call) error {
	if err := checkCancelled(ctx, c.req); err != nil {
		return err
	}

	start := time.Now()

	comp, err := c.proc.Compute(ctx, c.cfg, c.view, NewPool(c.cfg.Base().Concurrency))

	c.compute = time.Since(start)
	c.summary.ComputeMillis = c.compute.Milliseconds()

	if err == nil {
		c.comp = comp
		err = checkCancelled(ctx, c.req)
	}

	return err
}

/*
dispatch turns the computation of a call into its result.
*/
func (e *Executor) dispatch(ctx context.Context, c *call) error {
	if err := checkCancelled(ctx, c.req); err != nil {
		return err
	}

	d := &Dispatch{
		Algorithm:   c.req.Algorithm,
		Config:      c.cfg,
		View:        c.view,
		Entry:       c.entry,
		Sink:        c.sink,
		Computation: c.comp,
		Summary:     c.summary,
	}

	if c.req.Mode == Write {
		d.Writer = catalog.NewWriter(c.cfg.Base().WriteConcurrency, e.batchSize)
		defer d.Writer.Close()
	}

	res, err := c.proc.Dispatch(ctx, d)
	if err == nil {
		c.result = res
	}

	return err
}

func checkCancelled(ctx context.Context, req *Request) error {
	if err := ctx.Err(); err != nil {
		return util.NewGraphError(util.ErrCancelled, "Algorithm '%v' was cancelled: %v",
			req.Algorithm, err)
	}
	return nil
}

/*
Estimate estimates the memory of an algorithm call. For anonymous graphs the
estimation includes the projection. The source of an anonymous graph must be
able to count its nodes and relationships.
*/
func (e *Executor) Estimate(ctx context.Context, req *Request) (*estimate.Estimation, error) {
	var nodeCount, relCount uint64
	var components []*estimate.Estimation

	anonymous := req.GraphName == ""

	proc, err := e.registry.Lookup(req.Algorithm, req.Mode)
	if err != nil {
		return nil, err
	}

	cfg, err := e.parseConfig(proc, req, anonymous)
	if err != nil {
		return nil, err
	}

	if anonymous {
		spec := cfg.Base().Projection

		counter, ok := req.Source.(source.Counter)
		if !ok {
			return nil, util.NewGraphError(util.ErrInvalidConfig,
				"Estimation of anonymous graphs requires a source store which can count")
		}

		graphEst, err := e.catalog.Estimate(ctx, req.Source, spec)
		if err == nil {
			if nodeCount, err = counter.NodeCount(ctx, spec.Labels()); err == nil {
				relCount, err = counter.RelationshipCount(ctx, spec.Types())
			}
		}

		if err != nil {
			return nil, err
		}

		components = append(components, graphEst)

	} else {
		entry, err := e.catalog.Get(req.Owner, req.GraphName)
		if err != nil {
			return nil, err
		}

		nodeCount = entry.Graph().NodeCount()
		relCount = entry.Graph().RelationshipCount()
	}

	if proc.Estimate != nil {
		components = append(components, proc.Estimate(cfg, nodeCount, relCount))
	}

	return estimate.New(req.Algorithm, components...), nil
}

/*
EstimateCounts estimates the memory of an algorithm call on an anonymous graph
with a given number of nodes and relationships. No source store is accessed.
*/
func (e *Executor) EstimateCounts(req *Request, nodeCount, relCount uint64) (*estimate.Estimation, error) {
	proc, err := e.registry.Lookup(req.Algorithm, req.Mode)
	if err != nil {
		return nil, err
	}

	cfg, err := e.parseConfig(proc, req, true)
	if err != nil {
		return nil, err
	}

	graphEst, err := estimate.Projection(cfg.Base().Projection, nodeCount, relCount)
	if err != nil {
		return nil, err
	}

	components := []*estimate.Estimation{graphEst}

	if proc.Estimate != nil {
		components = append(components, proc.Estimate(cfg, nodeCount, relCount))
	}

	return estimate.New(req.Algorithm, components...), nil
}
