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
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/krotik/common/stringutil"
	"github.com/krotik/eliasgds/graph/column"
	"github.com/krotik/eliasgds/graph/source"
	"github.com/krotik/eliasgds/graph/topology"
	"github.com/krotik/eliasgds/graph/util"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

/*
BuildOptions are options for building a graph.
*/
type BuildOptions struct {
	Concurrency int    // Number of parallel column and partition builds
	SparseRatio uint64 // Ratio from which on columns are sparse (0 disables)
}

/*
DefaultBuildOptions returns the default build options.
*/
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{Concurrency: 4, SparseRatio: column.DefaultSparseRatio}
}

/*
Build builds a graph from a source store. The source is validated against the
spec before any data is read. A failed build leaves nothing behind.
*/
func Build(ctx context.Context, src source.Source, spec *ProjectionSpec, opts BuildOptions) (*Graph, error) {
	ctx, span := tracer.Start(ctx, "projection.Build",
		trace.WithAttributes(attribute.String("spec", spec.String())))
	defer span.End()

	g, err := build(ctx, src, spec, opts)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("node_count", int64(g.NodeCount())),
		attribute.Int64("relationship_count", int64(g.RelationshipCount())),
	)
	span.SetStatus(codes.Ok, "")

	return g, nil
}

func build(ctx context.Context, src source.Source, spec *ProjectionSpec, opts BuildOptions) (*Graph, error) {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	mappings, err := validate(ctx, src, spec)
	if err != nil {
		return nil, err
	}

	// Build the node id space

	var labelFilter []string
	if !spec.AllNodes() {
		labelFilter = spec.Labels()
	}

	var sourceIDs []uint64
	var nodeLabels [][]string

	err = src.IterateNodes(ctx, labelFilter, func(id uint64, labels []string) error {
		sourceIDs = append(sourceIDs, id)
		nodeLabels = append(nodeLabels, labels)
		return nil
	})

	if err != nil {
		return nil, err
	}

	n := uint64(len(sourceIDs))
	nodeIDs := make(map[uint64]uint64, n)
	labels := make(map[string][]uint64)

	for _, l := range spec.Labels() {
		labels[l] = make([]uint64, column.BitsetBytes(n)/8)
	}

	for i, sid := range sourceIDs {
		nodeIDs[sid] = uint64(i)

		for _, l := range nodeLabels[i] {
			if bits, ok := labels[l]; ok {
				bits[i/64] |= 1 << (uint64(i) % 64)
			}
		}
	}

	nodeLabels = nil

	if err = checkCancelled(ctx); err != nil {
		return nil, err
	}

	// Build node property columns

	props, err := buildColumns(ctx, src, mappings, sourceIDs, labels, opts)
	if err != nil {
		return nil, err
	}

	if err = checkCancelled(ctx); err != nil {
		return nil, err
	}

	// Route relationships into partition builders

	builders, err := stageRelationships(ctx, src, spec, nodeIDs, n)
	if err != nil {
		return nil, err
	}

	for _, pb := range builders {
		pb.SetSourceIDs(func(id uint64) uint64 { return sourceIDs[id] })
	}

	// Build partitions in parallel

	parts, err := buildPartitions(ctx, builders, opts)
	if err != nil {
		return nil, err
	}

	return newGraph(spec, sourceIDs, nodeIDs, labels, props, parts), nil
}

/*
validate checks labels, types and property keys of a spec against a source.
Returns the node property mappings of the spec.
*/
func validate(ctx context.Context, src source.Source, spec *ProjectionSpec) ([]*ScopedMapping, error) {
	mappings, err := spec.NodePropertyMappings()
	if err != nil {
		return nil, err
	}

	if missing, err := missingNames(ctx, spec.Labels(), src.Labels); err != nil {
		return nil, err
	} else if len(missing) > 0 {
		return nil, util.NewGraphError(util.ErrUnknownLabel,
			"Invalid node projection, one or more labels not found: '%v'", strings.Join(missing, "', '"))
	}

	if missing, err := missingNames(ctx, spec.Types(), src.RelationshipTypes); err != nil {
		return nil, err
	} else if len(missing) > 0 {
		return nil, util.NewGraphError(util.ErrUnknownRelationshipType,
			"Invalid relationship projection, one or more relationship types not found: '%v'",
			strings.Join(missing, "', '"))
	}

	nodeKeys, err := src.NodePropertyKeys(ctx)
	if err != nil {
		return nil, err
	}

	for _, m := range mappings {
		if !m.HasDefault && stringutil.IndexOf(m.Property, nodeKeys) == -1 {
			return nil, util.NewGraphError(util.ErrMissingProperty,
				"Node property '%v' not found", m.Property)
		}
	}

	relKeys, err := src.RelationshipPropertyKeys(ctx)
	if err != nil {
		return nil, err
	}

	for i := range spec.Relationships {
		for _, m := range spec.RelationshipPropertyMappings(&spec.Relationships[i]) {
			if !m.HasDefault && stringutil.IndexOf(m.Property, relKeys) == -1 {
				return nil, util.NewGraphError(util.ErrMissingProperty,
					"Relationship property '%v' not found", m.Property)
			}
		}
	}

	return mappings, nil
}

/*
missingNames returns all names which are not known to a source.
*/
func missingNames(ctx context.Context, names []string,
	known func(context.Context) ([]string, error)) ([]string, error) {

	if len(names) == 0 {
		return nil, nil
	}

	all, err := known(ctx)
	if err != nil {
		return nil, err
	}

	var ret []string

	for _, n := range names {
		if stringutil.IndexOf(n, all) == -1 {
			ret = append(ret, n)
		}
	}

	return ret, nil
}

/*
buildColumns builds all node property columns. Each column is read and built
by its own task.
*/
func buildColumns(ctx context.Context, src source.Source, mappings []*ScopedMapping,
	sourceIDs []uint64, labels map[string][]uint64, opts BuildOptions) (map[string]column.Column, error) {

	var lock sync.Mutex

	ret := make(map[string]column.Column, len(mappings))
	n := uint64(len(sourceIDs))

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Concurrency)

	for _, m := range mappings {
		m := m

		eg.Go(func() error {
			b := column.NewBuilder(m.Key, n, m.Type, m.DefaultValue)
			b.SetSparseRatio(opts.SparseRatio)

			for i := uint64(0); i < n; i++ {

				if i%cancelCheckInterval == 0 {
					if err := checkCancelled(ectx); err != nil {
						return err
					}
				}

				if !inScope(i, m.Labels, labels) {
					continue
				}

				val, ok, err := src.ReadNodeProperty(ectx, sourceIDs[i], m.Property)
				if err != nil {
					return err
				}

				if ok {
					if err := b.Set(i, val); err != nil {
						return err
					}
				}
			}

			col, err := b.Build()
			if err != nil {
				return err
			}

			lock.Lock()
			ret[m.Key] = col
			lock.Unlock()

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return ret, nil
}

/*
inScope checks if a node carries one of a given list of labels. An empty list
matches all nodes.
*/
func inScope(node uint64, scope []string, labels map[string][]uint64) bool {
	if len(scope) == 0 {
		return true
	}

	for _, l := range scope {
		if bits, ok := labels[l]; ok && bits[node/64]&(1<<(node%64)) != 0 {
			return true
		}
	}

	return false
}

/*
stagedSelector is a relationship selector with its partition builder.
*/
type stagedSelector struct {
	sel      *RelationshipSelector
	mappings []PropertyMapping
	defaults []float64
	builder  *topology.PartitionBuilder
}

/*
stageRelationships reads all relationships of a spec once and routes them
into partition builders.
*/
func stageRelationships(ctx context.Context, src source.Source, spec *ProjectionSpec,
	nodeIDs map[uint64]uint64, n uint64) (map[string]*topology.PartitionBuilder, error) {

	var staged []*stagedSelector

	builders := make(map[string]*topology.PartitionBuilder)

	for i := range spec.Relationships {
		sel := &spec.Relationships[i]

		if _, ok := builders[sel.Name]; ok {
			return nil, util.NewGraphError(util.ErrInvalidConfig,
				"Duplicate relationship projection '%v'", sel.Name)
		}

		agg, err := spec.PartitionAggregation(sel)
		if err != nil {
			return nil, err
		}

		mappings := spec.RelationshipPropertyMappings(sel)
		keys := make([]string, len(mappings))
		defaults := make([]float64, len(mappings))

		for j, m := range mappings {
			keys[j] = m.Key
			defaults[j] = math.NaN()

			if m.HasDefault {
				d, ok := column.ToFloat(m.DefaultValue)
				if !ok {
					return nil, util.NewGraphError(util.ErrInvalidConfig,
						"Default value of relationship property '%v' must be numeric: %v", m.Key, m.DefaultValue)
				}
				defaults[j] = d
			}
		}

		pb := topology.NewPartitionBuilder(sel.Name, n, sel.Orientation, agg, keys)
		builders[sel.Name] = pb
		staged = append(staged, &stagedSelector{sel, mappings, defaults, pb})
	}

	var typeFilter []string
	if !spec.AllTypes() {
		typeFilter = spec.Types()
	}

	err := src.IterateRelationships(ctx, typeFilter, func(rel *source.Relationship) error {
		s, ok1 := nodeIDs[rel.Start]
		t, ok2 := nodeIDs[rel.End]

		if !ok1 || !ok2 {
			return nil
		}

		for _, st := range staged {
			if st.sel.Type != AllTypes && st.sel.Type != rel.Type {
				continue
			}

			vals := make([]float64, len(st.mappings))

			for j, m := range st.mappings {
				vals[j] = st.defaults[j]

				if v, ok := rel.Properties[m.Property]; ok && v != nil {
					f, ok := column.ToFloat(v)
					if !ok {
						return util.NewGraphError(util.ErrInvalidConfig,
							"Relationship property '%v' has a non numeric value: %v", m.Property, v)
					}
					vals[j] = f
				}
			}

			st.builder.Add(s, t, vals)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return builders, nil
}

/*
buildPartitions builds all partitions in parallel.
*/
func buildPartitions(ctx context.Context, builders map[string]*topology.PartitionBuilder,
	opts BuildOptions) (map[string]*topology.Partition, error) {

	var lock sync.Mutex

	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)

	ret := make(map[string]*topology.Partition, len(builders))

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Concurrency)

	for _, name := range names {
		name := name
		pb := builders[name]

		eg.Go(func() error {
			pctx, span := tracer.Start(ectx, "projection.BuildPartition",
				trace.WithAttributes(
					attribute.String("partition", name),
					attribute.Int64("staged", int64(pb.Staged())),
				))
			defer span.End()

			p, err := pb.Build(pctx)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}

			lock.Lock()
			ret[name] = p
			lock.Unlock()

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return ret, nil
}

/*
checkCancelled returns a cancellation error if the given context is done.
*/
func checkCancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return &util.GraphError{Type: util.ErrCancelled, Detail: ctx.Err().Error()}
	}
	return nil
}

