/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package algo

import (
	"context"
	"time"

	"github.com/krotik/eliasgds/catalog"
	"github.com/krotik/eliasgds/graph"
	"github.com/krotik/eliasgds/graph/column"
	"github.com/krotik/eliasgds/graph/source"
	"github.com/krotik/eliasgds/graph/util"
)

/*
Dispatch holds everything which is needed to turn a computation into the
result of a call.
*/
type Dispatch struct {
	Algorithm   string          // Name of the algorithm
	Config      Config          // Configuration of the call
	View        *graph.View     // View which the algorithm ran on
	Entry       *catalog.Entry  // Catalog entry of the graph (nil for anonymous graphs)
	Sink        source.Sink     // Sink for write mode (nil if the source cannot be written to)
	Writer      *catalog.Writer // Writer for write mode
	Computation Computation     // Result of the computation
	Summary     *Summary        // Summary with timings of the previous steps
}

/*
PostProcess computes the statistics of the computation and stores them in the
summary.
*/
func (d *Dispatch) PostProcess() {
	start := time.Now()
	d.Summary.Stats = d.Computation.Stats()
	d.Summary.PostProcessingMillis = time.Since(start).Milliseconds()
}

/*
NodeValues is a computation which produces one value per node.
*/
type NodeValues interface {
	Computation

	/*
		Values returns the result values. Nodes which are not part of the view
		have the missing value placeholder of the column type.
	*/
	Values() column.Column
}

/*
NodePropertyDispatch returns the dispatch function of a given execution mode
for algorithms which produce node values. Stream rows contain the source id
of a node as nodeId and its value under the given key.
*/
func NodePropertyDispatch(mode Mode, key string) DispatchFunc {
	switch mode {
	case Stream:
		return func(ctx context.Context, d *Dispatch) (*Result, error) {
			return &Result{Rows: newNodeRows(d.View, d.Computation.(NodeValues).Values(), key)}, nil
		}

	case Write:
		return writeNodeValues

	case Mutate:
		return mutateNodeValues
	}

	return func(ctx context.Context, d *Dispatch) (*Result, error) {
		d.PostProcess()
		return &Result{Summary: d.Summary}, nil
	}
}

/*
writeNodeValues writes the result values of all nodes of the view to the sink.
*/
func writeNodeValues(ctx context.Context, d *Dispatch) (*Result, error) {
	base := d.Config.Base()
	values := d.Computation.(NodeValues).Values()

	res, err := d.Writer.WriteColumn(ctx, d.View.Graph(), d.Sink, base.WriteProperty,
		values, d.View.Include)

	if err != nil {
		return nil, err
	}

	d.Summary.NodePropertiesWritten = res.NodePropertiesWritten
	d.Summary.WriteMillis = res.WriteMillis

	d.PostProcess()

	return &Result{Summary: d.Summary}, nil
}

/*
mutateNodeValues adds the result values as a new node property to the graph of
the catalog entry. Nothing is added if the context is done.
*/
func mutateNodeValues(ctx context.Context, d *Dispatch) (*Result, error) {
	base := d.Config.Base()
	values := d.Computation.(NodeValues).Values()

	start := time.Now()

	err := d.Entry.Mutate(func(g *graph.Graph) error {
		if err := ctx.Err(); err != nil {
			return util.NewGraphError(util.ErrCancelled, err.Error())
		}
		return g.AddNodeProperty(base.MutateProperty, values)
	})

	if err != nil {
		return nil, err
	}

	d.Summary.NodePropertiesWritten = d.View.IncludedCount()
	d.Summary.WriteMillis = time.Since(start).Milliseconds()

	d.PostProcess()

	return &Result{Summary: d.Summary}, nil
}

/*
nodeRows iterates over the result values of all nodes of a view.
*/
type nodeRows struct {
	view   *graph.View   // View which the algorithm ran on
	values column.Column // Result values
	key    string        // Row key of the value
	next   uint64        // Next included node
}

func newNodeRows(view *graph.View, values column.Column, key string) *nodeRows {
	r := &nodeRows{view, values, key, 0}
	r.skip()
	return r
}

func (r *nodeRows) skip() {
	for r.next < r.view.NodeCount() && !r.view.Include(r.next) {
		r.next++
	}
}

/*
HasNext checks if there is another row.
*/
func (r *nodeRows) HasNext() bool {
	return r.next < r.view.NodeCount()
}

/*
Next returns the next row.
*/
func (r *nodeRows) Next() Row {
	node := r.next

	r.next++
	r.skip()

	return Row{
		"nodeId": r.view.Graph().SourceID(node),
		r.key:    r.values.Value(node),
	}
}
