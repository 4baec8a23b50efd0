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
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/krotik/common/errorutil"
	"github.com/krotik/common/pools"
	"github.com/krotik/eliasgds/graph"
	"github.com/krotik/eliasgds/graph/column"
	"github.com/krotik/eliasgds/graph/source"
	"github.com/krotik/eliasgds/graph/topology"
	"github.com/krotik/eliasgds/graph/util"
)

/*
Default settings of a writer
*/
const (
	DefaultWriteConcurrency = 4
	DefaultWriteBatchSize   = 10000
)

/*
cancelCheckInterval is the number of writes between cancellation checks
*/
const cancelCheckInterval = 1 << 10

/*
WriteResult is the result of a write-back operation.
*/
type WriteResult struct {
	NodePropertiesWritten uint64 // Number of written node property values
	RelationshipsWritten  uint64 // Number of written relationships
	WriteMillis           int64  // Duration of the write in milliseconds
}

/*
Writer writes graph data back to a source store. Writes are split into
batches of node ids which are processed by a thread pool.
*/
type Writer struct {
	pool      *pools.ThreadPool // Thread pool which processes write batches
	batchSize uint64            // Number of node ids per batch
}

/*
NewWriter creates a new writer with a given number of workers.
*/
func NewWriter(workers int, batchSize uint64) *Writer {
	if workers < 1 {
		workers = 1
	}
	if batchSize < 1 {
		batchSize = DefaultWriteBatchSize
	}

	pool := pools.NewThreadPool()
	pool.SetWorkerCount(workers, false)

	return &Writer{pool, batchSize}
}

/*
Close stops all workers of this writer after all pending batches are written.
*/
func (w *Writer) Close() {
	w.pool.JoinAll()
}

/*
WriteNodeProperties writes node property columns back to a sink. Values
which are missing in a column are not written.
*/
func (w *Writer) WriteNodeProperties(ctx context.Context, g *graph.Graph, sink source.Sink,
	keys []string) (*WriteResult, error) {

	cols := make([]column.Column, len(keys))

	for i, k := range keys {
		col, ok := g.NodeProperty(k)
		if !ok {
			return nil, util.NewGraphError(util.ErrUnknownProperty,
				"Node property '%v' not found", k)
		}
		cols[i] = col
	}

	return w.writeColumns(ctx, g, sink, keys, cols, nil)
}

/*
WriteColumn writes a column which is not part of a graph back to a sink. The
column must have a value for every node of the graph. An optional include
function restricts the nodes which are written.
*/
func (w *Writer) WriteColumn(ctx context.Context, g *graph.Graph, sink source.Sink, key string,
	col column.Column, include func(node uint64) bool) (*WriteResult, error) {

	if col.Size() != g.NodeCount() {
		return nil, util.NewGraphError(util.ErrInternal,
			"Column '%v' has %v values but graph has %v nodes", key, col.Size(), g.NodeCount())
	}

	return w.writeColumns(ctx, g, sink, []string{key}, []column.Column{col}, include)
}

func (w *Writer) writeColumns(ctx context.Context, g *graph.Graph, sink source.Sink, keys []string,
	cols []column.Column, include func(node uint64) bool) (*WriteResult, error) {

	var written atomic.Uint64

	start := time.Now()

	err := w.run(ctx, g.NodeCount(), func(ctx context.Context, from, to uint64) error {
		for node := from; node < to; node++ {
			if (node-from)%cancelCheckInterval == 0 && ctx.Err() != nil {
				return util.NewGraphError(util.ErrCancelled, "Write-back was cancelled")
			}

			if include != nil && !include(node) {
				continue
			}

			for i, col := range cols {
				value, ok := writeValue(col, node)
				if !ok {
					continue
				}

				if err := sink.WriteNodeProperty(ctx, g.SourceID(node), keys[i], value); err != nil {
					return err
				}

				written.Add(1)
			}
		}
		return nil
	})

	return &WriteResult{
		NodePropertiesWritten: written.Load(),
		WriteMillis:           time.Since(start).Milliseconds(),
	}, err
}

/*
writeValue returns the value of a node which should be written back. Values
are not written if they are the builtin placeholder for a missing value.
*/
func writeValue(col column.Column, node uint64) (interface{}, bool) {
	value := col.Value(node)

	switch v := value.(type) {
	case int64:
		return v, v != column.DefaultLong
	case float64:
		return v, !math.IsNaN(v)
	}

	return value, true
}

/*
WriteRelationships writes all relationships of a partition back to a sink. An
optional relationship property is written with each relationship. Undirected
relationships are written once.
*/
func (w *Writer) WriteRelationships(ctx context.Context, g *graph.Graph, sink source.Sink,
	p *topology.Partition, relType string, property string) (*WriteResult, error) {

	propIndex := -1

	if property != "" {
		if propIndex = p.PropertyIndex(property); propIndex == -1 {
			return nil, util.NewGraphError(util.ErrUnknownProperty,
				"Relationship property '%v' not found", property)
		}
	}

	undirected := p.Orientation() == topology.Undirected

	var written atomic.Uint64

	start := time.Now()

	err := w.run(ctx, g.NodeCount(), func(ctx context.Context, from, to uint64) error {
		var err error

		for node := from; node < to && err == nil; node++ {
			if (node-from)%cancelCheckInterval == 0 && ctx.Err() != nil {
				return util.NewGraphError(util.ErrCancelled, "Write-back was cancelled")
			}

			p.ForEachRelationship(node, func(target uint64, relIndex uint64) bool {
				if undirected && target < node {
					return true
				}

				var props map[string]interface{}
				if propIndex != -1 {
					props = map[string]interface{}{property: p.PropertyValue(propIndex, relIndex)}
				}

				if err = sink.WriteRelationship(ctx, g.SourceID(node), g.SourceID(target), relType, props); err != nil {
					return false
				}

				written.Add(1)

				return true
			})
		}

		return err
	})

	return &WriteResult{
		RelationshipsWritten: written.Load(),
		WriteMillis:          time.Since(start).Milliseconds(),
	}, err
}

/*
run splits a node id range into batches and processes them with the thread
pool. All errors of all batches are collected.
*/
func (w *Writer) run(ctx context.Context, nodeCount uint64,
	f func(ctx context.Context, from, to uint64) error) error {

	job := &writeJob{errors: errorutil.NewCompositeError()}

	for from := uint64(0); from < nodeCount; from += w.batchSize {
		to := from + w.batchSize
		if to > nodeCount {
			to = nodeCount
		}

		job.wg.Add(1)
		w.pool.AddTask(&writeTask{job, ctx, from, to, f})
	}

	job.wg.Wait()

	return job.result(ctx)
}

/*
writeJob tracks the batches of a single write-back call.
*/
type writeJob struct {
	wg        sync.WaitGroup            // Wait group for all batches
	lock      sync.Mutex                // Lock for error collection
	errors    *errorutil.CompositeError // Collected errors
	firstErr  error                     // First collected error
	cancelled bool                      // Flag if a batch was cancelled
}

/*
add adds an error of a batch.
*/
func (j *writeJob) add(err error) {
	j.lock.Lock()
	defer j.lock.Unlock()

	if errors.Is(err, util.ErrCancelled) {
		j.cancelled = true
		return
	}

	if j.firstErr == nil {
		j.firstErr = err
	}

	j.errors.Add(err)
}

/*
result returns the overall result of a write-back call.
*/
func (j *writeJob) result(ctx context.Context) error {
	j.lock.Lock()
	defer j.lock.Unlock()

	if j.cancelled || (ctx.Err() != nil && j.errors.HasErrors()) {
		return util.NewGraphError(util.ErrCancelled, "Write-back was cancelled")
	}

	if len(j.errors.Errors) == 1 {
		return j.firstErr
	} else if j.errors.HasErrors() {
		return util.NewGraphError(util.ErrSourceAccess, "Write-back failed: %v", j.errors)
	}

	return nil
}

/*
writeTask is a single batch of a write-back call.
*/
type writeTask struct {
	job  *writeJob
	ctx  context.Context
	from uint64
	to   uint64
	f    func(ctx context.Context, from, to uint64) error
}

/*
Run writes the batch.
*/
func (t *writeTask) Run(tid uint64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = util.NewGraphError(util.ErrInternal, "Write-back of nodes %v to %v failed: %v",
				t.from, t.to, r)
		}
	}()

	if err = t.f(t.ctx, t.from, t.to); err == nil {
		t.job.wg.Done()
	}

	return err
}

/*
HandleError records an error of the batch.
*/
func (t *writeTask) HandleError(e error) {
	t.job.add(e)
	t.job.wg.Done()
}
