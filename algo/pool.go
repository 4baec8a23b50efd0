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

	"github.com/krotik/eliasgds/graph/util"
	"golang.org/x/sync/errgroup"
)

/*
Pool runs compute tasks over partitions of the node id space.
*/
type Pool struct {
	concurrency int
}

/*
NewPool creates a new pool with a given number of parallel tasks.
*/
func NewPool(concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{concurrency}
}

/*
Concurrency returns the number of parallel tasks of this pool.
*/
func (p *Pool) Concurrency() int {
	return p.concurrency
}

/*
Ranges splits [0, nodeCount) into at most concurrency ranges of equal size.
*/
func (p *Pool) Ranges(nodeCount uint64) [][2]uint64 {
	var ret [][2]uint64

	if nodeCount == 0 {
		return ret
	}

	size := (nodeCount + uint64(p.concurrency) - 1) / uint64(p.concurrency)

	for from := uint64(0); from < nodeCount; from += size {
		ret = append(ret, [2]uint64{from, min(from+size, nodeCount)})
	}

	return ret
}

/*
Run calls a function for every range of the node id space. The function is
called with the index of the range. Ranges are not started once the context
is done or a range failed.
*/
func (p *Pool) Run(ctx context.Context, nodeCount uint64,
	fn func(ctx context.Context, part int, from, to uint64) error) error {

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, r := range p.Ranges(nodeCount) {
		if gctx.Err() != nil {
			break
		}

		i, r := i, r

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i, r[0], r[1])
		})
	}

	err := g.Wait()

	if ctx.Err() != nil {
		return util.NewGraphError(util.ErrCancelled, ctx.Err().Error())
	}

	return err
}
