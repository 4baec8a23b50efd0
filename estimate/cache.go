/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package estimate

import (
	"fmt"

	"github.com/krotik/common/datautil"
	"github.com/krotik/eliasgds/graph"
)

/*
DefaultCacheSize is the default number of estimations kept in a cache.
*/
const DefaultCacheSize = 1000

/*
Cache stores estimations for a combination of projection spec and counts.
Estimations are immutable once computed so they can be shared.
*/
type Cache struct {
	cache *datautil.MapCache
}

/*
NewCache creates a new estimation cache. Entries never expire.
*/
func NewCache(size uint64) *Cache {
	return &Cache{datautil.NewMapCache(size, 0)}
}

/*
Projection returns the memory estimation of a projection. Estimations are
computed only once for the same input.
*/
func (c *Cache) Projection(spec *graph.ProjectionSpec, nodeCount, relCount uint64) (*Estimation, error) {
	key := fmt.Sprintf("%v#%v#%v", spec, nodeCount, relCount)

	if e, ok := c.cache.Get(key); ok {
		return e.(*Estimation), nil
	}

	e, err := Projection(spec, nodeCount, relCount)
	if err == nil {
		c.cache.Put(key, e)
	}

	return e, err
}
