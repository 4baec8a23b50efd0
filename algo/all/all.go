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
Package all registers all known algorithms.
*/
package all

import (
	"github.com/krotik/eliasgds/algo"
	"github.com/krotik/eliasgds/algo/degree"
	"github.com/krotik/eliasgds/algo/pagerank"
	"github.com/krotik/eliasgds/algo/wcc"
)

/*
NewRegistry creates a registry which contains all known algorithms.
*/
func NewRegistry() *algo.Registry {
	r := algo.NewRegistry()

	degree.Register(r)
	pagerank.Register(r)
	wcc.Register(r)

	return r
}
