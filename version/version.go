/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package version

/*
VERSION is the version of EliasDB GDS
*/
const VERSION = "0.9"

/*
REV is the revision of EliasDB GDS
*/
const REV = "0"
