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

import "log"

// Logging
// =======

/*
Logger is a function which processes log messages from the algorithm framework
*/
type Logger func(v ...interface{})

/*
LogInfo is called if an info message is logged in the algorithm framework
*/
var LogInfo = Logger(log.Print)

/*
LogDebug is called if a debug message is logged in the algorithm framework
(by default disabled)
*/
var LogDebug = Logger(LogNull)

/*
LogNull is a discarding logger to be used for disabling loggers
*/
var LogNull = func(v ...interface{}) {
}
