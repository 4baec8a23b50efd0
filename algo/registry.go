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
	"fmt"
	"sort"
	"strings"

	"github.com/krotik/common/errorutil"
	"github.com/krotik/eliasgds/estimate"
	"github.com/krotik/eliasgds/graph"
	"github.com/krotik/eliasgds/graph/util"
)

/*
Mode is the execution mode of an algorithm.
*/
type Mode int

/*
Known execution modes
*/
const (
	Stream Mode = iota // Results are returned as rows
	Write              // Results are written back to the source store
	Mutate             // Results are added to a cataloged graph
	Stats              // Only aggregate statistics are returned
)

/*
Modes is a list of all execution modes.
*/
var Modes = []Mode{Stream, Write, Mutate, Stats}

var modeNames = []string{"stream", "write", "mutate", "stats"}

/*
String returns the name of this mode.
*/
func (m Mode) String() string {
	if int(m) < len(modeNames) && m >= 0 {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

/*
ParseMode parses the name of an execution mode.
*/
func ParseMode(name string) (Mode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(n, name) {
			return Mode(i), nil
		}
	}
	return Stream, util.NewGraphError(util.ErrInvalidConfig, "Unknown execution mode: '%v'", name)
}

/*
Config is the parsed configuration of an algorithm call.
*/
type Config interface {

	/*
		Base returns the settings which all algorithms share.
	*/
	Base() *BaseConfig

	/*
		ToMap returns the effective configuration as a map.
	*/
	ToMap() map[string]interface{}
}

/*
Computation is the result of a compute step.
*/
type Computation interface {

	/*
		Stats returns aggregate statistics of the computation.
	*/
	Stats() map[string]interface{}
}

/*
NewConfigFunc reads the algorithm specific settings of a call. The shared
settings are already parsed.
*/
type NewConfigFunc func(r *ConfigReader, base *BaseConfig) (Config, error)

/*
ValidateFunc checks a configuration against the graph it will run on.
*/
type ValidateFunc func(cfg Config, v *graph.View) error

/*
ComputeFunc runs an algorithm.
*/
type ComputeFunc func(ctx context.Context, cfg Config, v *graph.View, pool *Pool) (Computation, error)

/*
DispatchFunc turns a computation into the result of a call.
*/
type DispatchFunc func(ctx context.Context, d *Dispatch) (*Result, error)

/*
EstimateFunc estimates the memory which an algorithm needs on top of its
graph.
*/
type EstimateFunc func(cfg Config, nodeCount, relCount uint64) *estimate.Estimation

/*
Procedure is an algorithm in a certain execution mode.
*/
type Procedure struct {
	Algorithm string        // Name of the algorithm
	Mode      Mode          // Execution mode
	NewConfig NewConfigFunc // Configuration parser
	Validate  ValidateFunc  // Configuration check against the graph
	Compute   ComputeFunc   // Algorithm
	Dispatch  DispatchFunc  // Result handling of the execution mode
	Estimate  EstimateFunc  // Memory estimation (optional)
}

/*
procKey is the lookup key of a procedure.
*/
type procKey struct {
	algorithm string
	mode      Mode
}

/*
Registry maps algorithm names and execution modes to procedures.
*/
type Registry struct {
	procs map[procKey]*Procedure
}

/*
NewRegistry creates a new empty registry.
*/
func NewRegistry() *Registry {
	return &Registry{make(map[procKey]*Procedure)}
}

/*
Register adds a procedure. Registering the same algorithm and mode twice is
a programming error.
*/
func (r *Registry) Register(p *Procedure) {
	key := procKey{p.Algorithm, p.Mode}

	_, ok := r.procs[key]
	errorutil.AssertTrue(!ok, fmt.Sprintf("Procedure %v (%v) registered twice", p.Algorithm, p.Mode))
	errorutil.AssertTrue(p.NewConfig != nil && p.Compute != nil && p.Dispatch != nil,
		fmt.Sprintf("Procedure %v (%v) is incomplete", p.Algorithm, p.Mode))

	r.procs[key] = p
}

/*
Lookup returns the procedure of an algorithm in a given execution mode.
*/
func (r *Registry) Lookup(algorithm string, mode Mode) (*Procedure, error) {
	if p, ok := r.procs[procKey{algorithm, mode}]; ok {
		return p, nil
	}
	return nil, util.NewGraphError(util.ErrInvalidConfig,
		"Unknown algorithm '%v' in %v mode", algorithm, mode)
}

/*
Algorithms returns the sorted names of all registered algorithms.
*/
func (r *Registry) Algorithms() []string {
	seen := make(map[string]bool)
	ret := make([]string, 0)

	for k := range r.procs {
		if !seen[k.algorithm] {
			seen[k.algorithm] = true
			ret = append(ret, k.algorithm)
		}
	}

	sort.Strings(ret)

	return ret
}
