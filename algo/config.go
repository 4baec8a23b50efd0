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
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/krotik/common/stringutil"
	"github.com/krotik/eliasgds/graph"
	"github.com/krotik/eliasgds/graph/util"
)

/*
Configuration keys which are shared by all algorithms
*/
const (
	KeyConcurrency            = "concurrency"
	KeyNodeLabels             = "nodeLabels"
	KeyRelationshipTypes      = "relationshipTypes"
	KeyWriteProperty          = "writeProperty"
	KeyMutateProperty         = "mutateProperty"
	KeyWriteConcurrency       = "writeConcurrency"
	KeyNodeProjection         = "nodeProjection"
	KeyRelationshipProjection = "relationshipProjection"
	KeyNodeProperties         = "nodeProperties"
	KeyRelationshipProperties = "relationshipProperties"
)

/*
projectionKeys are the keys of an anonymous projection
*/
var projectionKeys = []string{KeyNodeProjection, KeyRelationshipProjection,
	KeyNodeProperties, KeyRelationshipProperties}

/*
ConfigReader reads typed values from a configuration map. Every read key is
recorded so that unknown keys can be reported. The first type error is kept
and returned by Finish.
*/
type ConfigReader struct {
	values map[string]interface{} // Configuration values
	used   map[string]bool        // Keys which were read
	err    error                  // First error
}

/*
NewConfigReader creates a new reader for a configuration map.
*/
func NewConfigReader(values map[string]interface{}) *ConfigReader {
	if values == nil {
		values = make(map[string]interface{})
	}
	return &ConfigReader{values, make(map[string]bool), nil}
}

/*
Has checks if a key is set.
*/
func (r *ConfigReader) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

/*
Value returns the raw value of a key.
*/
func (r *ConfigReader) Value(key string) (interface{}, bool) {
	r.used[key] = true
	v, ok := r.values[key]
	return v, ok
}

/*
Fail records an error if no error was recorded yet.
*/
func (r *ConfigReader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *ConfigReader) typeError(key string, expected string, v interface{}) {
	r.Fail(util.NewGraphError(util.ErrInvalidConfig,
		"Configuration key '%v' must be %v but is: %v", key, expected, v))
}

/*
String reads a string value.
*/
func (r *ConfigReader) String(key string, def string) string {
	v, ok := r.Value(key)
	if !ok || v == nil {
		return def
	}

	if s, ok := v.(string); ok {
		return s
	}

	r.typeError(key, "a string", v)

	return def
}

/*
Int reads an integer value. Floating point values are accepted if they have
no fraction.
*/
func (r *ConfigReader) Int(key string, def int64) int64 {
	v, ok := r.Value(key)
	if !ok || v == nil {
		return def
	}

	switch i := v.(type) {
	case int:
		return int64(i)
	case int32:
		return int64(i)
	case int64:
		return i
	case uint64:
		if i <= math.MaxInt64 {
			return int64(i)
		}
	case float64:
		if i == math.Trunc(i) && math.Abs(i) < 1<<63 {
			return int64(i)
		}
	}

	r.typeError(key, "an integer", v)

	return def
}

/*
Float reads a floating point value. Integer values are accepted.
*/
func (r *ConfigReader) Float(key string, def float64) float64 {
	v, ok := r.Value(key)
	if !ok || v == nil {
		return def
	}

	switch f := v.(type) {
	case float64:
		return f
	case float32:
		return float64(f)
	case int:
		return float64(f)
	case int64:
		return float64(f)
	}

	r.typeError(key, "a number", v)

	return def
}

/*
Bool reads a boolean value.
*/
func (r *ConfigReader) Bool(key string, def bool) bool {
	v, ok := r.Value(key)
	if !ok || v == nil {
		return def
	}

	if b, ok := v.(bool); ok {
		return b
	}

	r.typeError(key, "a boolean", v)

	return def
}

/*
StringList reads a list of strings. A single string is a list with one
element.
*/
func (r *ConfigReader) StringList(key string) []string {
	v, ok := r.Value(key)
	if !ok || v == nil {
		return nil
	}

	switch l := v.(type) {
	case string:
		return []string{l}
	case []string:
		return l
	case []interface{}:
		ret := make([]string, 0, len(l))
		for _, i := range l {
			s, ok := i.(string)
			if !ok {
				r.typeError(key, "a list of strings", v)
				return nil
			}
			ret = append(ret, s)
		}
		return ret
	}

	r.typeError(key, "a list of strings", v)

	return nil
}

/*
Finish returns the first recorded error. If there was no error then all keys
which were never read are reported.
*/
func (r *ConfigReader) Finish() error {
	if r.err != nil {
		return r.err
	}

	var unknown []string

	for k := range r.values {
		if !r.used[k] {
			unknown = append(unknown, k)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return util.NewGraphError(util.ErrUnknownConfigKey, strings.Join(unknown, ", "))
	}

	return nil
}

/*
Limits are the concurrency limits of algorithm calls.
*/
type Limits struct {
	DefaultConcurrency int // Concurrency if a call does not set one
	MaxConcurrency     int // Highest accepted concurrency
}

/*
DefaultLimits returns the default concurrency limits.
*/
func DefaultLimits() Limits {
	return Limits{DefaultConcurrency: 4, MaxConcurrency: 64}
}

/*
BaseConfig contains the settings which all algorithms share.
*/
type BaseConfig struct {
	Mode              Mode                  // Execution mode
	Concurrency       int                   // Number of parallel compute tasks
	NodeLabels        []string              // Node label filter
	RelationshipTypes []string              // Relationship type filter
	WriteProperty     string                // Property which is written in write mode
	MutateProperty    string                // Property which is added in mutate mode
	WriteConcurrency  int                   // Number of parallel write tasks
	Projection        *graph.ProjectionSpec // Projection of an anonymous graph
}

/*
NewBaseConfig reads the shared settings of a call. Projection keys are only
allowed for anonymous graphs where they are required.
*/
func NewBaseConfig(r *ConfigReader, mode Mode, limits Limits, anonymous bool) (*BaseConfig, error) {
	c := &BaseConfig{Mode: mode}

	c.Concurrency = int(r.Int(KeyConcurrency, int64(limits.DefaultConcurrency)))
	c.NodeLabels = r.StringList(KeyNodeLabels)
	c.RelationshipTypes = r.StringList(KeyRelationshipTypes)
	c.WriteConcurrency = int(r.Int(KeyWriteConcurrency, int64(c.Concurrency)))

	if mode == Write {
		c.WriteProperty = r.String(KeyWriteProperty, "")
	}
	if mode == Mutate {
		c.MutateProperty = r.String(KeyMutateProperty, "")
	}

	if anonymous {
		var values [4]interface{}

		for i, k := range projectionKeys {
			values[i], _ = r.Value(k)
		}

		if values[0] == nil || values[1] == nil {
			r.Fail(util.NewGraphError(util.ErrInvalidConfig,
				"Anonymous graphs require '%v' and '%v'", KeyNodeProjection, KeyRelationshipProjection))

		} else if spec, err := graph.ParseProjection(values[0], values[1], values[2], values[3]); err != nil {
			r.Fail(err)

		} else {
			c.Projection = spec
		}

	} else {
		for _, k := range projectionKeys {
			if r.Has(k) {
				r.Fail(util.NewGraphError(util.ErrInvalidConfig,
					"Configuration key '%v' is only allowed for anonymous graphs", k))
			}
		}
	}

	if r.err == nil {
		r.Fail(c.validate(limits))
	}

	return c, r.err
}

func (c *BaseConfig) validate(limits Limits) error {
	if c.Concurrency < 1 || c.Concurrency > limits.MaxConcurrency {
		return util.NewGraphError(util.ErrInvalidConfig,
			"Configuration key '%v' must be between 1 and %v but is: %v",
			KeyConcurrency, limits.MaxConcurrency, c.Concurrency)
	}

	if c.WriteConcurrency < 1 || c.WriteConcurrency > limits.MaxConcurrency {
		return util.NewGraphError(util.ErrInvalidConfig,
			"Configuration key '%v' must be between 1 and %v but is: %v",
			KeyWriteConcurrency, limits.MaxConcurrency, c.WriteConcurrency)
	}

	key, name := "", ""

	switch c.Mode {
	case Write:
		key, name = KeyWriteProperty, c.WriteProperty
	case Mutate:
		key, name = KeyMutateProperty, c.MutateProperty
	}

	if key != "" {
		if name == "" {
			return util.NewGraphError(util.ErrInvalidConfig,
				"Configuration key '%v' is required in %v mode", key, c.Mode)
		} else if !stringutil.IsAlphaNumeric(name) {
			return util.NewGraphError(util.ErrInvalidConfig,
				"Configuration key '%v' must be alpha numeric: '%v'", key, name)
		}
	}

	return nil
}

/*
Base returns this configuration.
*/
func (c *BaseConfig) Base() *BaseConfig {
	return c
}

/*
ToMap returns the shared settings as a map.
*/
func (c *BaseConfig) ToMap() map[string]interface{} {
	ret := map[string]interface{}{
		KeyConcurrency:       c.Concurrency,
		KeyNodeLabels:        listOrAll(c.NodeLabels),
		KeyRelationshipTypes: listOrAll(c.RelationshipTypes),
	}

	switch c.Mode {
	case Write:
		ret[KeyWriteProperty] = c.WriteProperty
		ret[KeyWriteConcurrency] = c.WriteConcurrency
	case Mutate:
		ret[KeyMutateProperty] = c.MutateProperty
	}

	if c.Projection != nil {
		for k, v := range c.Projection.ToMap() {
			ret[k] = v
		}
	}

	return ret
}

func listOrAll(l []string) []string {
	if len(l) == 0 {
		return []string{"*"}
	}
	return l
}

/*
String returns a string representation of the shared settings.
*/
func (c *BaseConfig) String() string {
	return fmt.Sprintf("%v (concurrency: %v, labels: %v, types: %v)",
		c.Mode, c.Concurrency, listOrAll(c.NodeLabels), listOrAll(c.RelationshipTypes))
}
