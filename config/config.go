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
Package config contains the global configuration of EliasDB GDS.
*/
package config

import (
	"fmt"
	"math"
	"strconv"

	"github.com/krotik/common/errorutil"
	"github.com/krotik/common/fileutil"
)

// Global variables
// ================

/*
DefaultConfigFile is the default config file which will be used to configure EliasDB GDS
*/
var DefaultConfigFile = "eliasgds.config.json"

/*
Known configuration options for EliasDB GDS
*/
const (
	DefaultConcurrency   = "DefaultConcurrency"
	MaxConcurrency       = "MaxConcurrency"
	MaxMemoryBytes       = "MaxMemoryBytes"
	EstimateBeforeCreate = "EstimateBeforeCreate"
	WriteConcurrency     = "WriteConcurrency"
	WriteBatchSize       = "WriteBatchSize"
	SparsePropertyRatio  = "SparsePropertyRatio"
	LogLevel             = "LogLevel"
	EnableMetrics        = "EnableMetrics"
	Neo4jURI             = "Neo4jURI"
	Neo4jUser            = "Neo4jUser"
	Neo4jPassword        = "Neo4jPassword"
	Neo4jDatabase        = "Neo4jDatabase"
	ECALScriptFolder     = "ECALScriptFolder"
	ECALEntryScript      = "ECALEntryScript"
	ECALLogLevel         = "ECALLogLevel"
	ECALLogFile          = "ECALLogFile"
	ECALWorkerCount      = "ECALWorkerCount"
)

/*
DefaultConfig is the defaut configuration
*/
var DefaultConfig = map[string]interface{}{
	DefaultConcurrency:   4,
	MaxConcurrency:       64,
	MaxMemoryBytes:       0,
	EstimateBeforeCreate: true,
	WriteConcurrency:     4,
	WriteBatchSize:       10000,
	SparsePropertyRatio:  4,
	LogLevel:             "Info",
	EnableMetrics:        true,
	Neo4jURI:             "",
	Neo4jUser:            "",
	Neo4jPassword:        "",
	Neo4jDatabase:        "",
	ECALScriptFolder:     "scripts",
	ECALEntryScript:      "main.ecal",
	ECALLogLevel:         "info",
	ECALLogFile:          "",
	ECALWorkerCount:      10,
}

/*
Config is the actual config which is used
*/
var Config map[string]interface{}

/*
LoadConfigFile loads a given config file. If the config file does not exist it is
created with the default options.
*/
func LoadConfigFile(configfile string) error {
	var err error

	Config, err = fileutil.LoadConfig(configfile, DefaultConfig)

	return err
}

/*
LoadDefaultConfig loads the default configuration.
*/
func LoadDefaultConfig() {
	data := make(map[string]interface{})
	for k, v := range DefaultConfig {
		data[k] = v
	}

	Config = data
}

// Helper functions
// ================

/*
Str reads a config value as a string value.
*/
func Str(key string) string {
	return fmt.Sprint(Config[key])
}

/*
Int reads a config value as an int value. Values read from a JSON file are
floating point numbers and are truncated.
*/
func Int(key string) int64 {
	val := Config[key]

	if f, ok := val.(float64); ok {
		errorutil.AssertTrue(f == math.Trunc(f) && math.Abs(f) < math.MaxInt64,
			fmt.Sprintf("Could not parse config key %v: %v is not an integer", key, f))
		return int64(f)
	}

	ret, err := strconv.ParseInt(fmt.Sprint(val), 10, 64)

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("Could not parse config key %v: %v", key, err))

	return ret
}

/*
Bool reads a config value as a boolean value.
*/
func Bool(key string) bool {
	ret, err := strconv.ParseBool(fmt.Sprint(Config[key]))

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("Could not parse config key %v: %v", key, err))

	return ret
}
