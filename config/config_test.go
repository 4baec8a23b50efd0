/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package config

import (
	"fmt"
	"os"
	"testing"
)

const testconf = "testconfig"

func TestConfig(t *testing.T) {

	Config = nil

	os.WriteFile(testconf, []byte(`{
    "EstimateBeforeCreate": false,
    "MaxMemoryBytes": 2147483648,
    "LogLevel": "Debug"
}`), 0644)

	defer func() {
		if err := os.Remove(testconf); err != nil {
			fmt.Print("Could not remove test config file:", err.Error())
		}
	}()

	if err := LoadConfigFile(testconf); err != nil {
		t.Error(err)
		return
	}

	if res := Str(EstimateBeforeCreate); res != "false" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Bool(EstimateBeforeCreate); res {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Int(MaxMemoryBytes); res != 2147483648 {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Int(WriteBatchSize); fmt.Sprint(res) != fmt.Sprint(DefaultConfig[WriteBatchSize]) {
		t.Error("Unexpected result:", res)
		return
	}

	LoadDefaultConfig()

	if res := Str(EstimateBeforeCreate); res != "true" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Str(LogLevel); res != "Info" {
		t.Error("Unexpected result:", res)
		return
	}

	Config[DefaultConcurrency] = "8"

	if res := Int(DefaultConcurrency); res != 8 {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestConfigErrors(t *testing.T) {
	LoadDefaultConfig()

	Config[WriteBatchSize] = 1.5

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Reading a fraction as int should panic")
			}
		}()

		Int(WriteBatchSize)
	}()

	Config[EnableMetrics] = "maybe"

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Reading an invalid bool should panic")
			}
		}()

		Bool(EnableMetrics)
	}()

	LoadDefaultConfig()
}
