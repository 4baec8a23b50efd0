/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package ecal

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/krotik/common/errorutil"
	"github.com/krotik/common/fileutil"
	"github.com/krotik/eliasgds/algo"
	"github.com/krotik/eliasgds/algo/all"
	"github.com/krotik/eliasgds/catalog"
	"github.com/krotik/eliasgds/config"
	"github.com/krotik/eliasgds/graph/source"
)

const testScriptDir = "testscripts"

func TestMain(m *testing.M) {
	flag.Parse()

	defer func() {
		if res, _ := fileutil.PathExists(testScriptDir); res {
			if err := os.RemoveAll(testScriptDir); err != nil {
				fmt.Print("Could not remove test directory:", err.Error())
			}
		}
	}()

	if res, _ := fileutil.PathExists(testScriptDir); res {
		if err := os.RemoveAll(testScriptDir); err != nil {
			fmt.Print("Could not remove test directory:", err.Error())
		}
	}

	if err := os.Mkdir(testScriptDir, 0770); err != nil {
		fmt.Print("Could not create directory:", err.Error())
		return
	}

	config.LoadDefaultConfig()

	config.Config[config.ECALScriptFolder] = testScriptDir
	config.Config[config.ECALLogFile] = filepath.Join(testScriptDir, "interpreter.log")

	// Run the tests

	m.Run()
}

func writeScript(content string) {
	filename := filepath.Join(testScriptDir, config.Str(config.ECALEntryScript))
	err := os.WriteFile(filename, []byte(content), 0600)
	errorutil.AssertOk(err)
	os.Remove(config.Str(config.ECALLogFile))
}

func checkLog(expected string) error {
	var err error

	content, err := os.ReadFile(config.Str(config.ECALLogFile))
	errorutil.AssertOk(err)

	logtext := string(content)

	if logtext != expected {
		err = fmt.Errorf("Unexpected log text:\n%v", logtext)
	}

	return err
}

func newInterpreter(t *testing.T) *ScriptingInterpreter {
	ms := source.NewMemoryStore("test")

	_, err := source.ImportJSON(bytes.NewBufferString(`
{
	"nodes" : [
		{ "key" : "a", "labels" : [ "Person" ] },
		{ "key" : "b", "labels" : [ "Person" ] },
		{ "key" : "c", "labels" : [ "Person" ] }
	],
	"edges" : [
		{ "start" : "a", "end" : "b", "type" : "KNOWS" }
	]
}`), ms)
	errorutil.AssertOk(err)

	cat := catalog.New()

	return NewScriptingInterpreter(testScriptDir, cat, ms, algo.NewExecutor(all.NewRegistry(), cat))
}

func TestInterpreter(t *testing.T) {
	si := newInterpreter(t)
	defer si.Catalog.Close()

	// An entry script is created if it does not exist

	os.Remove(filepath.Join(testScriptDir, config.Str(config.ECALEntryScript)))

	if err := si.Run(); err != nil {
		t.Error("Unexpected result:", err)
		return
	}

	// Test normal log output

	writeScript(`
log("test run")
`)

	if err := si.Run(); err != nil {
		t.Error("Unexpected result:", err)
		return
	}

	if err := checkLog(`test run
`); err != nil {
		t.Error(err)
	}

	// Test stack trace

	writeScript(`
raise("some error")
`)

	if err := si.Run(); err == nil || err.Error() != `ECAL error in eliasgds-runtime (testscripts/main.ecal): some error () (Line:2 Pos:1)
  raise("some error") (testscripts/main.ecal:2)` {
		t.Error("Unexpected result:", err)
		return
	}

	// Test catalog functions

	writeScript(`
log("exists: ", gds.exists("alice", "g"))

info := gds.create("alice", "g", "Person", "KNOWS")
log("nodes: ", info.nodeCount, " relationships: ", info.relationshipCount)

res := gds.run("alice", "g", "wcc", "stats")
log("components: ", res.componentCount)

gds.drop("alice", "g")
log("graphs: ", len(gds.list("alice")))
`)

	if err := si.Run(); err != nil {
		t.Error("Unexpected result:", err)
		return
	}

	if err := checkLog(`exists: false
nodes: 3 relationships: 1
components: 2
graphs: 0
`); err != nil {
		t.Error(err)
	}

	if si.Catalog.Exists("alice", "g") {
		t.Error("Graph should have been dropped")
		return
	}
}
