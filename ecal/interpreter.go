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
Package ecal runs ECAL scripts which work with the graph catalog. Scripts can
use the functions of the gds stdlib package.
*/
package ecal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/krotik/common/fileutil"
	"github.com/krotik/ecal/cli/tool"
	ecalconfig "github.com/krotik/ecal/config"
	"github.com/krotik/ecal/util"
	"github.com/krotik/eliasgds/algo"
	"github.com/krotik/eliasgds/catalog"
	"github.com/krotik/eliasgds/config"
	"github.com/krotik/eliasgds/ecal/catalogfunc"
	"github.com/krotik/eliasgds/graph/source"
)

/*
ScriptingInterpreter models a ECAL script interpreter instance.
*/
type ScriptingInterpreter struct {
	Catalog     *catalog.Catalog     // Graph catalog for the interpreter
	Store       source.Source        // Source store for projections and write-back
	Executor    *algo.Executor       // Algorithm executor
	Interpreter *tool.CLIInterpreter // ECAL Interpreter object

	Dir       string // Root dir for interpreter
	EntryFile string // Entry file for the program
	LogLevel  string // Log level string (Debug, Info, Error)
	LogFile   string // Logfile (blank for stdout)
}

/*
NewScriptingInterpreter returns a new ECAL scripting interpreter.
*/
func NewScriptingInterpreter(scriptFolder string, cat *catalog.Catalog, store source.Source,
	exec *algo.Executor) *ScriptingInterpreter {

	return &ScriptingInterpreter{
		Catalog:   cat,
		Store:     store,
		Executor:  exec,
		Dir:       scriptFolder,
		EntryFile: filepath.Join(scriptFolder, config.Str(config.ECALEntryScript)),
		LogLevel:  config.Str(config.ECALLogLevel),
		LogFile:   config.Str(config.ECALLogFile),
	}
}

/*
dummyEntryFile is a small valid ECAL which does not do anything. It is used
as the default entry file if no entry file exists.
*/
const dummyEntryFile = `0 # Write your ECAL code here
`

/*
Run runs the entry script and all scripts which it imports.
*/
func (si *ScriptingInterpreter) Run() error {
	var err error

	if ok, _ := fileutil.PathExists(si.EntryFile); !ok {
		err = os.WriteFile(si.EntryFile, []byte(dummyEntryFile), 0600)
	}

	if err == nil {
		i := tool.NewCLIInterpreter()
		si.Interpreter = i

		ecalconfig.Config[ecalconfig.WorkerCount] = config.Config[config.ECALWorkerCount]

		i.Dir = &si.Dir
		i.LogFile = &si.LogFile
		i.LogLevel = &si.LogLevel

		i.EntryFile = si.EntryFile
		i.LoadPlugins = false

		i.CreateRuntimeProvider("eliasgds-runtime")

		catalogfunc.AddCatalogStdlibFunctions(si.Catalog, si.Store, si.Executor)

		err = i.Interpret(false)
	}

	// Include a traceback if possible

	if ss, ok := err.(util.TraceableRuntimeError); ok {
		err = fmt.Errorf("%v\n  %v", err.Error(), strings.Join(ss.GetTraceString(), "\n  "))
	}

	return err
}
