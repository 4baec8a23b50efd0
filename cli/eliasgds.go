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
EliasDB GDS projects graphs from a source store into memory and runs graph
algorithms on them.

Available commands:

- run: Run an algorithm on an anonymous graph and print the result rows or the summary.

- estimate: Estimate the memory of an algorithm call for a given graph size.

- list: Project a named graph and print its catalog entry.

- script: Run ECAL scripts which can use the graph catalog.
*/
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/krotik/common/logutil"
	"github.com/krotik/common/stringutil"
	"github.com/krotik/common/timeutil"
	"github.com/krotik/eliasgds/algo"
	"github.com/krotik/eliasgds/algo/all"
	"github.com/krotik/eliasgds/catalog"
	"github.com/krotik/eliasgds/config"
	"github.com/krotik/eliasgds/ecal"
	"github.com/krotik/eliasgds/graph"
	"github.com/krotik/eliasgds/graph/source"
	"github.com/krotik/eliasgds/graph/source/neo4jsource"
	"github.com/krotik/eliasgds/metrics"
	"github.com/krotik/eliasgds/version"
)

func main() {

	// Initialize the default command line parser

	flag.CommandLine.Init(os.Args[0], flag.ContinueOnError)

	// Define default usage message

	flag.Usage = func() {

		// Print usage for tool selection

		fmt.Println(fmt.Sprintf("Usage of %s <tool>", os.Args[0]))
		fmt.Println()
		fmt.Println(fmt.Sprintf("EliasDB GDS %v.%v - graph catalog and algorithms",
			version.VERSION, version.REV))
		fmt.Println()
		fmt.Println("Available commands:")
		fmt.Println()
		fmt.Println("    run       Run an algorithm on an anonymous graph")
		fmt.Println("    estimate  Estimate the memory of an algorithm call")
		fmt.Println("    list      Project a named graph and show its catalog entry")
		fmt.Println("    script    Run ECAL scripts")
		fmt.Println()
		fmt.Println(fmt.Sprintf("Use %s <command> -help for more information about a given command.", os.Args[0]))
		fmt.Println()
	}

	// Parse the command bit

	err := flag.CommandLine.Parse(os.Args[1:])

	if len(flag.Args()) > 0 {
		var cmd func(args []string, out io.Writer) error

		switch flag.Args()[0] {
		case "run":
			cmd = runCommand
		case "estimate":
			cmd = estimateCommand
		case "list":
			cmd = listCommand
		case "script":
			cmd = scriptCommand
		}

		if cmd == nil {
			flag.Usage()
			return
		}

		if err = config.LoadConfigFile(config.DefaultConfigFile); err == nil {
			setupLogging()
			err = cmd(flag.Args()[1:], os.Stdout)
		}

		if err != nil {
			fmt.Println(err.Error())
			os.Exit(1)
		}

	} else if err == nil {

		flag.Usage()
	}
}

/*
setupLogging sends the log output of the catalog and the executor to a
logger with the configured log level.
*/
func setupLogging() {
	logger := logutil.GetLogger("eliasgds")

	logger.AddLogSink(logutil.StringToLoglevel(config.Str(config.LogLevel)),
		logutil.SimpleFormatter(), os.Stderr)

	catalog.LogInfo = logger.Info
	catalog.LogDebug = logger.Debug
	algo.LogInfo = logger.Info
	algo.LogDebug = logger.Debug
}

/*
newFlagSet creates the flag set of a command.
*/
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.Usage = func() {
		fmt.Println()
		fmt.Println(fmt.Sprintf("Usage of %s %s [options]", os.Args[0], name))
		fmt.Println()
		fs.PrintDefaults()
		fmt.Println()
	}

	return fs
}

/*
newCatalog creates a graph catalog and an executor from the configuration.
*/
func newCatalog() (*catalog.Catalog, *algo.Executor) {
	var collector *metrics.Collector

	if config.Bool(config.EnableMetrics) {
		collector = metrics.Default()
	}

	cat := catalog.New(
		catalog.WithMaxMemory(uint64(config.Int(config.MaxMemoryBytes))),
		catalog.WithPreflight(config.Bool(config.EstimateBeforeCreate)),
		catalog.WithBuildOptions(graph.BuildOptions{
			Concurrency: int(config.Int(config.DefaultConcurrency)),
			SparseRatio: uint64(config.Int(config.SparsePropertyRatio)),
		}),
		catalog.WithCollector(collector),
		catalog.WithWriter(catalog.NewWriter(int(config.Int(config.WriteConcurrency)),
			uint64(config.Int(config.WriteBatchSize)))))

	exec := algo.NewExecutor(all.NewRegistry(), cat,
		algo.WithCollector(collector),
		algo.WithLimits(algo.Limits{
			DefaultConcurrency: int(config.Int(config.DefaultConcurrency)),
			MaxConcurrency:     int(config.Int(config.MaxConcurrency)),
		}),
		algo.WithWriteBatchSize(uint64(config.Int(config.WriteBatchSize))))

	return cat, exec
}

/*
openStore opens the source store. A graph file is loaded into a memory store.
Without a file the configured Neo4j database is used.
*/
func openStore(ctx context.Context, file string) (source.Source, func(), error) {
	if file != "" {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, nil, err
		}

		ms := source.NewMemoryStore(file)

		if _, err = source.ImportJSON(bytes.NewBuffer(content), ms); err != nil {
			return nil, nil, err
		}

		return ms, func() {}, nil
	}

	if uri := config.Str(config.Neo4jURI); uri != "" {
		store, err := neo4jsource.Connect(ctx, uri, config.Str(config.Neo4jUser),
			config.Str(config.Neo4jPassword), config.Str(config.Neo4jDatabase))
		if err != nil {
			return nil, nil, err
		}

		return store, func() { store.Close(ctx) }, nil
	}

	return nil, nil, fmt.Errorf("No graph file given and no Neo4j database configured")
}

/*
parseConfig parses an algorithm configuration given as JSON object.
*/
func parseConfig(s string) (map[string]interface{}, error) {
	ret := make(map[string]interface{})

	if s != "" {
		if err := json.Unmarshal([]byte(s), &ret); err != nil {
			return nil, fmt.Errorf("Could not parse configuration: %v", err)
		}
	}

	return ret, nil
}

/*
runCommand runs an algorithm on an anonymous graph.
*/
func runCommand(args []string, out io.Writer) error {
	fs := newFlagSet("run")

	file := fs.String("file", "", "Graph file in JSON format (default: configured Neo4j database)")
	algorithm := fs.String("algo", "wcc", "Algorithm to run")
	modeName := fs.String("mode", "stats", "Execution mode (stream, write, stats)")
	nodes := fs.String("nodes", "*", "Node projection if the configuration has none")
	rels := fs.String("rels", "*", "Relationship projection if the configuration has none")
	cfgString := fs.String("config", "", "Algorithm configuration as JSON object")

	if err := fs.Parse(args); err != nil {
		return err
	}

	mode, err := algo.ParseMode(*modeName)
	if err != nil {
		return err
	}

	cfg, err := parseConfig(*cfgString)
	if err != nil {
		return err
	}

	if _, ok := cfg[algo.KeyNodeProjection]; !ok {
		cfg[algo.KeyNodeProjection] = *nodes
	}
	if _, ok := cfg[algo.KeyRelationshipProjection]; !ok {
		cfg[algo.KeyRelationshipProjection] = *rels
	}

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, *file)
	if err != nil {
		return err
	}
	defer closeStore()

	cat, exec := newCatalog()
	defer cat.Close()

	res, err := exec.Run(ctx, &algo.Request{
		Algorithm: *algorithm,
		Mode:      mode,
		Config:    cfg,
		Source:    store,
	})
	if err != nil {
		return err
	}

	if res.Rows != nil {
		fmt.Fprint(out, rowTable(algo.Collect(res.Rows)))
	} else {
		fmt.Fprint(out, mapTable(res.Summary.ToMap()))
	}

	return nil
}

/*
estimateCommand estimates the memory of an algorithm call.
*/
func estimateCommand(args []string, out io.Writer) error {
	fs := newFlagSet("estimate")

	algorithm := fs.String("algo", "wcc", "Algorithm to estimate")
	modeName := fs.String("mode", "stats", "Execution mode (stream, write, mutate, stats)")
	nodeCount := fs.Uint64("nodes", 0, "Number of nodes")
	relCount := fs.Uint64("rels", 0, "Number of relationships")
	cfgString := fs.String("config", `{"nodeProjection":"*","relationshipProjection":"*"}`,
		"Algorithm configuration as JSON object")

	if err := fs.Parse(args); err != nil {
		return err
	}

	mode, err := algo.ParseMode(*modeName)
	if err != nil {
		return err
	}

	cfg, err := parseConfig(*cfgString)
	if err != nil {
		return err
	}

	cat, exec := newCatalog()
	defer cat.Close()

	est, err := exec.EstimateCounts(&algo.Request{
		Algorithm: *algorithm,
		Mode:      mode,
		Config:    cfg,
	}, *nodeCount, *relCount)

	if err == nil {
		fmt.Fprint(out, est.String())
	}

	return err
}

/*
listCommand projects a named graph and prints its catalog entry.
*/
func listCommand(args []string, out io.Writer) error {
	fs := newFlagSet("list")

	file := fs.String("file", "", "Graph file in JSON format (default: configured Neo4j database)")
	owner := fs.String("owner", "eliasgds", "Owner of the graph")
	name := fs.String("name", "graph", "Name of the graph")
	nodes := fs.String("nodes", "*", "Node projection")
	rels := fs.String("rels", "*", "Relationship projection")

	if err := fs.Parse(args); err != nil {
		return err
	}

	spec, err := graph.ParseProjection(*nodes, *rels, nil, nil)
	if err != nil {
		return err
	}

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, *file)
	if err != nil {
		return err
	}
	defer closeStore()

	cat, _ := newCatalog()
	defer cat.Close()

	if _, err = cat.Create(ctx, *owner, *name, store, spec); err != nil {
		return err
	}

	for _, info := range cat.List(*owner, *name, true) {
		m := info.ToMap()

		for _, k := range []string{"creationTime", "modificationTime"} {
			if ts, err := timeutil.TimestampString(fmt.Sprint(m[k]), "UTC"); err == nil {
				m[k] = ts
			}
		}

		fmt.Fprint(out, mapTable(m))
	}

	return nil
}

/*
scriptCommand runs ECAL scripts.
*/
func scriptCommand(args []string, out io.Writer) error {
	fs := newFlagSet("script")

	file := fs.String("file", "", "Graph file in JSON format (default: configured Neo4j database)")
	dir := fs.String("dir", config.Str(config.ECALScriptFolder), "Script folder")

	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, *file)
	if err != nil {
		return err
	}
	defer closeStore()

	cat, exec := newCatalog()
	defer cat.Close()

	return ecal.NewScriptingInterpreter(*dir, cat, store, exec).Run()
}

/*
rowTable renders result rows as a table.
*/
func rowTable(rows []algo.Row) string {
	if len(rows) == 0 {
		return fmt.Sprintln("No rows")
	}

	var cols []string
	for k := range rows[0] {
		if k != "nodeId" {
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	cols = append([]string{"nodeId"}, cols...)

	tab := append([]string{}, cols...)

	for _, row := range rows {
		for _, c := range cols {
			tab = append(tab, fmt.Sprint(row[c]))
		}
	}

	return stringutil.PrintGraphicStringTable(tab, len(cols), 1, stringutil.SingleLineTable)
}

/*
mapTable renders a map as a table with one row per key.
*/
func mapTable(m map[string]interface{}) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tab := []string{"Key", "Value"}

	for _, k := range keys {
		v := m[k]

		if _, ok := v.(map[string]interface{}); ok {
			if b, err := json.Marshal(v); err == nil {
				v = string(b)
			}
		}

		tab = append(tab, k, fmt.Sprint(v))
	}

	return stringutil.PrintGraphicStringTable(tab, 2, 1, stringutil.SingleLineTable)
}
