// Command esindex manages Elasticsearch indices: create (optionally
// cloned from an existing index), delete, inspect, and wait helpers.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"

	"go.uber.org/zap"                        // Logging.
	kingpin "gopkg.in/alecthomas/kingpin.v2" // Command line args parser.

	"github.com/ncthuc/elastictools/internal/pkg/cmd"
	"github.com/ncthuc/elastictools/pkg/indextools"
)

var (
	app      = kingpin.New("esindex", "Manage Elasticsearch indices.")
	logFlags = cmd.NewLoggingFlags(app, "info")
	esFlags  = cmd.NewElasticsearchFlags(app)

	createCmd       = app.Command("create", "Create an index.")
	createName      = createCmd.Arg("index", "Name of the index.").Required().String()
	createBody      = createCmd.Flag("body", "File with the full create-index body ('-' for stdin).").String()
	createFrom      = createCmd.Flag("from", "Clone mapping and settings from this existing index.").String()
	createOverwrite = createCmd.Flag("overwrite", "Delete an existing index of the same name first.").Bool()

	deleteCmd  = app.Command("delete", "Delete an index. Missing indices are not an error.")
	deleteName = deleteCmd.Arg("index", "Name of the index.").Required().String()

	existsCmd   = app.Command("exists", "Check if indices exist. Exits non-zero if any is missing.")
	existsNames = existsCmd.Arg("index", "Name(s) of the indices.").Required().Strings()

	infoCmd  = app.Command("info", "Print the aliases, mappings, and settings of an index.")
	infoName = infoCmd.Arg("index", "Name of the index.").Required().String()

	mappingCmd  = app.Command("mapping", "Print the mapping of an index.")
	mappingName = mappingCmd.Arg("index", "Name of the index.").Required().String()

	settingsCmd   = app.Command("settings", "Print the settings of an index.")
	settingsName  = settingsCmd.Arg("index", "Name of the index.").Required().String()
	settingsClone = settingsCmd.Flag("clone", "Strip per-index ephemera so the output can create a new index.").Bool()

	statsCmd  = app.Command("stats", "Print the stats of an index.")
	statsName = statsCmd.Arg("index", "Name of the index.").Required().String()

	waitCmd     = app.Command("wait", "Wait for cluster health, or for an index to exist.")
	waitName    = waitCmd.Arg("index", "Wait for this index to exist instead of cluster health.").String()
	waitStatus  = waitCmd.Flag("status", "Cluster health status to wait for.").Default("yellow").Enum("red", "yellow", "green")
	waitTimeout = waitCmd.Flag("timeout", "Give up after this long.").Default("30s").Duration()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := logFlags.NewLogger()
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()
	client, err := esFlags.NewClient(ctx)
	if err != nil {
		logger.Fatal("error connecting to Elasticsearch", zap.Error(err))
	}
	defer client.Stop()
	tools := indextools.New(client, indextools.WithLogger(logger))

	switch command {
	case createCmd.FullCommand():
		doCreate(ctx, logger, tools)

	case deleteCmd.FullCommand():
		if err := tools.Delete(ctx, *deleteName); err != nil {
			logger.Fatal("error deleting index", zap.Error(err))
		}

	case existsCmd.FullCommand():
		exists, err := tools.Exists(ctx, *existsNames...)
		if err != nil {
			logger.Fatal("error checking index existence", zap.Error(err))
		}
		fmt.Println(exists)
		if !exists {
			os.Exit(1)
		}

	case infoCmd.FullCommand():
		info, err := tools.Get(ctx, *infoName)
		if err != nil {
			logger.Fatal("error getting index", zap.Error(err))
		}
		printJSON(logger, info)

	case mappingCmd.FullCommand():
		mapping, err := tools.GetMapping(ctx, *mappingName)
		if err != nil {
			logger.Fatal("error getting index mapping", zap.Error(err))
		}
		printJSON(logger, mapping)

	case settingsCmd.FullCommand():
		if *settingsClone {
			settings, err := tools.CloneSettings(ctx, *settingsName)
			if err != nil {
				logger.Fatal("error cloning index settings", zap.Error(err))
			}
			fmt.Println(settings)
		} else {
			settings, err := tools.GetSettings(ctx, *settingsName)
			if err != nil {
				logger.Fatal("error getting index settings", zap.Error(err))
			}
			printJSON(logger, settings)
		}

	case statsCmd.FullCommand():
		stats, err := tools.Stats(ctx, *statsName)
		if err != nil {
			logger.Fatal("error getting index stats", zap.Error(err))
		}
		printJSON(logger, stats)

	case waitCmd.FullCommand():
		doWait(ctx, logger, tools)
	}
}

func doCreate(ctx context.Context, logger *zap.Logger, tools *indextools.IndexTools) {
	svc := tools.Create(*createName).Overwrite(*createOverwrite)

	if *createBody != "" && *createFrom != "" {
		logger.Fatal("--body and --from are mutually exclusive")
	}
	if *createBody != "" {
		svc = svc.BodyString(readInput(logger, *createBody))
	}
	if *createFrom != "" {
		mapping, err := tools.CloneMapping(ctx, *createFrom)
		if err != nil {
			logger.Fatal("error cloning source index mapping", zap.Error(err))
		}
		settings, err := tools.CloneSettings(ctx, *createFrom)
		if err != nil {
			logger.Fatal("error cloning source index settings", zap.Error(err))
		}
		svc = svc.Mapping(mapping).Settings(settings)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		logger.Fatal("error creating index", zap.Error(err))
	}
	printJSON(logger, resp)
}

func doWait(ctx context.Context, logger *zap.Logger, tools *indextools.IndexTools) {
	var err error
	if *waitName != "" {
		err = tools.WaitForIndex(ctx, *waitName, *waitTimeout)
	} else {
		err = tools.WaitForStatus(ctx, *waitStatus, *waitTimeout)
	}
	if err != nil {
		logger.Fatal("timed out waiting",
			zap.String("index", *waitName),
			zap.String("status", *waitStatus),
			zap.Duration("timeout", *waitTimeout),
			zap.Error(err),
		)
	}
}

// readInput reads a file argument, with "-" meaning stdin.
func readInput(logger *zap.Logger, path string) string {
	var data []byte
	var err error
	if path == "-" {
		data, err = ioutil.ReadAll(os.Stdin)
	} else {
		data, err = ioutil.ReadFile(path)
	}
	if err != nil {
		logger.Fatal("error reading input", zap.String("path", path), zap.Error(err))
	}
	return string(data)
}

func printJSON(logger *zap.Logger, v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Fatal("error marshaling output", zap.Error(err))
	}
	fmt.Println(string(out))
}
