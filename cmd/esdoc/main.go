// Command esdoc manipulates Elasticsearch documents: index, get,
// delete, update, count, search with template-rendered query bodies,
// and concurrent bulk loading of newline-delimited JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus" // Prometheus metrics.
	"go.uber.org/zap"                                // Logging.
	kingpin "gopkg.in/alecthomas/kingpin.v2"         // Command line args parser.

	"github.com/ncthuc/elastictools/internal/pkg/cmd"
	"github.com/ncthuc/elastictools/pkg/doctools"
)

var (
	app      = kingpin.New("esdoc", "Manipulate Elasticsearch documents.")
	logFlags = cmd.NewLoggingFlags(app, "info")
	esFlags  = cmd.NewElasticsearchFlags(app)
	registry = prometheus.NewRegistry()

	indexCmd   = app.Command("index", "Create or replace a document.")
	indexIndex = indexCmd.Arg("index", "Target index.").Required().String()
	indexBody  = indexCmd.Arg("body", "File with the document body ('-' for stdin).").Required().String()
	indexID    = indexCmd.Flag("id", "Document ID. Omit to let Elasticsearch assign one.").String()

	getCmd    = app.Command("get", "Get a document.")
	getIndex  = getCmd.Arg("index", "Target index.").Required().String()
	getID     = getCmd.Arg("id", "Document ID.").Required().String()
	getSource = getCmd.Flag("source", "Print only the document _source.").Bool()

	existsCmd   = app.Command("exists", "Check if a document exists. Exits non-zero if not.")
	existsIndex = existsCmd.Arg("index", "Target index.").Required().String()
	existsID    = existsCmd.Arg("id", "Document ID.").Required().String()

	deleteCmd   = app.Command("delete", "Delete a document.")
	deleteIndex = deleteCmd.Arg("index", "Target index.").Required().String()
	deleteID    = deleteCmd.Arg("id", "Document ID.").Required().String()

	updateCmd   = app.Command("update", "Merge a partial document into an existing one.")
	updateIndex = updateCmd.Arg("index", "Target index.").Required().String()
	updateID    = updateCmd.Arg("id", "Document ID.").Required().String()
	updateBody  = updateCmd.Arg("body", "File with the partial document ('-' for stdin).").Required().String()

	countCmd    = app.Command("count", "Count documents matching a query.")
	countIndex  = countCmd.Arg("index", "Target index.").Required().String()
	countBody   = countCmd.Flag("body", "File with the query body ('-' for stdin). Omit to count all.").String()
	countParams = countCmd.Flag("param", "Template parameter as key=value. May be set multiple times.").StringMap()

	searchCmd    = app.Command("search", "Search documents matching a query.")
	searchIndex  = searchCmd.Arg("index", "Target index.").Required().String()
	searchBody   = searchCmd.Flag("body", "File with the query body ('-' for stdin). Omit to match all.").String()
	searchParams = searchCmd.Flag("param", "Template parameter as key=value. May be set multiple times.").StringMap()

	bulkCmd     = app.Command("bulk", "Bulk load newline-delimited JSON documents.")
	bulkIndex   = bulkCmd.Arg("index", "Target index.").Required().String()
	bulkInput   = bulkCmd.Arg("file", "NDJSON file ('-' for stdin).").Default("-").String()
	bulkWorkers = bulkCmd.Flag("workers", "Number of concurrent indexing workers.").Default("2").Int()
	bulkBatch   = bulkCmd.Flag("batch", "Documents per bulk request.").Default("500").Int()
	bulkIDField = bulkCmd.Flag("id-field", "Document field to use as the ID. Documents without it get a UUID.").String()
	monFlags    = cmd.NewMonitoringFlags(bulkCmd, 9102)
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := logFlags.NewLogger()
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()
	client, err := esFlags.NewInstrumentedClient(ctx, registry)
	if err != nil {
		logger.Fatal("error connecting to Elasticsearch", zap.Error(err))
	}
	defer client.Stop()
	tools := doctools.New(client, doctools.WithLogger(logger))

	switch command {
	case indexCmd.FullCommand():
		resp, err := tools.Index(ctx, *indexIndex, *indexID, readInput(logger, *indexBody))
		if err != nil {
			logger.Fatal("error indexing document", zap.Error(err))
		}
		printJSON(logger, resp)

	case getCmd.FullCommand():
		if *getSource {
			source, err := tools.Source(ctx, *getIndex, *getID)
			if err != nil {
				logger.Fatal("error getting document", zap.Error(err))
			}
			fmt.Println(string(source))
		} else {
			resp, err := tools.Get(ctx, *getIndex, *getID)
			if err != nil {
				logger.Fatal("error getting document", zap.Error(err))
			}
			printJSON(logger, resp)
		}

	case existsCmd.FullCommand():
		exists, err := tools.Exists(ctx, *existsIndex, *existsID)
		if err != nil {
			logger.Fatal("error checking document existence", zap.Error(err))
		}
		fmt.Println(exists)
		if !exists {
			os.Exit(1)
		}

	case deleteCmd.FullCommand():
		resp, err := tools.Delete(ctx, *deleteIndex, *deleteID)
		if err != nil {
			logger.Fatal("error deleting document", zap.Error(err))
		}
		printJSON(logger, resp)

	case updateCmd.FullCommand():
		resp, err := tools.Update(ctx, *updateIndex, *updateID, json.RawMessage(readInput(logger, *updateBody)))
		if err != nil {
			logger.Fatal("error updating document", zap.Error(err))
		}
		printJSON(logger, resp)

	case countCmd.FullCommand():
		n, err := tools.Count(ctx, *countIndex, readBody(logger, *countBody), templateParams(*countParams))
		if err != nil {
			logger.Fatal("error counting documents", zap.Error(err))
		}
		fmt.Println(n)

	case searchCmd.FullCommand():
		resp, err := tools.Search(ctx, *searchIndex, readBody(logger, *searchBody), templateParams(*searchParams))
		if err != nil {
			logger.Fatal("error searching documents", zap.Error(err))
		}
		printJSON(logger, resp)

	case bulkCmd.FullCommand():
		doBulk(ctx, logger, tools)
	}
}

func doBulk(ctx context.Context, logger *zap.Logger, tools *doctools.DocTools) {
	loader := doctools.NewBulkLoader(tools.Client(), *bulkIndex).
		Workers(*bulkWorkers).
		BatchSize(*bulkBatch).
		IDField(*bulkIDField).
		Logger(logger)

	if monFlags.Enabled {
		registerBulkMetrics(logger, loader)
		h := cmd.NewHealthchecksHandler(registry, esFlags.URLStrings()[0])
		mux := monFlags.ConfigureMux(http.NewServeMux(), h, registry)
		srv := monFlags.Server(mux)
		defer srv.Close()
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("error serving monitoring endpoints", zap.Error(err))
			}
		}()
	}

	var input io.Reader = os.Stdin
	if *bulkInput != "-" {
		f, err := os.Open(*bulkInput)
		if err != nil {
			logger.Fatal("error opening input file", zap.Error(err))
		}
		defer f.Close()
		input = f
	}

	if err := loader.Run(ctx, input); err != nil {
		logger.Fatal("bulk load failed", zap.Error(err))
	}
	printJSON(logger, loader.Stats())
}

func registerBulkMetrics(logger *zap.Logger, loader *doctools.BulkLoader) {
	gauges := map[string]func(doctools.BulkStats) int64{
		"documents_read":    func(s doctools.BulkStats) int64 { return s.Read },
		"documents_indexed": func(s doctools.BulkStats) int64 { return s.Indexed },
		"documents_failed":  func(s doctools.BulkStats) int64 { return s.Failed },
	}
	for name, get := range gauges {
		get := get
		g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: cmd.Namespace,
			Subsystem: "bulk",
			Name:      name,
		}, func() float64 {
			return float64(get(loader.Stats()))
		})
		if err := registry.Register(g); err != nil {
			logger.Fatal("error registering bulk metrics", zap.Error(err))
		}
	}
}

// templateParams widens kingpin's string map to the type the
// template renderer takes.
func templateParams(in map[string]string) map[string]interface{} {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
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

// readBody is readInput for optional flags: an unset flag means no body.
func readBody(logger *zap.Logger, path string) string {
	if path == "" {
		return ""
	}
	return readInput(logger, path)
}

func printJSON(logger *zap.Logger, v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Fatal("error marshaling output", zap.Error(err))
	}
	fmt.Println(string(out))
}
