package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/urfave/cli.v1"

	"net/http"

	"github.com/ravendb/ravenidx/httpapi"
	"github.com/ravendb/ravenidx/index"
	"github.com/ravendb/ravenidx/index/vfs"
)

var version = ""

func main() {
	app := cli.NewApp()
	app.Name = "ravenidx"
	app.HelpName = "ravenidx"
	app.Usage = "standalone document secondary-index engine"
	app.Version = version

	app.Commands = []cli.Command{
		serveCommand,
		statsCommand,
		backupCommand,
	}

	app.Before = func(ctx *cli.Context) error {
		log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
		return nil
	}

	app.RunAndExitOnError()
}

var serveCommand = cli.Command{
	Name:  "serve",
	Usage: "run the operator HTTP surface over one or more indexes",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "host", Value: "localhost", Usage: "address on which to listen"},
		cli.IntFlag{Name: "port", Value: 7866, Usage: "port number on which to listen"},
		cli.IntFlag{Name: "metrics-port", Value: 7867, Usage: "port number for the Prometheus /metrics endpoint"},
		cli.StringFlag{Name: "dbpath", Usage: "directory holding one subdirectory per index (required)"},
		cli.StringFlag{Name: "errorlog-path", Usage: "path to the durable write-error log (default: <dbpath>/errorlog)"},
	},
	Action: runServe,
}

func runServe(ctx *cli.Context) error {
	dbpath := ctx.String("dbpath")
	if dbpath == "" {
		return cli.NewExitError("dbpath is required", 1)
	}

	logger := index.NewStdLogger("ravenidx ")
	mgr := index.NewManager()

	errorLogPath := ctx.String("errorlog-path")
	if errorLogPath == "" {
		errorLogPath = dbpath + "/errorlog"
	}
	errlog, err := index.OpenErrorLog(errorLogPath)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to open error log: %v", err), 1)
	}
	defer errlog.Close()

	metrics := index.NewMetrics("ravenidx")
	metrics.MustRegister(prometheus.DefaultRegisterer)

	entries, err := os.ReadDir(dbpath)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to read %v: %v", dbpath, err), 1)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir, err := vfs.OpenDiskDir(dbpath+"/"+e.Name(), false)
		if err != nil {
			logger.Warnf("skipping %v: %v", e.Name(), err)
			continue
		}
		def := &index.Definition{Name: e.Name(), HasCatchAllField: true}
		idx, err := index.NewIndex(def, dir, index.DefaultConfig(), nil, nil, logger)
		if err != nil {
			logger.Warnf("failed to open index %v: %v", e.Name(), err)
			continue
		}
		idx.SetErrorLog(errlog)
		idx.SetMetrics(metrics)
		if err := mgr.Register(idx); err != nil {
			logger.Warnf("failed to register index %v: %v", e.Name(), err)
		}
	}
	defer mgr.DisposeAll()

	go func() {
		metricsAddr := net.JoinHostPort(ctx.String("host"), strconv.Itoa(ctx.Int("metrics-port")))
		logger.Printf("metrics listening on %v", metricsAddr)
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			logger.Errorf("metrics server failed: %v", err)
		}
	}()

	addr := net.JoinHostPort(ctx.String("host"), strconv.Itoa(ctx.Int("port")))
	logger.Printf("listening on %v", addr)
	return httpapi.ListenAndServe(addr, mgr, logger)
}

var statsCommand = cli.Command{
	Name:      "stats",
	Usage:     "print the rolling indexing stats for one index",
	ArgsUsage: "<dbpath> <index-name>",
	Action:    runStats,
}

func runStats(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.NewExitError("usage: ravenidx stats <dbpath> <index-name>", 1)
	}
	dbpath, name := ctx.Args().Get(0), ctx.Args().Get(1)

	dir, err := vfs.OpenDiskDir(dbpath+"/"+name, false)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to open %v: %v", name, err), 1)
	}
	idx, err := index.NewIndex(&index.Definition{Name: name, HasCatchAllField: true}, dir, index.DefaultConfig(), nil, nil, index.DiscardLogger)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to open index: %v", err), 1)
	}
	defer idx.Dispose()

	fmt.Printf("index: %v\npriority: %v\ngeneration: %v\nbatches recorded: %v\n",
		idx.Definition().Name, idx.Priority(), idx.Generation(), len(idx.Stats()))
	return nil
}

var backupCommand = cli.Command{
	Name:      "backup",
	Usage:     "back up one index directory to a destination directory",
	ArgsUsage: "<dbpath> <index-name> <dest>",
	Action:    runBackup,
}

func runBackup(ctx *cli.Context) error {
	if ctx.NArg() != 3 {
		return cli.NewExitError("usage: ravenidx backup <dbpath> <index-name> <dest>", 1)
	}
	dbpath, name, dest := ctx.Args().Get(0), ctx.Args().Get(1), ctx.Args().Get(2)

	dir, err := vfs.OpenDiskDir(dbpath+"/"+name, false)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to open %v: %v", name, err), 1)
	}
	idx, err := index.NewIndex(&index.Definition{Name: name, HasCatchAllField: true}, dir, index.DefaultConfig(), nil, nil, index.NewStdLogger("ravenidx "))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to open index: %v", err), 1)
	}
	defer idx.Dispose()

	destDir, err := vfs.OpenDiskDir(dest, true)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to open destination: %v", err), 1)
	}
	defer destDir.Close()

	report, err := idx.Backup(destDir)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("backup failed: %v", err), 1)
	}

	fmt.Printf("backed up %v: %v files, %v bytes, incremental id %v\n",
		name, report.FilesCopied, report.BytesCopied, report.IncrementalID)
	return nil
}
