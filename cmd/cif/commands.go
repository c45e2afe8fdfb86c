package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cifkit/cif"
	"github.com/cifkit/cif/internal/export"
	"github.com/cifkit/cif/internal/metrics"
	"github.com/cifkit/cif/internal/watch"
	"github.com/urfave/cli/v2"
)

func (r *runner) checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "parse files and report errors",
		ArgsUsage: "FILE...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("check: at least one file is required", 2)
			}

			failed := 0
			for _, path := range c.Args().Slice() {
				doc, err := r.parseFile(path)
				if err != nil {
					failed++
					fmt.Fprintf(r.stdout, "FAIL %s\n", err)
					continue
				}
				fmt.Fprintf(r.stdout, "OK   %s (%d blocks)\n", path, doc.Len())
			}

			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d files failed", failed, c.NArg()), 1)
			}
			return nil
		},
	}
}

func (r *runner) showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "summarize the blocks, loops and frames of a file",
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("show: exactly one file is required", 2)
			}
			doc, err := r.parseFile(c.Args().First())
			if err != nil {
				return err
			}

			if v := doc.Version(); v != "" {
				fmt.Fprintf(r.stdout, "version %s\n", v)
			}
			for _, b := range doc.Blocks() {
				fmt.Fprintf(r.stdout, "data_%s: %d items, %d loops, %d frames\n",
					b.Name(), b.NumItems(), b.NumLoops(), b.NumFrames())
				r.showLoops("  ", b)
				for _, f := range b.Frames() {
					fmt.Fprintf(r.stdout, "  save_%s: %d items, %d loops\n", f.Name(), f.NumItems(), f.NumLoops())
					r.showLoops("    ", f)
				}
			}
			return nil
		},
	}
}

func (r *runner) showLoops(indent string, s cif.Scope) {
	for i, l := range s.Loops() {
		fmt.Fprintf(r.stdout, "%sloop %d: %d rows [%s]\n", indent, i, l.Len(), strings.Join(l.Tags(), " "))
	}
}

func (r *runner) getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "print an item value or a loop column",
		ArgsUsage: "FILE TAG",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "block",
				Aliases: []string{"b"},
				Usage:   "data block `NAME` (default: the first block)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("get: FILE and TAG are required", 2)
			}
			doc, err := r.parseFile(c.Args().Get(0))
			if err != nil {
				return err
			}
			tag := c.Args().Get(1)

			block := doc.First()
			if name := c.String("block"); name != "" {
				block = doc.BlockByName(name)
			}
			if block == nil {
				return cli.Exit("get: data block not found", 1)
			}

			if v, ok := block.Item(tag); ok {
				fmt.Fprintln(r.stdout, v)
				return nil
			}
			if l := block.FindLoop(tag); l != nil {
				column, _ := l.Column(tag)
				for _, v := range column {
					fmt.Fprintln(r.stdout, v)
				}
				return nil
			}
			return cli.Exit(fmt.Sprintf("get: tag %s not found in block %s", tag, block.Name()), 1)
		},
	}
}

func (r *runner) exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "convert a file to JSON, YAML or a SQLite database",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "json, yaml or sqlite",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "output `PATH` (default: stdout, or the configured database for sqlite)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("export: exactly one file is required", 2)
			}
			path := c.Args().First()
			doc, err := r.parseFile(path)
			if err != nil {
				return err
			}

			format := r.cfg.Export.Format
			if c.IsSet("format") {
				format = c.String("format")
			}
			out := c.String("out")

			switch format {
			case "json", "yaml":
				return r.writeExport(out, format, doc)
			case "sqlite":
				if out == "" {
					out = r.cfg.Export.SQLitePath
				}
				return r.exportSQLite(c.Context, out, path, doc)
			default:
				return cli.Exit(fmt.Sprintf("export: unknown format %q", format), 2)
			}
		},
	}
}

func (r *runner) writeExport(out, format string, doc *cif.Document) (err error) {
	w := r.stdout
	if out != "" {
		var f *os.File
		f, err = os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %q: %w", out, err)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if format == "yaml" {
		return export.WriteYAML(w, doc)
	}
	indent := ""
	if r.cfg.Export.Pretty {
		indent = "  "
	}
	return export.WriteJSON(w, doc, indent)
}

func (r *runner) exportSQLite(ctx context.Context, out, name string, doc *cif.Document) error {
	e, err := export.OpenSQLite(out)
	if err != nil {
		return err
	}
	defer e.Close()

	id, err := e.Export(ctx, filepath.Base(name), doc)
	if err != nil {
		return err
	}
	r.logger.Info("exported document", "file", name, "db", out, "id", id)
	fmt.Fprintln(r.stdout, id)
	return nil
}

func (r *runner) watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "re-parse CIF files in a directory as they change",
		ArgsUsage: "DIR",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics on `ADDR`",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("watch: exactly one directory is required", 2)
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			collector := metrics.NewCollector(nil)
			addr := ""
			if r.cfg.Metrics.Enabled {
				addr = r.cfg.Metrics.Address
			}
			if c.IsSet("metrics-addr") {
				addr = c.String("metrics-addr")
			}
			if addr != "" {
				srv := r.serveMetrics(addr, collector)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
			}

			w, err := watch.New(watch.Config{
				Dir:        c.Args().First(),
				Debounce:   time.Duration(r.cfg.Watch.DebounceMS) * time.Millisecond,
				Extensions: r.cfg.Watch.Extensions,
			}, r.logger)
			if err != nil {
				return err
			}

			return w.Watch(ctx, func(path string) { r.reparse(path, collector) })
		},
	}
}

// reparse parses path, records the outcome and logs it.
func (r *runner) reparse(path string, collector *metrics.Collector) {
	data, err := os.ReadFile(path)
	if err != nil {
		collector.ObserveParse(0, 0, nil, err)
		r.logger.Warn("failed to read file", "file", path, "error", err)
		return
	}

	start := time.Now()
	doc, err := r.parser(path).Parse(string(data))
	collector.ObserveParse(len(data), time.Since(start), doc, err)

	if err != nil {
		r.logger.Error("parse failed", "file", path, "result", metrics.Result(err), "error", err)
		return
	}
	r.logger.Info("parsed", "file", path, "blocks", doc.Len(), "names", doc.BlockNames())
}

func (r *runner) serveMetrics(addr string, collector *metrics.Collector) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(r.cfg.Metrics.Path, collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		r.logger.Info("serving metrics", "addr", addr, "path", r.cfg.Metrics.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}
