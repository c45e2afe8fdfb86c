// Command cif checks, inspects and exports CIF 1.1 files.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cifkit/cif"
	"github.com/cifkit/cif/internal/config"
	"github.com/cifkit/cif/internal/logging"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runner carries the state shared by all commands once Before has run.
type runner struct {
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
	logger *slog.Logger
}

func newApp(stdout, stderr io.Writer) *cli.App {
	r := &runner{stdout: stdout, stderr: stderr}

	return &cli.App{
		Name:      "cif",
		Usage:     "check, inspect and export CIF 1.1 files",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration file (.yaml, .yml or .toml)",
				EnvVars: []string{"CIF_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "text or json",
			},
			&cli.Int64Flag{
				Name:  "max-size",
				Usage: "reject inputs larger than `BYTES` (0 for no limit)",
			},
		},
		Before: r.setup,
		Commands: []*cli.Command{
			r.checkCommand(),
			r.showCommand(),
			r.getCommand(),
			r.exportCommand(),
			r.watchCommand(),
		},
	}
}

// setup loads the configuration, applies flag overrides and builds the
// logger.
func (r *runner) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if c.IsSet("max-size") {
		cfg.Parse.MaxSize = c.Int64("max-size")
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
		Writer:    r.stderr,
	})
	if err != nil {
		return err
	}

	r.cfg = cfg
	r.logger = logger
	return nil
}

// parser returns a parser configured for path.
func (r *runner) parser(path string) *cif.Parser {
	return cif.NewParser().
		WithLogger(r.logger).
		WithMaxSize(r.cfg.Parse.MaxSize).
		WithFilename(path)
}

func (r *runner) parseFile(path string) (*cif.Document, error) {
	return r.parser(path).ParseFile(path)
}
