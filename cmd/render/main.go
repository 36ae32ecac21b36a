package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"

	"github.com/wavesplatform/gorender/pkg/diag"
	"github.com/wavesplatform/gorender/pkg/logging"
	"github.com/wavesplatform/gorender/pkg/output"
	"github.com/wavesplatform/gorender/pkg/render"
	"github.com/wavesplatform/gorender/pkg/template"
)

type config struct {
	lp          logging.Parameters
	template    string
	vars        string
	bufferSize  int
	autoFlush   bool
	strict      bool
	drain       bool
	placeholder string
}

func (c *config) parse(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	c.lp.Initialize(fs)
	fs.StringVarP(&c.template, "template", "t", "", "Path to the JSON template document")
	fs.StringVar(&c.vars, "vars", "", "Path to the JSON object with template variables")
	fs.IntVar(&c.bufferSize, "buffer-size", output.DefaultSize,
		"Size of the output buffer in bytes, 0 disables buffering")
	fs.BoolVar(&c.autoFlush, "auto-flush", true, "Flush the output buffer when it becomes full")
	fs.BoolVar(&c.strict, "strict", false, "Fail if any diagnostic is reported")
	fs.BoolVar(&c.drain, "drain", false,
		"Flush a full buffer and retry instead of failing when auto-flush is disabled")
	fs.StringVar(&c.placeholder, "placeholder", render.PlaceholderEmpty.String(),
		"Output for expressions without a value: empty or source")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.lp.Parse(); err != nil {
		return err
	}
	if c.template == "" {
		return errors.New("template path is required")
	}
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], afero.NewOsFs(), os.Stdout, os.Stderr))
}

func run(args []string, fs afero.Fs, stdout, stderr io.Writer) int {
	cfg := new(config)
	if err := cfg.parse(args, stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		_, _ = fmt.Fprintf(stderr, "Invalid parameters: %v\n", err)
		return 1
	}
	logger := slog.New(logging.DefaultHandler(cfg.lp, stderr))
	if err := renderDocument(cfg, fs, stdout, logger); err != nil {
		logger.Error("Rendering failed", logging.Error(err))
		return 1
	}
	return 0
}

func renderDocument(cfg *config, fs afero.Fs, stdout io.Writer, logger *slog.Logger) error {
	mode, err := render.ParsePlaceholderMode(cfg.placeholder)
	if err != nil {
		return err
	}
	t, err := render.LoadDocument(fs, cfg.template)
	if err != nil {
		return err
	}
	vars := make(map[string]template.Value)
	if cfg.vars != "" {
		vars, err = render.LoadVariables(fs, cfg.vars)
		if err != nil {
			return err
		}
	}
	logger.Debug("Template loaded", slog.String("template", t.Name),
		slog.Int("segments", len(t.Segments)), slog.Int("variables", len(vars)))

	reporter := diag.NewSlogReporter(logger)
	sink, err := output.New(bufio.NewWriter(stdout), cfg.bufferSize, cfg.autoFlush,
		output.WithReporter(reporter), output.WithName(t.Name))
	if err != nil {
		return err
	}
	r := render.NewRenderer(reporter, render.Options{
		Placeholder:     mode,
		DrainOnOverflow: cfg.drain,
		Strict:          cfg.strict,
	})
	renderErr := r.Render(template.NewMapContext(t.Name, vars), t, sink)
	if err := sink.Close(); err != nil {
		return errors.Wrap(err, "failed to write output")
	}
	return renderErr
}
