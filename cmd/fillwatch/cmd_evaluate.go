package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/HerbHall/fillwatch/internal/spc"
	pkgspc "github.com/HerbHall/fillwatch/pkg/spc"
)

// runEvaluate prints one chart as JSON.
func runEvaluate(args []string) int {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file")
	batch := fs.String("batch", "", "batch number (default: first batch)")
	mode := fs.String("mode", "", "IPC mode (default: first selectable mode)")
	rules := fs.String("rules", "", "comma-separated rules, e.g. NR1,NR2 (default: configured default_rules)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	req, err := chartRequest(fs, *batch, *mode, *rules)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fillwatch evaluate: %v\n", err)
		return 2
	}

	ctx := context.Background()
	env, err := bootstrap(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fillwatch evaluate: %v\n", err)
		return 1
	}
	defer env.close()

	if err := evaluate(ctx, env, req, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "fillwatch evaluate: %v\n", err)
		return 1
	}
	return 0
}

// chartRequest builds the request from flags. -rules given explicitly,
// even empty, overrides the defaults.
func chartRequest(fs *flag.FlagSet, batch, mode, rules string) (spc.ChartRequest, error) {
	req := spc.ChartRequest{Batch: batch, Mode: mode}
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "rules" {
			set = true
		}
	})
	if set {
		rs, err := pkgspc.ParseRuleSet(strings.Split(rules, ","))
		if err != nil {
			return req, err
		}
		req.Rules = &rs
	}
	return req, nil
}

func evaluate(ctx context.Context, env *runtimeEnv, req spc.ChartRequest, out io.Writer) error {
	m := spc.New()
	if err := m.Init(ctx, env.deps("spc")); err != nil {
		return err
	}
	if err := m.ValidateConfig(); err != nil {
		return err
	}
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = m.Stop(ctx) }()

	chart, err := m.Chart(req)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(chart)
}
