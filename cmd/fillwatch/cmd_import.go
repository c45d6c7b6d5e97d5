package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/HerbHall/fillwatch/internal/spc"
	"go.uber.org/zap"
)

// runImport loads an .xlsx workbook into the local measurement table.
func runImport(args []string) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file")
	sheet := fs.String("sheet", "", "worksheet name (default: first sheet)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: fillwatch import [-config file] [-sheet name] <workbook.xlsx>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	ctx := context.Background()
	env, err := bootstrap(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fillwatch import: %v\n", err)
		return 1
	}
	defer env.close()

	n, err := importWorkbook(ctx, env, fs.Arg(0), *sheet)
	if err != nil {
		env.logger.Error("import failed", zap.String("file", fs.Arg(0)), zap.Error(err))
		fmt.Fprintf(os.Stderr, "fillwatch import: %v\n", err)
		return 1
	}
	fmt.Printf("imported %d measurements\n", n)
	return 0
}

func importWorkbook(ctx context.Context, env *runtimeEnv, path, sheet string) (int, error) {
	table := env.viper.GetString("plugins.spc.source.table")
	if err := spc.EnsureTable(ctx, env.db, table); err != nil {
		return 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	ms, err := spc.ReadWorkbook(f, sheet)
	if err != nil {
		return 0, err
	}
	n, err := spc.InsertMeasurements(ctx, env.db, table, ms)
	if err != nil {
		return 0, err
	}
	env.logger.Info("workbook imported",
		zap.String("file", path),
		zap.String("table", table),
		zap.Int("measurements", n),
	)
	return n, nil
}
