package main

import (
	"errors"
	"flag"
	"io"
	"testing"

	pkgspc "github.com/HerbHall/fillwatch/pkg/spc"
)

func TestChartRequest(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantRules *pkgspc.RuleSet
		wantErr   error
	}{
		{"rules omitted uses defaults", []string{"-batch", "B-1"}, nil, nil},
		{"explicit empty rules", []string{"-rules", ""}, ptr(pkgspc.RuleSet(0)), nil},
		{"explicit rules", []string{"-rules", "nr2,NR3"}, ptr(pkgspc.NewRuleSet(pkgspc.RuleNR2, pkgspc.RuleNR3)), nil},
		{"unknown rule", []string{"-rules", "NR4"}, nil, pkgspc.ErrUnknownRule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
			fs.SetOutput(io.Discard)
			batch := fs.String("batch", "", "")
			mode := fs.String("mode", "", "")
			rules := fs.String("rules", "", "")
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			req, err := chartRequest(fs, *batch, *mode, *rules)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("chartRequest() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			switch {
			case tt.wantRules == nil && req.Rules != nil:
				t.Errorf("Rules = %v, want nil", *req.Rules)
			case tt.wantRules != nil && (req.Rules == nil || *req.Rules != *tt.wantRules):
				t.Errorf("Rules = %v, want %v", req.Rules, *tt.wantRules)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }
