package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/HerbHall/fillwatch/internal/testutil"
	"github.com/HerbHall/fillwatch/pkg/spc"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		wantMean   float64
		wantMedian float64
		wantStdDev float64
		wantSigma  bool
	}{
		{
			name:       "odd count",
			values:     []float64{2, 4, 4, 4, 5, 5, 7, 9, 1},
			wantMean:   41.0 / 9.0,
			wantMedian: 4,
			wantStdDev: 2.403,
			wantSigma:  true,
		},
		{
			name:       "even count averages middle values",
			values:     []float64{10, 20, 30, 40},
			wantMean:   25,
			wantMedian: 25,
			wantStdDev: 12.910,
			wantSigma:  true,
		},
		{
			name:       "constant batch has zero deviation",
			values:     []float64{100, 100, 100},
			wantMean:   100,
			wantMedian: 100,
			wantStdDev: 0,
			wantSigma:  true,
		},
		{
			name:       "single measurement has no deviation",
			values:     []float64{42},
			wantMean:   42,
			wantMedian: 42,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize("B", tt.values)
			if s.Count != len(tt.values) {
				t.Errorf("Count = %d, want %d", s.Count, len(tt.values))
			}
			if math.Abs(s.Mean-tt.wantMean) > 0.001 {
				t.Errorf("Mean = %v, want %v", s.Mean, tt.wantMean)
			}
			if s.Median != tt.wantMedian {
				t.Errorf("Median = %v, want %v", s.Median, tt.wantMedian)
			}
			plus, minus, ok := s.Sigma()
			if ok != tt.wantSigma {
				t.Fatalf("Sigma() ok = %v, want %v", ok, tt.wantSigma)
			}
			if !ok {
				if s.StdDev != nil {
					t.Errorf("StdDev = %v, want nil", *s.StdDev)
				}
				return
			}
			if math.Abs(*s.StdDev-tt.wantStdDev) > 0.001 {
				t.Errorf("StdDev = %v, want %v", *s.StdDev, tt.wantStdDev)
			}
			if math.Abs(plus-(s.Mean+3**s.StdDev)) > 1e-9 {
				t.Errorf("SigmaPlus = %v, want mean+3sd", plus)
			}
			if math.Abs(minus-(s.Mean-3**s.StdDev)) > 1e-9 {
				t.Errorf("SigmaMinus = %v, want mean-3sd", minus)
			}
		})
	}
}

func TestSummarize_DoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Summarize("B", values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input mutated: %v", values)
	}
}

func TestCompute_GroupsByBatchIgnoringMode(t *testing.T) {
	ms := append(
		testutil.Series("A", "Production", testutil.BaseTime, 10, 12),
		testutil.Series("A", "Setup", testutil.BaseTime, 14)...,
	)
	ms = append(ms, testutil.Series("B", "Production", testutil.BaseTime, 50)...)

	table := Compute(ms)
	if len(table) != 2 {
		t.Fatalf("len(table) = %d, want 2", len(table))
	}

	a := table["A"]
	if a.Count != 3 {
		t.Errorf("A.Count = %d, want 3 (all modes)", a.Count)
	}
	if a.Mean != 12 {
		t.Errorf("A.Mean = %v, want 12", a.Mean)
	}

	b := table["B"]
	if _, _, ok := b.Sigma(); ok {
		t.Error("B has one measurement; sigma thresholds should be undefined")
	}
}

func TestAnnotate(t *testing.T) {
	ms := testutil.Series("A", "Production", testutil.BaseTime, 10, 20, 30)
	table := Compute(ms)

	got, err := Annotate(ms, table)
	if err != nil {
		t.Fatalf("Annotate() error = %v", err)
	}
	if len(got) != len(ms) {
		t.Fatalf("len = %d, want %d", len(got), len(ms))
	}
	for i, a := range got {
		if a.ID != ms[i].ID {
			t.Errorf("row %d ID = %q, want %q (order preserved)", i, a.ID, ms[i].ID)
		}
		if a.Mean != 20 {
			t.Errorf("row %d Mean = %v, want 20", i, a.Mean)
		}
		plus, minus, ok := a.Sigma()
		if !ok {
			t.Fatalf("row %d has no sigma thresholds", i)
		}
		if plus != *table["A"].SigmaPlus || minus != *table["A"].SigmaMinus {
			t.Errorf("row %d sigma = (%v, %v), want batch thresholds", i, plus, minus)
		}
	}

	// Rows own their threshold values.
	*got[0].SigmaPlus = 0
	if *got[1].SigmaPlus == 0 || *table["A"].SigmaPlus == 0 {
		t.Error("annotated rows share threshold storage")
	}
}

func TestAnnotate_IntegrityFault(t *testing.T) {
	ms := testutil.Series("A", "Production", testutil.BaseTime, 10, 20)
	table := Table{"B": spc.BatchStatistics{Batch: "B"}}

	_, err := Annotate(ms, table)
	if !errors.Is(err, ErrIntegrityFault) {
		t.Fatalf("Annotate() error = %v, want ErrIntegrityFault", err)
	}
}

func TestAnnotate_Empty(t *testing.T) {
	got, err := Annotate(nil, Table{})
	if err != nil {
		t.Fatalf("Annotate(nil) error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}
