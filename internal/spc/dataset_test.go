package spc

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/HerbHall/fillwatch/internal/testutil"
	pkgspc "github.com/HerbHall/fillwatch/pkg/spc"
)

var testMissing = DefaultConfig().MissingModes

// sampleMeasurements returns two batches across two modes plus one row with
// a missing mode, deliberately out of timestamp order.
func sampleMeasurements() []pkgspc.Measurement {
	t0 := testutil.BaseTime
	var ms []pkgspc.Measurement
	ms = append(ms, testutil.Series("B-002", "Production", t0.Add(time.Hour), 100, 100, 100, 100)...)
	ms = append(ms, testutil.Series("B-001", "Setup", t0.Add(10*time.Minute), 120)...)
	ms = append(ms, testutil.Series("B-001", "Production", t0, 100, 101, 99)...)
	ms = append(ms, testutil.Series("B-001", "nan", t0.Add(20*time.Minute), 100)...)
	return ms
}

func mustDataset(t *testing.T, ms []pkgspc.Measurement) *Dataset {
	t.Helper()
	d, err := NewDataset(ms, testMissing)
	if err != nil {
		t.Fatalf("NewDataset() error = %v", err)
	}
	return d
}

func TestNewDataset_Catalogue(t *testing.T) {
	d := mustDataset(t, sampleMeasurements())

	if got := d.Len(); got != 9 {
		t.Errorf("Len() = %d, want 9", got)
	}
	if got, want := d.Batches(), []string{"B-001", "B-002"}; !slices.Equal(got, want) {
		t.Errorf("Batches() = %v, want %v", got, want)
	}
	// B-001 Production is earliest, then B-001 Setup; "nan" is excluded.
	if got, want := d.Modes(), []string{"Production", "Setup"}; !slices.Equal(got, want) {
		t.Errorf("Modes() = %v, want %v", got, want)
	}
	for i := 1; i < len(d.rows); i++ {
		if d.rows[i].Timestamp.Before(d.rows[i-1].Timestamp) {
			t.Fatalf("rows not in timestamp order at %d", i)
		}
	}
}

func TestNewDataset_StatisticsIgnoreMode(t *testing.T) {
	d := mustDataset(t, sampleMeasurements())

	st, err := d.Statistics("B-001")
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	// 100, 101, 99, 120, 100 across all modes.
	if st.Count != 5 {
		t.Errorf("Count = %d, want 5", st.Count)
	}
	if st.Mean != 104 {
		t.Errorf("Mean = %v, want 104", st.Mean)
	}
	if _, err := d.Statistics("B-404"); !errors.Is(err, ErrUnknownBatch) {
		t.Errorf("Statistics(unknown) error = %v, want ErrUnknownBatch", err)
	}
	if all := d.AllStatistics(); len(all) != 2 || all[0].Batch != "B-001" {
		t.Errorf("AllStatistics() = %+v", all)
	}
}

func TestNewDataset_DoesNotReorderInput(t *testing.T) {
	ms := sampleMeasurements()
	first := ms[0].ID
	_ = mustDataset(t, ms)
	if ms[0].ID != first {
		t.Error("NewDataset reordered its input")
	}
}

func TestSelect(t *testing.T) {
	d := mustDataset(t, sampleMeasurements())

	tests := []struct {
		name    string
		batch   string
		mode    string
		wantLen int
		wantErr error
	}{
		{"batch and mode", "B-001", "Production", 3, nil},
		{"other mode", "B-001", "Setup", 1, nil},
		{"mode absent from batch", "B-002", "Setup", 0, nil},
		{"unknown mode", "B-001", "Cleaning", 0, nil},
		{"unknown batch", "B-404", "Production", 0, ErrUnknownBatch},
		{"missing mode sentinel", "B-001", "nan", 0, ErrMissingMode},
		{"empty mode sentinel", "B-001", "", 0, ErrMissingMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Select(tt.batch, tt.mode)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Select() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got == nil {
				t.Fatal("Select() returned nil, want empty slice")
			}
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			for i, r := range got {
				if r.Index != i {
					t.Errorf("row %d Index = %d", i, r.Index)
				}
				if r.Batch != tt.batch || r.Mode != tt.mode {
					t.Errorf("row %d = %s/%s", i, r.Batch, r.Mode)
				}
			}
		})
	}
}

func TestSelect_PreservesDatasetOrder(t *testing.T) {
	d := mustDataset(t, sampleMeasurements())
	got, err := d.Select("B-001", "Production")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	var values []float64
	for _, r := range got {
		values = append(values, r.Value)
	}
	if want := []float64{100, 101, 99}; !slices.Equal(values, want) {
		t.Errorf("values = %v, want %v", values, want)
	}
}

func TestNewDataset_SinglePointBatchHasNoSigma(t *testing.T) {
	d := mustDataset(t, testutil.Series("B-009", "Production", testutil.BaseTime, 250))
	rows, err := d.Select("B-009", "Production")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if _, _, ok := rows[0].Sigma(); ok {
		t.Error("single-point batch should have undefined sigma thresholds")
	}
	chart, err := d.Chart("B-009", "Production", pkgspc.NewRuleSet(pkgspc.RuleNR1))
	if err != nil {
		t.Fatalf("Chart() error = %v", err)
	}
	if n := chart.Result.Count(pkgspc.RuleNR1); n != 0 {
		t.Errorf("NR1 flags = %d, want 0 without thresholds", n)
	}
}

func TestChart_FlagsOutlier(t *testing.T) {
	// Twenty points at 100 and one at 130: sigma is small enough that the
	// outlier crosses mean + 3 sigma.
	values := make([]float64, 20, 21)
	for i := range values {
		values[i] = 100
	}
	values = append(values, 130)
	d := mustDataset(t, testutil.Series("B-001", "Production", testutil.BaseTime, values...))

	chart, err := d.Chart("B-001", "Production", pkgspc.NewRuleSet(pkgspc.RuleNR1, pkgspc.RuleNR2))
	if err != nil {
		t.Fatalf("Chart() error = %v", err)
	}
	if len(chart.Series) != 21 || chart.Statistics.Count != 21 {
		t.Fatalf("series = %d, count = %d", len(chart.Series), chart.Statistics.Count)
	}
	nr1 := chart.Result.Flags[pkgspc.RuleNR1]
	if len(nr1) != 1 || nr1[0].Index != 20 || nr1[0].Direction != pkgspc.DirectionAbove {
		t.Errorf("NR1 flags = %+v, want one above at index 20", nr1)
	}
	if !slices.Equal(chart.Result.Rules, []pkgspc.Rule{pkgspc.RuleNR1, pkgspc.RuleNR2}) {
		t.Errorf("Rules = %v", chart.Result.Rules)
	}
}

func TestNewDataset_Empty(t *testing.T) {
	d := mustDataset(t, nil)
	if d.Len() != 0 || len(d.Batches()) != 0 || len(d.Modes()) != 0 {
		t.Errorf("empty dataset = %d rows, %v, %v", d.Len(), d.Batches(), d.Modes())
	}
}
