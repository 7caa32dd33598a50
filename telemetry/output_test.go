package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/flock/config"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("", true)
	if err != nil {
		t.Fatalf("NewOutputManager failed: %v", err)
	}
	if om != nil {
		t.Fatal("expected nil manager for empty dir")
	}

	// Nil manager is safe to use
	if err := om.WriteEpoch(EpochStats{}, nil); err != nil {
		t.Errorf("WriteEpoch on nil manager: %v", err)
	}
	if err := om.WriteConfig(config.Default()); err != nil {
		t.Errorf("WriteConfig on nil manager: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("Close on nil manager: %v", err)
	}
	if om.Dir() != "" {
		t.Error("nil manager should report empty dir")
	}
}

func TestOutputManagerWritesEpochs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir, true)
	if err != nil {
		t.Fatalf("NewOutputManager failed: %v", err)
	}

	if err := om.WriteConfig(config.Default()); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}

	for gen := 0; gen < 3; gen++ {
		stats := EpochStats{Generation: gen, Tick: (gen + 1) * 300, BestFitness: 0.5 + 0.1*float64(gen), MeanFitness: 0.4}
		species := []SpeciesRow{
			{Generation: gen, SpeciesID: 1, Size: 6},
			{Generation: gen, SpeciesID: 2, Size: 4},
		}
		if err := om.WriteEpoch(stats, species); err != nil {
			t.Fatalf("WriteEpoch failed: %v", err)
		}
		if err := om.WritePerf(PerfStats{}, gen); err != nil {
			t.Fatalf("WritePerf failed: %v", err)
		}
	}

	if err := om.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var epochs []EpochStats
	if err := readCSV(filepath.Join(dir, EpochsFile), &epochs); err != nil {
		t.Fatalf("reading epochs: %v", err)
	}
	if len(epochs) != 3 {
		t.Fatalf("expected 3 epoch rows, got %d", len(epochs))
	}
	if epochs[2].Generation != 2 || epochs[2].Tick != 900 {
		t.Errorf("last epoch row = %+v", epochs[2])
	}

	var species []SpeciesRow
	if err := readCSV(filepath.Join(dir, SpeciesFile), &species); err != nil {
		t.Fatalf("reading species: %v", err)
	}
	if len(species) != 6 {
		t.Errorf("expected 6 species rows, got %d", len(species))
	}

	for _, name := range []string{ConfigFile, PerfFile, PlotFile} {
		if info, err := os.Stat(filepath.Join(dir, name)); err != nil || info.Size() == 0 {
			t.Errorf("%s missing or empty: %v", name, err)
		}
	}
}

func TestOutputManagerSkipsPlotWithoutHistory(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, true)
	if err != nil {
		t.Fatalf("NewOutputManager failed: %v", err)
	}
	if err := om.WriteEpoch(EpochStats{Generation: 0}, nil); err != nil {
		t.Fatalf("WriteEpoch failed: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, PlotFile)); !os.IsNotExist(err) {
		t.Error("fitness plot should not be written for a single epoch")
	}
}

func readCSV(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.UnmarshalFile(f, out)
}
