// Package telemetry records per-epoch statistics, timing and run output.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/flock/config"
)

// Output file names within the output directory.
const (
	EpochsFile  = "epochs.csv"
	SpeciesFile = "species.csv"
	PerfFile    = "perf.csv"
	ConfigFile  = "config.yaml"
	PlotFile    = "fitness.png"
)

// csvFile is an output CSV that writes its header with the first record.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

func (c *csvFile) write(records any) error {
	if !c.headerWritten {
		if err := gocsv.Marshal(records, c.f); err != nil {
			return err
		}
		c.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, c.f)
}

// OutputManager handles structured run output. A nil *OutputManager discards everything.
type OutputManager struct {
	dir     string
	epochs  csvFile
	species csvFile
	perf    csvFile
	plot    bool

	// Recorded epochs, kept for the fitness chart
	history []EpochStats
}

// NewOutputManager creates the output directory and opens the CSV files.
// Returns nil if dir is empty (output disabled). plot enables fitness.png on Close.
func NewOutputManager(dir string, plot bool) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir, plot: plot}
	files := []struct {
		name string
		dst  *csvFile
	}{
		{EpochsFile, &om.epochs},
		{SpeciesFile, &om.species},
		{PerfFile, &om.perf},
	}
	for _, file := range files {
		f, err := os.Create(filepath.Join(dir, file.name))
		if err != nil {
			om.closeFiles()
			return nil, fmt.Errorf("creating %s: %w", file.name, err)
		}
		file.dst.f = f
	}

	return om, nil
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, ConfigFile))
}

// WriteEpoch appends an epoch record to epochs.csv and its species to species.csv.
func (om *OutputManager) WriteEpoch(stats EpochStats, species []SpeciesRow) error {
	if om == nil {
		return nil
	}

	if err := om.epochs.write([]EpochStats{stats}); err != nil {
		return fmt.Errorf("writing epochs: %w", err)
	}
	om.history = append(om.history, stats)

	if len(species) > 0 {
		if err := om.species.write(species); err != nil {
			return fmt.Errorf("writing species: %w", err)
		}
	}
	return nil
}

// WritePerf appends a performance record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, generation int) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write([]PerfRow{stats.Row(generation)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close renders the fitness chart if enabled and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	if om.plot && len(om.history) >= 2 {
		if err := WriteFitnessPlot(om.history, filepath.Join(om.dir, PlotFile)); err != nil {
			firstErr = fmt.Errorf("writing fitness plot: %w", err)
		}
	}

	if err := om.closeFiles(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (om *OutputManager) closeFiles() error {
	var firstErr error
	for _, c := range []*csvFile{&om.epochs, &om.species, &om.perf} {
		if c.f == nil {
			continue
		}
		if err := c.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.f = nil
	}
	return firstErr
}
