package neural

import (
	"math"
	"testing"
)

func TestNewSpeciesManager(t *testing.T) {
	sm := NewSpeciesManager(DefaultOptions().NEAT)

	if len(sm.Species) != 0 {
		t.Errorf("expected 0 species, got %d", len(sm.Species))
	}

	if sm.generation != 0 {
		t.Errorf("expected generation 0, got %d", sm.generation)
	}

	if len(sm.speciesColors) < 32 {
		t.Errorf("expected at least 32 pre-generated colors, got %d", len(sm.speciesColors))
	}
}

func TestSpeciesManagerAssignSpecies(t *testing.T) {
	sm := NewSpeciesManager(DefaultOptions().NEAT)
	genome := CreateBrainGenome(1, newTestRNG(), 1.0, -1, 1)

	speciesID := sm.AssignSpecies(genome)
	if speciesID == 0 {
		t.Error("expected non-zero species ID")
	}
	if len(sm.Species) != 1 {
		t.Errorf("expected 1 species, got %d", len(sm.Species))
	}

	// Same genome should get same species
	if again := sm.AssignSpecies(genome); again != speciesID {
		t.Errorf("same genome should get same species: %d != %d", again, speciesID)
	}

	// A distant genome founds a new species
	far, _ := CloneGenome(genome, 2)
	for _, g := range far.Genes {
		g.Link.ConnectionWeight += 100
	}
	if other := sm.AssignSpecies(far); other == speciesID {
		t.Error("distant genome should not join the existing species")
	}
}

func TestSpeciesManagerUpdateFitness(t *testing.T) {
	opts := DefaultOptions().NEAT
	sm := NewSpeciesManager(opts)
	genome := CreateBrainGenome(1, newTestRNG(), 1.0, -1, 1)

	id := sm.AssignSpecies(genome)
	sm.AddMember(id, 0)
	sm.AddMember(id, 1)

	sm.UpdateFitness([]float64{0.2, 0.6})
	sp := sm.Get(id)
	if sp.BestFitness != 0.6 || sp.GenBest != 0.6 {
		t.Errorf("best fitness = %f/%f, want 0.6", sp.BestFitness, sp.GenBest)
	}
	if math.Abs(sp.AvgFitness-0.4) > 1e-12 {
		t.Errorf("avg fitness = %f, want 0.4", sp.AvgFitness)
	}
	sm.EndGeneration()

	// No improvement: staleness grows
	for i := 1; i <= 3; i++ {
		sm.UpdateFitness([]float64{0.1, 0.5})
		sm.EndGeneration()
		if sp.Staleness != i {
			t.Errorf("after %d flat generations staleness = %d", i, sp.Staleness)
		}
	}

	// Improvement resets staleness
	sm.UpdateFitness([]float64{0.1, 0.7})
	if sp.Staleness != 0 {
		t.Errorf("staleness after improvement = %d, want 0", sp.Staleness)
	}
}

func TestSpeciesManagerRemoveStaleSpecies(t *testing.T) {
	opts := DefaultOptions().NEAT
	opts.DropOffAge = 2
	sm := NewSpeciesManager(opts)

	for i := 0; i < 3; i++ {
		sm.Species = append(sm.Species, &Species{ID: i + 1, Members: []int{i}})
	}
	sm.Species[0].Staleness = 5
	sm.Species[1].Staleness = 5
	sm.Species[2].Staleness = 1

	sm.RemoveStaleSpecies(2)

	if len(sm.Species) != 2 {
		t.Fatalf("expected 2 species to remain, got %d", len(sm.Species))
	}
	if sm.Get(1) != nil {
		t.Error("stale species 1 should be removed")
	}
	if sm.Get(2) == nil {
		t.Error("protected species 2 should be kept")
	}
}

func TestSpeciesManagerKeepTop(t *testing.T) {
	sm := NewSpeciesManager(DefaultOptions().NEAT)
	for i, f := range []float64{0.3, 0.9, 0.1, 0.5} {
		sm.Species = append(sm.Species, &Species{ID: i + 1, BestFitness: f, Staleness: 4, Members: []int{i}})
	}

	sm.KeepTop(2)

	if len(sm.Species) != 2 {
		t.Fatalf("expected 2 species, got %d", len(sm.Species))
	}
	if sm.Species[0].ID != 2 || sm.Species[1].ID != 4 {
		t.Errorf("expected species 2 and 4, got %d and %d", sm.Species[0].ID, sm.Species[1].ID)
	}
	for _, sp := range sm.Species {
		if sp.Staleness != 0 {
			t.Errorf("species %d staleness = %d, want 0", sp.ID, sp.Staleness)
		}
	}
}

func TestSpeciesManagerStats(t *testing.T) {
	sm := NewSpeciesManager(DefaultOptions().NEAT)
	sm.Species = []*Species{
		{ID: 1, Members: []int{0, 1, 2}, BestFitness: 0.4, Staleness: 2},
		{ID: 2, Members: []int{3}, BestFitness: 0.7, Staleness: 0},
	}

	stats := sm.GetStats()
	if stats.Count != 2 || stats.TotalMembers != 4 {
		t.Errorf("count/members = %d/%d, want 2/4", stats.Count, stats.TotalMembers)
	}
	if stats.LargestSize != 3 || stats.SmallestSize != 1 {
		t.Errorf("largest/smallest = %d/%d, want 3/1", stats.LargestSize, stats.SmallestSize)
	}
	if stats.BestFitness != 0.7 {
		t.Errorf("best = %f, want 0.7", stats.BestFitness)
	}
	if stats.AverageStaleness != 1 {
		t.Errorf("avg staleness = %f, want 1", stats.AverageStaleness)
	}

	top := sm.GetTopSpecies(1)
	if len(top) != 1 || top[0].ID != 1 {
		t.Errorf("top species by size should be 1, got %+v", top)
	}
}

func TestSpeciesColorsDistinct(t *testing.T) {
	seen := make(map[SpeciesColor]bool)
	for i := 0; i < 16; i++ {
		c := SpeciesColorFor(i)
		if seen[c] {
			t.Errorf("color for species %d repeats an earlier one", i)
		}
		seen[c] = true
	}
}
