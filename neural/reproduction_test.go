package neural

import (
	"math/rand"
	"testing"

	"github.com/yaricom/goNEAT/v4/neat/genetics"
)

func TestGenomeIDGenerator(t *testing.T) {
	gen := NewGenomeIDGenerator()

	id1 := gen.NextID()
	id2 := gen.NextID()
	id3 := gen.NextID()

	if id1 >= id2 || id2 >= id3 {
		t.Errorf("IDs should be strictly increasing: %d, %d, %d", id1, id2, id3)
	}

	innov1 := gen.NextInnovation()
	innov2 := gen.NextInnovation()

	if innov1 >= innov2 {
		t.Errorf("innovations should be strictly increasing: %d, %d", innov1, innov2)
	}
	if innov1 <= initialInnovation(BrainInputs, BrainOutputs-1) {
		t.Errorf("generated innovation %d collides with fresh-genome innovations", innov1)
	}

	if node := gen.NextNodeID(); node < firstFreeNodeID {
		t.Errorf("hidden node ID %d overlaps input/output IDs", node)
	}
}

func TestInnovationCacheSharesStructure(t *testing.T) {
	ids := NewGenomeIDGenerator()
	cache := NewInnovationCache(ids)

	a := cache.link(1, 10)
	b := cache.link(1, 10)
	c := cache.link(2, 10)
	if a != b {
		t.Errorf("same link in one generation should share innovation: %d vs %d", a, b)
	}
	if a == c {
		t.Error("different links should not share innovation")
	}

	s1 := cache.split(5)
	s2 := cache.split(5)
	if s1 != s2 {
		t.Errorf("same split should share node and innovations: %+v vs %+v", s1, s2)
	}

	cache.Reset()
	if d := cache.link(1, 10); d == a {
		t.Error("reset cache should hand out a new innovation")
	}
}

func TestCrossoverGenomes(t *testing.T) {
	rng := newTestRNG()
	parent1 := CreateBrainGenome(1, rng, 0.5, -1, 1)
	parent2 := CreateBrainGenome(2, rng, 0.5, -1, 1)

	child, err := CrossoverGenomes(parent1, parent2, 1.0, 1.0, 3, rng, 0.75)
	if err != nil {
		t.Fatalf("CrossoverGenomes failed: %v", err)
	}

	if child.Id != 3 {
		t.Errorf("expected child ID 3, got %d", child.Id)
	}

	if len(child.Genes) == 0 {
		t.Error("child has no genes")
	}

	if _, err := NewBrain(child); err != nil {
		t.Errorf("child cannot build network: %v", err)
	}

	t.Logf("Created child genome with %d nodes and %d genes", len(child.Nodes), len(child.Genes))
}

func TestCrossoverInheritsFromFitterParent(t *testing.T) {
	rng := newTestRNG()
	cache := NewInnovationCache(NewGenomeIDGenerator())

	fit := CreateBrainGenome(1, rng, 1.0, -1, 1)
	weak, err := CloneGenome(fit, 2)
	if err != nil {
		t.Fatalf("CloneGenome failed: %v", err)
	}
	if !addNode(fit, cache, DefaultOptions().HiddenActivations, rng) {
		t.Fatal("addNode failed")
	}

	child, err := CrossoverGenomes(weak, fit, 0.1, 0.9, 3, rng, 0.75)
	if err != nil {
		t.Fatalf("CrossoverGenomes failed: %v", err)
	}
	if len(child.Genes) != len(fit.Genes) {
		t.Errorf("child should carry all %d genes of the fitter parent, got %d", len(fit.Genes), len(child.Genes))
	}

	child, err = CrossoverGenomes(weak, fit, 0.9, 0.1, 4, rng, 0.75)
	if err != nil {
		t.Fatalf("CrossoverGenomes failed: %v", err)
	}
	if len(child.Genes) != len(weak.Genes) {
		t.Errorf("child should only carry matching genes, got %d want %d", len(child.Genes), len(weak.Genes))
	}
}

func TestMutateGenome(t *testing.T) {
	rng := newTestRNG()
	opts := DefaultOptions()
	opts.NEAT.MutateLinkWeightsProb = 1.0
	opts.NEAT.MutateAddNodeProb = 1.0
	opts.NEAT.MutateAddLinkProb = 1.0
	cache := NewInnovationCache(NewGenomeIDGenerator())

	genome := CreateBrainGenome(1, rng, 0.5, -1, 1)
	originalNodes := len(genome.Nodes)

	mutated, err := MutateGenome(genome, opts, cache, rng)
	if err != nil {
		t.Fatalf("MutateGenome failed: %v", err)
	}
	if !mutated {
		t.Error("expected mutation to occur")
	}
	if len(genome.Nodes) != originalNodes+1 {
		t.Errorf("expected one new node, got %d -> %d", originalNodes, len(genome.Nodes))
	}

	for _, g := range genome.Genes {
		w := g.Link.ConnectionWeight
		if w < opts.MinWeight || w > opts.MaxWeight {
			t.Errorf("weight %f outside [%f, %f]", w, opts.MinWeight, opts.MaxWeight)
		}
	}

	for i := 1; i < len(genome.Genes); i++ {
		if genome.Genes[i-1].InnovationNum > genome.Genes[i].InnovationNum {
			t.Fatal("genes should stay ordered by innovation")
		}
	}

	if _, err := NewBrain(genome); err != nil {
		t.Errorf("mutated genome cannot build network: %v", err)
	}
}

func TestMutateWeightsClamps(t *testing.T) {
	rng := newTestRNG()
	opts := DefaultOptions()
	opts.ReinitializeWeightRate = 0
	opts.MinPerturb = 10
	opts.MaxPerturb = 10

	genome := CreateBrainGenome(1, rng, 1.0, -1, 1)
	mutateWeights(genome, opts, rng)

	for _, g := range genome.Genes {
		if g.Link.ConnectionWeight != opts.MaxWeight {
			t.Errorf("weight = %f, want clamp to %f", g.Link.ConnectionWeight, opts.MaxWeight)
		}
	}
}

func TestAddLinkRespectsRecurrentSetting(t *testing.T) {
	opts := DefaultOptions()
	opts.AllowRecurrent = false

	for seed := int64(0); seed < 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		cache := NewInnovationCache(NewGenomeIDGenerator())
		genome := CreateBrainGenome(1, rng, 1.0, -1, 1)
		addNode(genome, cache, opts.HiddenActivations, rng)
		for i := 0; i < 10; i++ {
			addLink(genome, cache, opts, rng)
		}
		for _, g := range genome.Genes {
			if g.Link.IsRecurrent {
				t.Fatalf("seed %d: recurrent link %d->%d created with recurrence disabled",
					seed, g.Link.InNode.Id, g.Link.OutNode.Id)
			}
		}
	}
}

func TestToggleEnableKeepsOutputsConnected(t *testing.T) {
	rng := newTestRNG()
	genome := CreateBrainGenome(1, rng, 0.0, -1, 1) // one link per output

	for i := 0; i < 100; i++ {
		toggleEnable(genome, rng)
	}

	for _, g := range genome.Genes {
		if !g.IsEnabled {
			t.Errorf("the only link into output %d was disabled", g.Link.OutNode.Id)
		}
	}
}

func TestCloneGenome(t *testing.T) {
	original := CreateBrainGenome(1, newTestRNG(), 0.5, -1, 1)

	clone, err := CloneGenome(original, 2)
	if err != nil {
		t.Fatalf("CloneGenome failed: %v", err)
	}

	if clone.Id != 2 {
		t.Errorf("expected clone ID 2, got %d", clone.Id)
	}

	if len(clone.Nodes) != len(original.Nodes) {
		t.Errorf("node count mismatch: original %d, clone %d", len(original.Nodes), len(clone.Nodes))
	}

	if len(clone.Genes) != len(original.Genes) {
		t.Errorf("gene count mismatch: original %d, clone %d", len(original.Genes), len(clone.Genes))
	}

	// Weights are copied, not shared
	clone.Genes[0].Link.ConnectionWeight = 99
	if original.Genes[0].Link.ConnectionWeight == 99 {
		t.Error("clone shares links with original")
	}
}

func TestGenomeCompatibility(t *testing.T) {
	opts := DefaultOptions().NEAT
	rng := newTestRNG()

	genome := CreateBrainGenome(1, rng, 1.0, -1, 1)
	if dist := GenomeCompatibility(genome, genome, opts); dist != 0 {
		t.Errorf("same genome should have 0 distance, got %f", dist)
	}

	// Same topology, weights shifted by 0.5: only the weight term contributes
	shifted, _ := CloneGenome(genome, 2)
	for _, g := range shifted.Genes {
		g.Link.ConnectionWeight += 0.5
	}
	want := opts.MutdiffCoeff * 0.5
	if dist := GenomeCompatibility(genome, shifted, opts); dist < want-1e-9 || dist > want+1e-9 {
		t.Errorf("weight-only distance = %f, want %f", dist, want)
	}

	// One excess gene
	extended, _ := CloneGenome(genome, 3)
	last := extended.Genes[len(extended.Genes)-1]
	extended.Genes = append(extended.Genes, genetics.NewGeneWithTrait(
		nil, last.Link.ConnectionWeight, last.Link.InNode, last.Link.OutNode, true, initialInnovNum, 0,
	))
	if dist := GenomeCompatibility(genome, extended, opts); dist != opts.ExcessCoeff {
		t.Errorf("one excess gene distance = %f, want %f", dist, opts.ExcessCoeff)
	}

	if dist := GenomeCompatibility(genome, extended, opts); dist != GenomeCompatibility(extended, genome, opts) {
		t.Error("compatibility should be symmetric")
	}
}

func BenchmarkCrossoverGenomes(b *testing.B) {
	rng := newTestRNG()
	parent1 := CreateBrainGenome(1, rng, 0.5, -1, 1)
	parent2 := CreateBrainGenome(2, rng, 0.5, -1, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = CrossoverGenomes(parent1, parent2, 1.0, 1.0, i+3, rng, 0.75)
	}
}

func BenchmarkMutateGenome(b *testing.B) {
	rng := newTestRNG()
	opts := DefaultOptions()
	cache := NewInnovationCache(NewGenomeIDGenerator())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		genome := CreateBrainGenome(i, rng, 0.5, -1, 1)
		_, _ = MutateGenome(genome, opts, cache, rng)
	}
}
