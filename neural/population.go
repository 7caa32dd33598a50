package neural

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/yaricom/goNEAT/v4/neat/genetics"

	"github.com/pthm-cable/flock/evo"
)

// Population is a fixed-size NEAT population of brains. It implements evo.Population.
type Population struct {
	opts       Options
	rng        *rand.Rand
	ids        *GenomeIDGenerator
	innov      *InnovationCache
	species    *SpeciesManager
	brains     []*Brain
	generation int

	// Population-level stagnation tracking
	bestEver   float64
	stagnation int

	// Children replaced by a parent clone because their network would not activate
	repaired int
}

// NewPopulation creates opts.PopulationSize fresh brains and speciates them.
func NewPopulation(opts Options, rng *rand.Rand) (*Population, error) {
	if opts.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be positive, got %d", opts.PopulationSize)
	}
	if opts.NEAT == nil {
		return nil, fmt.Errorf("missing NEAT options")
	}
	if len(opts.HiddenActivations) == 0 {
		return nil, fmt.Errorf("no hidden activations configured")
	}

	ids := NewGenomeIDGenerator()
	p := &Population{
		opts:     opts,
		rng:      rng,
		ids:      ids,
		innov:    NewInnovationCache(ids),
		species:  NewSpeciesManager(opts.NEAT),
		brains:   make([]*Brain, 0, opts.PopulationSize),
		bestEver: math.Inf(-1),
	}

	for i := 0; i < opts.PopulationSize; i++ {
		genome := CreateBrainGenome(ids.NextID(), rng, opts.InitialConnectionProb, opts.WeightInitMin, opts.WeightInitMax)
		brain, err := NewBrain(genome)
		if err != nil {
			return nil, fmt.Errorf("initial brain %d: %w", i, err)
		}
		p.brains = append(p.brains, brain)
	}

	p.speciate()
	return p, nil
}

// Controllers returns the current generation in population order.
func (p *Population) Controllers() []evo.Controller {
	out := make([]evo.Controller, len(p.brains))
	for i, b := range p.brains {
		out[i] = b
	}
	return out
}

// Brains returns the current generation.
func (p *Population) Brains() []*Brain {
	return p.brains
}

// Generation returns the number of completed Evolve calls.
func (p *Population) Generation() int {
	return p.generation
}

// Best returns the brain with the highest current fitness.
func (p *Population) Best() (evo.Controller, float64) {
	if len(p.brains) == 0 {
		return nil, 0
	}
	best := p.brains[0]
	for _, b := range p.brains[1:] {
		if b.Fitness() > best.Fitness() {
			best = b
		}
	}
	return best, best.Fitness()
}

// Species describes the current species.
func (p *Population) Species() []evo.SpeciesInfo {
	out := make([]evo.SpeciesInfo, 0, len(p.species.Species))
	for _, sp := range p.species.Species {
		out = append(out, evo.SpeciesInfo{
			ID:          sp.ID,
			Size:        len(sp.Members),
			BestFitness: sp.BestFitness,
			Staleness:   sp.Staleness,
		})
	}
	return out
}

// SpeciesManager exposes speciation state for display.
func (p *Population) SpeciesManager() *SpeciesManager {
	return p.species
}

// Repaired returns how many children have been replaced by a parent clone so far.
func (p *Population) Repaired() int {
	return p.repaired
}

// LogValue implements slog.LogValuer.
func (p *Population) LogValue() slog.Value {
	stats := p.species.GetStats()
	return slog.GroupValue(
		slog.Int("generation", p.generation),
		slog.Int("size", len(p.brains)),
		slog.Int("species", stats.Count),
		slog.Int("largest_species", stats.LargestSize),
		slog.Float64("avg_staleness", stats.AverageStaleness),
		slog.Int("stagnation", p.stagnation),
		slog.Int("repaired", p.repaired),
	)
}

// speciate assigns every brain to a species by compatibility with the representatives.
func (p *Population) speciate() {
	p.species.ClearMembers()
	for i, b := range p.brains {
		id := p.species.AssignSpecies(b.Genome)
		b.SpeciesID = id
		p.species.AddMember(id, i)
	}
	p.species.RemoveEmpty()
}

// offspring is a child genome and the parent to fall back to if it cannot activate.
type offspring struct {
	genome   *genetics.Genome
	fallback *genetics.Genome
}

// Evolve replaces the current generation with the same number of offspring.
//
// Species that have not improved for DropOffAge generations are dropped unless they
// hold the champion. After PopulationStagnationLimit generations without a new best,
// only the two best species reproduce. The NumElite fittest brains are copied
// unchanged; the rest of the slots are shared between species by fitness-shared
// score, and each species breeds from its top SurvivalThresh fraction.
func (p *Population) Evolve() error {
	n := len(p.brains)
	fitness := make([]float64, n)
	for i, b := range p.brains {
		f := b.Fitness()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			f = 0
		}
		fitness[i] = f
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return fitness[order[a]] > fitness[order[b]] })
	champ := order[0]

	p.species.UpdateFitness(fitness)
	p.species.RemoveStaleSpecies(p.brains[champ].SpeciesID)

	if fitness[champ] > p.bestEver {
		p.bestEver = fitness[champ]
		p.stagnation = 0
	} else {
		p.stagnation++
	}
	if limit := p.opts.PopulationStagnationLimit; limit > 0 && p.stagnation >= limit {
		p.species.KeepTop(2)
		p.stagnation = 0
	}

	next := make([]offspring, 0, n)

	numElite := min(max(p.opts.NumElite, 0), n)
	for _, idx := range order[:numElite] {
		clone, err := CloneGenome(p.brains[idx].Genome, p.ids.NextID())
		if err != nil {
			return fmt.Errorf("elite clone: %w", err)
		}
		next = append(next, offspring{genome: clone})
	}

	// Rank members and pick representatives from the outgoing generation
	for _, sp := range p.species.Species {
		sort.SliceStable(sp.Members, func(a, b int) bool {
			return fitness[sp.Members[a]] > fitness[sp.Members[b]]
		})
		sp.Representative = p.brains[sp.Members[0]].Genome
	}

	quotas := allocateOffspring(p.species.Species, fitness, n-numElite)
	for si, sp := range p.species.Species {
		sp.Offspring = quotas[si]
		survivors := survivorCount(len(sp.Members), p.opts.NEAT.SurvivalThresh)
		for k := 0; k < quotas[si]; k++ {
			child, err := p.breed(si, sp.Members[:survivors], fitness)
			if err != nil {
				return err
			}
			next = append(next, child)
		}
	}

	if len(next) != n {
		return fmt.Errorf("produced %d offspring for a population of %d", len(next), n)
	}

	brains := make([]*Brain, n)
	for i, o := range next {
		b, err := p.buildBrain(o)
		if err != nil {
			return fmt.Errorf("offspring %d: %w", i, err)
		}
		brains[i] = b
	}

	p.brains = brains
	p.generation++
	p.species.EndGeneration()
	p.innov.Reset()
	p.speciate()
	return nil
}

// breed produces one child from the survivors of species si.
func (p *Population) breed(si int, survivors []int, fitness []float64) (offspring, error) {
	mom := survivors[p.rng.Intn(len(survivors))]

	if len(survivors) == 1 || p.rng.Float64() < p.opts.NEAT.MutateOnlyProb {
		child, err := CloneGenome(p.brains[mom].Genome, p.ids.NextID())
		if err != nil {
			return offspring{}, fmt.Errorf("clone: %w", err)
		}
		if _, err := MutateGenome(child, p.opts, p.innov, p.rng); err != nil {
			return offspring{}, fmt.Errorf("mutate: %w", err)
		}
		return offspring{genome: child, fallback: p.brains[mom].Genome}, nil
	}

	dad := survivors[p.rng.Intn(len(survivors))]
	if all := p.species.Species; len(all) > 1 && p.rng.Float64() < p.opts.InterspeciesMatingRate {
		other := all[p.rng.Intn(len(all))]
		for other == all[si] {
			other = all[p.rng.Intn(len(all))]
		}
		dad = other.Members[0]
	}

	child, err := CrossoverGenomes(
		p.brains[mom].Genome, p.brains[dad].Genome,
		fitness[mom], fitness[dad],
		p.ids.NextID(), p.rng, p.opts.KeepDisabledRate,
	)
	if err != nil {
		return offspring{}, fmt.Errorf("crossover: %w", err)
	}
	if _, err := MutateGenome(child, p.opts, p.innov, p.rng); err != nil {
		return offspring{}, fmt.Errorf("mutate: %w", err)
	}

	fallback := p.brains[mom].Genome
	if fitness[dad] > fitness[mom] {
		fallback = p.brains[dad].Genome
	}
	return offspring{genome: child, fallback: fallback}, nil
}

// buildBrain builds the phenotype for o and checks it activates. A child that does
// not is replaced by a clone of its fallback parent.
func (p *Population) buildBrain(o offspring) (*Brain, error) {
	b, err := NewBrain(o.genome)
	if err == nil {
		if err = probe(b); err == nil {
			return b, nil
		}
	}
	if o.fallback == nil {
		return nil, err
	}

	clone, cerr := CloneGenome(o.fallback, o.genome.Id)
	if cerr != nil {
		return nil, cerr
	}
	b, err = NewBrain(clone)
	if err != nil {
		return nil, err
	}
	p.repaired++
	return b, nil
}

func probe(b *Brain) error {
	var zero [BrainInputs]float64
	_, err := b.Propagate(zero[:])
	return err
}

// survivorCount returns how many of the best members of a species may breed.
func survivorCount(size int, rate float64) int {
	return min(size, max(1, int(math.Ceil(rate*float64(size)))))
}

// allocateOffspring splits total offspring slots between species in proportion to
// their fitness-shared score. Fitness is shifted so the weakest member scores zero,
// each member's shifted fitness is divided by its species size, and remainders are
// handed out largest first so the quotas sum to total.
func allocateOffspring(species []*Species, fitness []float64, total int) []int {
	quotas := make([]int, len(species))
	if len(species) == 0 || total <= 0 {
		return quotas
	}

	shift := math.Inf(1)
	for _, sp := range species {
		for _, idx := range sp.Members {
			shift = min(shift, fitness[idx])
		}
	}

	scores := make([]float64, len(species))
	sum := 0.0
	for i, sp := range species {
		for _, idx := range sp.Members {
			scores[i] += (fitness[idx] - shift) / float64(len(sp.Members))
		}
		sum += scores[i]
	}
	if sum <= 0 {
		// No fitness signal: share by species size
		sum = 0
		for i, sp := range species {
			scores[i] = float64(len(sp.Members))
			sum += scores[i]
		}
	}

	type remainder struct {
		index int
		frac  float64
	}
	rems := make([]remainder, len(species))
	assigned := 0
	for i := range species {
		exact := float64(total) * scores[i] / sum
		quotas[i] = int(math.Floor(exact))
		assigned += quotas[i]
		rems[i] = remainder{index: i, frac: exact - float64(quotas[i])}
	}

	sort.SliceStable(rems, func(a, b int) bool { return rems[a].frac > rems[b].frac })
	for i := 0; assigned < total; i = (i + 1) % len(rems) {
		quotas[rems[i].index]++
		assigned++
	}
	return quotas
}
