package neural

import (
	"math"
	"sort"

	"github.com/yaricom/goNEAT/v4/neat"
	"github.com/yaricom/goNEAT/v4/neat/genetics"
)

// SpeciesColor represents an RGB color for species visualization.
type SpeciesColor struct {
	R, G, B uint8
}

// Species represents a group of genetically similar genomes.
type Species struct {
	ID             int
	Representative *genetics.Genome // Used for compatibility comparisons
	Members        []int            // Population indices of members
	BestFitness    float64          // Best member fitness ever seen
	GenBest        float64          // Best member fitness this generation
	AvgFitness     float64
	Age            int // Generations since species was created
	Staleness      int // Generations without improving BestFitness
	Color          SpeciesColor
	Offspring      int // Offspring allotted in the last Evolve
}

// SpeciesManager manages speciation for the population.
type SpeciesManager struct {
	Species       []*Species
	opts          *neat.Options
	nextSpeciesID int
	generation    int
	speciesColors []SpeciesColor // Pre-generated distinct colors
}

// NewSpeciesManager creates a new species manager.
func NewSpeciesManager(opts *neat.Options) *SpeciesManager {
	return &SpeciesManager{
		Species:       make([]*Species, 0),
		opts:          opts,
		nextSpeciesID: 1,
		speciesColors: generateDistinctColors(64),
	}
}

// generateDistinctColors creates visually distinct colors using golden angle.
func generateDistinctColors(count int) []SpeciesColor {
	colors := make([]SpeciesColor, count)
	for i := 0; i < count; i++ {
		colors[i] = SpeciesColorFor(i)
	}
	return colors
}

// SpeciesColorFor returns the display color for a species ID.
func SpeciesColorFor(id int) SpeciesColor {
	const goldenAngle = 137.508 // degrees
	hue := math.Mod(float64(id)*goldenAngle, 360.0)
	r, g, b := hsvToRGB(hue, 0.7, 0.9)
	return SpeciesColor{R: r, G: g, B: b}
}

// hsvToRGB converts HSV to RGB.
func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	h = math.Mod(h, 360)
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return uint8((r + m) * 255), uint8((g + m) * 255), uint8((b + m) * 255)
}

// AssignSpecies finds or creates a species for the given genome.
// Returns the species ID.
func (sm *SpeciesManager) AssignSpecies(genome *genetics.Genome) int {
	if genome == nil {
		return 0
	}

	for _, sp := range sm.Species {
		if sp.Representative == nil {
			continue
		}
		if GenomeCompatibility(genome, sp.Representative, sm.opts) < sm.opts.CompatThreshold {
			return sp.ID
		}
	}

	// No compatible species - create a new one
	newSpecies := &Species{
		ID:             sm.nextSpeciesID,
		Representative: genome,
		Members:        make([]int, 0),
		Color:          sm.speciesColors[sm.nextSpeciesID%len(sm.speciesColors)],
	}
	sm.nextSpeciesID++
	sm.Species = append(sm.Species, newSpecies)

	return newSpecies.ID
}

// Get returns the species with the given ID, or nil.
func (sm *SpeciesManager) Get(speciesID int) *Species {
	for _, sp := range sm.Species {
		if sp.ID == speciesID {
			return sp
		}
	}
	return nil
}

// GetSpeciesColor returns the color for a species ID.
// Returns a default gray if species not found.
func (sm *SpeciesManager) GetSpeciesColor(speciesID int) SpeciesColor {
	if sp := sm.Get(speciesID); sp != nil {
		return sp.Color
	}
	return SpeciesColor{R: 128, G: 128, B: 128}
}

// AddMember adds a population index to its species.
func (sm *SpeciesManager) AddMember(speciesID int, index int) {
	if sp := sm.Get(speciesID); sp != nil {
		sp.Members = append(sp.Members, index)
	}
}

// ClearMembers empties every species while keeping representatives and history.
func (sm *SpeciesManager) ClearMembers() {
	for _, sp := range sm.Species {
		sp.Members = sp.Members[:0]
	}
}

// RemoveEmpty drops species without members.
func (sm *SpeciesManager) RemoveEmpty() {
	active := sm.Species[:0]
	for _, sp := range sm.Species {
		if len(sp.Members) > 0 {
			active = append(active, sp)
		}
	}
	sm.Species = active
}

// UpdateFitness recomputes per-species best and average fitness from member
// fitness values and advances staleness for species that did not improve.
func (sm *SpeciesManager) UpdateFitness(fitness []float64) {
	for _, sp := range sm.Species {
		if len(sp.Members) == 0 {
			continue
		}
		best := math.Inf(-1)
		total := 0.0
		for _, idx := range sp.Members {
			f := fitness[idx]
			total += f
			best = max(best, f)
		}
		sp.GenBest = best
		sp.AvgFitness = total / float64(len(sp.Members))

		if sp.Age == 0 || best > sp.BestFitness {
			sp.BestFitness = best
			sp.Staleness = 0
		} else {
			sp.Staleness++
		}
	}
}

// RemoveStaleSpecies removes species whose staleness reached DropOffAge.
// The species with ID protect is always kept.
func (sm *SpeciesManager) RemoveStaleSpecies(protect int) {
	maxStaleness := sm.opts.DropOffAge
	if maxStaleness <= 0 {
		return
	}

	active := make([]*Species, 0, len(sm.Species))
	for _, sp := range sm.Species {
		if sp.ID == protect || sp.Staleness < maxStaleness {
			active = append(active, sp)
		}
	}
	sm.Species = active
}

// KeepTop keeps only the n species with the highest best fitness and resets their staleness.
func (sm *SpeciesManager) KeepTop(n int) {
	sort.SliceStable(sm.Species, func(i, j int) bool {
		return sm.Species[i].BestFitness > sm.Species[j].BestFitness
	})
	if n < len(sm.Species) {
		sm.Species = sm.Species[:n]
	}
	for _, sp := range sm.Species {
		sp.Staleness = 0
	}
}

// EndGeneration ages every species. Should be called once per generation.
func (sm *SpeciesManager) EndGeneration() {
	sm.generation++
	for _, sp := range sm.Species {
		sp.Age++
	}
}

// SpeciesStats contains summary statistics about all species.
type SpeciesStats struct {
	Count            int
	TotalMembers     int
	LargestSize      int
	SmallestSize     int
	AverageStaleness float64
	Generation       int
	BestFitness      float64
}

// SpeciesInfo contains display information about a single species.
type SpeciesInfo struct {
	ID        int
	Size      int
	BestFit   float64
	AvgFit    float64
	Age       int
	Staleness int
	Color     SpeciesColor
	Offspring int
}

// GetStats returns summary statistics about species distribution.
func (sm *SpeciesManager) GetStats() SpeciesStats {
	if len(sm.Species) == 0 {
		return SpeciesStats{Generation: sm.generation}
	}

	stats := SpeciesStats{
		Count:        len(sm.Species),
		SmallestSize: math.MaxInt,
		Generation:   sm.generation,
		BestFitness:  math.Inf(-1),
	}

	totalStaleness := 0
	for _, sp := range sm.Species {
		size := len(sp.Members)
		stats.TotalMembers += size
		stats.BestFitness = max(stats.BestFitness, sp.BestFitness)
		stats.LargestSize = max(stats.LargestSize, size)
		if size > 0 {
			stats.SmallestSize = min(stats.SmallestSize, size)
		}
		totalStaleness += sp.Staleness
	}

	stats.AverageStaleness = float64(totalStaleness) / float64(stats.Count)
	if stats.SmallestSize == math.MaxInt {
		stats.SmallestSize = 0
	}

	return stats
}

// GetTopSpecies returns info about the top n species by size.
func (sm *SpeciesManager) GetTopSpecies(n int) []SpeciesInfo {
	if len(sm.Species) == 0 {
		return nil
	}

	sorted := make([]*Species, len(sm.Species))
	copy(sorted, sm.Species)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Members) > len(sorted[j].Members)
	})

	n = min(n, len(sorted))
	result := make([]SpeciesInfo, n)
	for i := 0; i < n; i++ {
		sp := sorted[i]
		result[i] = SpeciesInfo{
			ID:        sp.ID,
			Size:      len(sp.Members),
			BestFit:   sp.BestFitness,
			AvgFit:    sp.AvgFitness,
			Age:       sp.Age,
			Staleness: sp.Staleness,
			Color:     sp.Color,
			Offspring: sp.Offspring,
		}
	}

	return result
}
