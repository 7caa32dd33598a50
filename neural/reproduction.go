package neural

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/yaricom/goNEAT/v4/neat"
	"github.com/yaricom/goNEAT/v4/neat/genetics"
	neatmath "github.com/yaricom/goNEAT/v4/neat/math"
	"github.com/yaricom/goNEAT/v4/neat/network"
)

// Mutation constants
const (
	maxLinkAttempts = 20   // Maximum attempts to find a new connection
	initialInnovNum = 1000 // Starting innovation number, above any fresh-genome innovation
)

// GenomeIDGenerator generates unique genome IDs, node IDs and innovation numbers.
type GenomeIDGenerator struct {
	nextID       int
	nextNodeID   int
	nextInnovNum int64
}

// NewGenomeIDGenerator creates a new ID generator.
func NewGenomeIDGenerator() *GenomeIDGenerator {
	return &GenomeIDGenerator{
		nextID:       1,
		nextNodeID:   firstFreeNodeID,
		nextInnovNum: initialInnovNum,
	}
}

// NextID returns the next unique genome ID.
func (g *GenomeIDGenerator) NextID() int {
	id := g.nextID
	g.nextID++
	return id
}

// NextNodeID returns the next unused hidden node ID.
func (g *GenomeIDGenerator) NextNodeID() int {
	id := g.nextNodeID
	g.nextNodeID++
	return id
}

// NextInnovation returns the next innovation number.
func (g *GenomeIDGenerator) NextInnovation() int64 {
	num := g.nextInnovNum
	g.nextInnovNum++
	return num
}

// splitInnovation records the structure created by splitting one gene.
type splitInnovation struct {
	nodeID   int
	inInnov  int64
	outInnov int64
}

// InnovationCache makes identical structural mutations within one generation share
// innovation numbers and node IDs.
type InnovationCache struct {
	ids    *GenomeIDGenerator
	links  map[int64]int64
	splits map[int64]splitInnovation
}

// NewInnovationCache creates an empty cache drawing fresh numbers from ids.
func NewInnovationCache(ids *GenomeIDGenerator) *InnovationCache {
	return &InnovationCache{
		ids:    ids,
		links:  make(map[int64]int64),
		splits: make(map[int64]splitInnovation),
	}
}

// Reset forgets all cached innovations. Called once per generation.
func (c *InnovationCache) Reset() {
	clear(c.links)
	clear(c.splits)
}

// link returns the innovation number for a new connection inID→outID.
func (c *InnovationCache) link(inID, outID int) int64 {
	key := connectionKey(inID, outID)
	if innov, ok := c.links[key]; ok {
		return innov
	}
	innov := c.ids.NextInnovation()
	c.links[key] = innov
	return innov
}

// split returns the node ID and innovation numbers for splitting gene innov.
func (c *InnovationCache) split(innov int64) splitInnovation {
	if s, ok := c.splits[innov]; ok {
		return s
	}
	s := splitInnovation{
		nodeID:   c.ids.NextNodeID(),
		inInnov:  c.ids.NextInnovation(),
		outInnov: c.ids.NextInnovation(),
	}
	c.splits[innov] = s
	return s
}

// CrossoverGenomes performs NEAT-style crossover between two parent genomes.
// Genes are aligned by innovation number; matching genes are inherited from either
// parent at random and the more fit parent contributes disjoint and excess genes.
// A gene disabled in either parent stays disabled with probability keepDisabled.
func CrossoverGenomes(parent1, parent2 *genetics.Genome, fitness1, fitness2 float64, childID int, rng *rand.Rand, keepDisabled float64) (*genetics.Genome, error) {
	if parent1 == nil || parent2 == nil {
		return nil, fmt.Errorf("cannot crossover nil genomes")
	}

	// Determine which parent is more fit (or equal)
	var primary, secondary *genetics.Genome
	if fitness1 >= fitness2 {
		primary, secondary = parent1, parent2
	} else {
		primary, secondary = parent2, parent1
	}
	equal := fitness1 == fitness2

	primaryGenes := make(map[int64]*genetics.Gene, len(primary.Genes))
	for _, gene := range primary.Genes {
		primaryGenes[gene.InnovationNum] = gene
	}
	secondaryGenes := make(map[int64]*genetics.Gene, len(secondary.Genes))
	for _, gene := range secondary.Genes {
		secondaryGenes[gene.InnovationNum] = gene
	}

	// Sort innovations for deterministic ordering
	innovations := make([]int64, 0, len(primaryGenes)+len(secondaryGenes))
	for _, gene := range primary.Genes {
		innovations = append(innovations, gene.InnovationNum)
	}
	for _, gene := range secondary.Genes {
		if _, ok := primaryGenes[gene.InnovationNum]; !ok {
			innovations = append(innovations, gene.InnovationNum)
		}
	}
	sort.Slice(innovations, func(i, j int) bool { return innovations[i] < innovations[j] })

	childNodeMap := make(map[int]*network.NNode)
	for _, node := range primary.Nodes {
		childNodeMap[node.Id] = copyNode(node)
	}

	childGenes := make([]*genetics.Gene, 0, len(innovations))
	links := make(map[int64]bool, len(innovations))

	for _, innov := range innovations {
		pGene := primaryGenes[innov]
		sGene := secondaryGenes[innov]

		var selected *genetics.Gene
		enabled := true

		switch {
		case pGene != nil && sGene != nil:
			// Matching gene - randomly select from either parent
			if rng.Float64() < 0.5 {
				selected = pGene
			} else {
				selected = sGene
			}
			if (!pGene.IsEnabled || !sGene.IsEnabled) && rng.Float64() < keepDisabled {
				enabled = false
			}
		case pGene != nil:
			// Disjoint/excess from more fit parent - always include
			selected = pGene
			enabled = pGene.IsEnabled
		case equal && rng.Float64() < 0.5:
			selected = sGene
			enabled = sGene.IsEnabled
		}

		if selected == nil {
			continue
		}

		inID, outID := selected.Link.InNode.Id, selected.Link.OutNode.Id
		key := connectionKey(inID, outID)
		if links[key] {
			continue
		}

		// Nodes from the secondary parent come in only with its genes
		for _, n := range []*network.NNode{selected.Link.InNode, selected.Link.OutNode} {
			if _, ok := childNodeMap[n.Id]; !ok {
				childNodeMap[n.Id] = copyNode(n)
			}
		}

		childGene := genetics.NewGeneWithTrait(
			nil,
			selected.Link.ConnectionWeight,
			childNodeMap[inID],
			childNodeMap[outID],
			selected.Link.IsRecurrent,
			selected.InnovationNum,
			selected.MutationNum,
		)
		childGene.IsEnabled = enabled
		childGenes = append(childGenes, childGene)
		links[key] = true
	}

	// Build sorted node list
	childNodes := make([]*network.NNode, 0, len(childNodeMap))
	for _, node := range childNodeMap {
		childNodes = append(childNodes, node)
	}
	sort.Slice(childNodes, func(i, j int) bool { return childNodes[i].Id < childNodes[j].Id })

	child := genetics.NewGenome(childID, nil, childNodes, childGenes)
	ensureOutputsConnected(child)
	return child, nil
}

func copyNode(node *network.NNode) *network.NNode {
	newNode := network.NewNNode(node.Id, node.NeuronType)
	newNode.ActivationType = node.ActivationType
	return newNode
}

// mutateWeights perturbs every weight by a uniform draw in [MinPerturb, MaxPerturb],
// or with ReinitializeWeightRate replaces it with a uniform draw in the weight bounds.
func mutateWeights(genome *genetics.Genome, opts Options, rng *rand.Rand) {
	for _, gene := range genome.Genes {
		if rng.Float64() < opts.ReinitializeWeightRate {
			gene.Link.ConnectionWeight = opts.MinWeight + rng.Float64()*(opts.MaxWeight-opts.MinWeight)
		} else {
			gene.Link.ConnectionWeight += opts.MinPerturb + rng.Float64()*(opts.MaxPerturb-opts.MinPerturb)
		}
		gene.Link.ConnectionWeight = clampWeight(gene.Link.ConnectionWeight, opts.MinWeight, opts.MaxWeight)
		gene.MutationNum = gene.Link.ConnectionWeight
	}
}

// clampWeight clamps a connection weight to [lo, hi].
func clampWeight(w, lo, hi float64) float64 {
	if math.IsNaN(w) {
		return 0
	}
	if w > hi {
		return hi
	}
	if w < lo {
		return lo
	}
	return w
}

func addNode(genome *genetics.Genome, innov *InnovationCache, activators []neatmath.NodeActivationType, rng *rand.Rand) bool {
	// Find enabled genes to split
	enabledGenes := make([]*genetics.Gene, 0, len(genome.Genes))
	for _, gene := range genome.Genes {
		if gene.IsEnabled && !gene.Link.IsRecurrent {
			enabledGenes = append(enabledGenes, gene)
		}
	}

	if len(enabledGenes) == 0 {
		return false
	}

	geneToSplit := enabledGenes[rng.Intn(len(enabledGenes))]

	s := innov.split(geneToSplit.InnovationNum)
	if hasNode(genome, s.nodeID) {
		// This genome already split the gene once; give the new node fresh numbers.
		s = splitInnovation{
			nodeID:   innov.ids.NextNodeID(),
			inInnov:  innov.ids.NextInnovation(),
			outInnov: innov.ids.NextInnovation(),
		}
	}

	geneToSplit.IsEnabled = false

	newNode := network.NewNNode(s.nodeID, network.HiddenNeuron)
	newNode.ActivationType = activators[rng.Intn(len(activators))]

	// old_in -> new_node (weight 1.0)
	gene1 := genetics.NewGeneWithTrait(
		nil,
		1.0,
		geneToSplit.Link.InNode,
		newNode,
		false,
		s.inInnov,
		0,
	)

	// new_node -> old_out (old weight)
	gene2 := genetics.NewGeneWithTrait(
		nil,
		geneToSplit.Link.ConnectionWeight,
		newNode,
		geneToSplit.Link.OutNode,
		false,
		s.outInnov,
		0,
	)

	genome.Nodes = append(genome.Nodes, newNode)
	genome.Genes = append(genome.Genes, gene1, gene2)
	sortGenes(genome.Genes)

	return true
}

func addLink(genome *genetics.Genome, innov *InnovationCache, opts Options, rng *rand.Rand) bool {
	sources := make([]*network.NNode, 0, len(genome.Nodes))
	targets := make([]*network.NNode, 0, len(genome.Nodes))

	for _, node := range genome.Nodes {
		switch node.NeuronType {
		case network.InputNeuron, network.BiasNeuron:
			sources = append(sources, node)
		case network.OutputNeuron:
			targets = append(targets, node)
			if opts.AllowRecurrent {
				sources = append(sources, node)
			}
		case network.HiddenNeuron:
			sources = append(sources, node)
			targets = append(targets, node)
		}
	}

	if len(sources) == 0 || len(targets) == 0 {
		return false
	}

	existing := make(map[int64]bool, len(genome.Genes))
	for _, gene := range genome.Genes {
		existing[connectionKey(gene.Link.InNode.Id, gene.Link.OutNode.Id)] = true
	}

	for attempt := 0; attempt < maxLinkAttempts; attempt++ {
		source := sources[rng.Intn(len(sources))]
		target := targets[rng.Intn(len(targets))]

		if existing[connectionKey(source.Id, target.Id)] {
			continue
		}

		recurrent := source.Id == target.Id || reaches(genome, target.Id, source.Id)
		if recurrent && !opts.AllowRecurrent {
			continue
		}

		newGene := genetics.NewGeneWithTrait(
			nil,
			opts.WeightInitMin+rng.Float64()*(opts.WeightInitMax-opts.WeightInitMin),
			source,
			target,
			recurrent,
			innov.link(source.Id, target.Id),
			0,
		)
		genome.Genes = append(genome.Genes, newGene)
		sortGenes(genome.Genes)
		return true
	}

	return false
}

// reaches reports whether a path of non-recurrent genes leads from node from to node to.
func reaches(genome *genetics.Genome, from, to int) bool {
	outgoing := make(map[int][]int)
	for _, g := range genome.Genes {
		if g.Link.IsRecurrent {
			continue
		}
		outgoing[g.Link.InNode.Id] = append(outgoing[g.Link.InNode.Id], g.Link.OutNode.Id)
	}

	seen := map[int]bool{from: true}
	stack := []int{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		for _, next := range outgoing[n] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// connectionKey creates a unique key for a connection between two nodes.
func connectionKey(inID, outID int) int64 {
	return int64(inID)<<32 | int64(outID)
}

func toggleEnable(genome *genetics.Genome, rng *rand.Rand) {
	if len(genome.Genes) == 0 {
		return
	}

	gene := genome.Genes[rng.Intn(len(genome.Genes))]
	gene.IsEnabled = !gene.IsEnabled

	// If we disabled a gene, make sure its target still has an enabled input
	if !gene.IsEnabled && !hasEnabledInput(genome, gene.Link.OutNode.Id) {
		gene.IsEnabled = true
	}
}

func hasEnabledInput(genome *genetics.Genome, nodeID int) bool {
	for _, g := range genome.Genes {
		if g.IsEnabled && g.Link.OutNode.Id == nodeID && !g.Link.IsRecurrent {
			return true
		}
	}
	return false
}

// ensureOutputsConnected re-enables a gene into any output that lost all enabled inputs.
func ensureOutputsConnected(genome *genetics.Genome) {
	for _, n := range genome.Nodes {
		if n.NeuronType != network.OutputNeuron || hasEnabledInput(genome, n.Id) {
			continue
		}
		for _, g := range genome.Genes {
			if g.Link.OutNode.Id == n.Id && !g.Link.IsRecurrent {
				g.IsEnabled = true
				break
			}
		}
	}
}

func hasNode(genome *genetics.Genome, id int) bool {
	for _, n := range genome.Nodes {
		if n.Id == id {
			return true
		}
	}
	return false
}

// sortGenes orders genes by innovation number.
func sortGenes(genes []*genetics.Gene) {
	sort.SliceStable(genes, func(i, j int) bool { return genes[i].InnovationNum < genes[j].InnovationNum })
}

// MutateGenome applies weight, add-node, add-link and toggle-enable mutations,
// each with its configured probability. It reports whether anything changed.
func MutateGenome(genome *genetics.Genome, opts Options, innov *InnovationCache, rng *rand.Rand) (bool, error) {
	if genome == nil {
		return false, fmt.Errorf("cannot mutate nil genome")
	}

	mutated := false

	if rng.Float64() < opts.NEAT.MutateLinkWeightsProb {
		mutateWeights(genome, opts, rng)
		mutated = true
	}

	if rng.Float64() < opts.NEAT.MutateAddNodeProb {
		if addNode(genome, innov, opts.HiddenActivations, rng) {
			mutated = true
		}
	}

	if rng.Float64() < opts.NEAT.MutateAddLinkProb {
		if addLink(genome, innov, opts, rng) {
			mutated = true
		}
	}

	if rng.Float64() < opts.NEAT.MutateToggleEnableProb {
		toggleEnable(genome, rng)
		mutated = true
	}

	return mutated, nil
}

// CloneGenome creates a deep copy of a genome with a new ID.
func CloneGenome(genome *genetics.Genome, newID int) (*genetics.Genome, error) {
	if genome == nil {
		return nil, fmt.Errorf("cannot clone nil genome")
	}

	nodeMap := make(map[int]*network.NNode, len(genome.Nodes))
	newNodes := make([]*network.NNode, 0, len(genome.Nodes))
	for _, node := range genome.Nodes {
		newNode := copyNode(node)
		nodeMap[node.Id] = newNode
		newNodes = append(newNodes, newNode)
	}

	newGenes := make([]*genetics.Gene, 0, len(genome.Genes))
	for _, gene := range genome.Genes {
		inNode := nodeMap[gene.Link.InNode.Id]
		outNode := nodeMap[gene.Link.OutNode.Id]
		if inNode == nil || outNode == nil {
			return nil, fmt.Errorf("genome %d: gene %d references a missing node", genome.Id, gene.InnovationNum)
		}
		newGene := genetics.NewGeneWithTrait(
			nil,
			gene.Link.ConnectionWeight,
			inNode,
			outNode,
			gene.Link.IsRecurrent,
			gene.InnovationNum,
			gene.MutationNum,
		)
		newGene.IsEnabled = gene.IsEnabled
		newGenes = append(newGenes, newGene)
	}

	return genetics.NewGenome(newID, nil, newNodes, newGenes), nil
}

// GenomeCompatibility calculates the compatibility distance between two genomes:
// (c1·excess + c2·disjoint)/N + c3·mean weight difference of matching genes,
// where N is the larger gene count, or 1 for genomes under 20 genes.
func GenomeCompatibility(g1, g2 *genetics.Genome, opts *neat.Options) float64 {
	if g1 == nil || g2 == nil {
		return math.MaxFloat64
	}

	genes2 := make(map[int64]*genetics.Gene, len(g2.Genes))
	maxInnov2 := int64(0)
	for _, gene := range g2.Genes {
		genes2[gene.InnovationNum] = gene
		maxInnov2 = max(maxInnov2, gene.InnovationNum)
	}

	genes1 := make(map[int64]bool, len(g1.Genes))
	maxInnov1 := int64(0)
	for _, gene := range g1.Genes {
		genes1[gene.InnovationNum] = true
		maxInnov1 = max(maxInnov1, gene.InnovationNum)
	}

	matching := 0
	disjoint := 0
	excess := 0
	weightDiff := 0.0

	for _, gene1 := range g1.Genes {
		if gene2, ok := genes2[gene1.InnovationNum]; ok {
			matching++
			weightDiff += math.Abs(gene1.Link.ConnectionWeight - gene2.Link.ConnectionWeight)
		} else if gene1.InnovationNum > maxInnov2 {
			excess++
		} else {
			disjoint++
		}
	}

	for _, gene2 := range g2.Genes {
		if genes1[gene2.InnovationNum] {
			continue
		}
		if gene2.InnovationNum > maxInnov1 {
			excess++
		} else {
			disjoint++
		}
	}

	// Normalize by genome size
	n := float64(max(len(g1.Genes), len(g2.Genes)))
	if n < 20 {
		n = 1 // Don't normalize small genomes
	}

	avgWeightDiff := 0.0
	if matching > 0 {
		avgWeightDiff = weightDiff / float64(matching)
	}

	return (opts.ExcessCoeff*float64(excess)+opts.DisjointCoeff*float64(disjoint))/n +
		opts.MutdiffCoeff*avgWeightDiff
}
