package neural

import (
	"fmt"
	"math/rand"

	"github.com/yaricom/goNEAT/v4/neat/genetics"
	neatmath "github.com/yaricom/goNEAT/v4/neat/math"
	"github.com/yaricom/goNEAT/v4/neat/network"
)

// Brain wraps a goNEAT genome and its phenotype network. It implements evo.Controller.
// A Brain is not safe for concurrent Propagate calls.
type Brain struct {
	Genome    *genetics.Genome
	SpeciesID int

	network *network.Network
	depth   int
	fitness float64
	sensors []float64
}

// NewBrain builds the phenotype network for genome.
func NewBrain(genome *genetics.Genome) (*Brain, error) {
	b := &Brain{
		Genome:  genome,
		sensors: make([]float64, BrainInputs+1),
	}
	if err := b.RebuildNetwork(); err != nil {
		return nil, err
	}
	return b, nil
}

// Propagate loads BrainInputs values plus the bias, activates the network for its
// activation depth and returns BrainOutputs values.
func (b *Brain) Propagate(inputs []float64) ([]float64, error) {
	if len(inputs) != BrainInputs {
		return nil, fmt.Errorf("expected %d inputs, got %d", BrainInputs, len(inputs))
	}

	copy(b.sensors, inputs)
	b.sensors[BrainInputs] = 1.0 // bias

	if err := b.network.LoadSensors(b.sensors); err != nil {
		return nil, fmt.Errorf("failed to load sensors: %w", err)
	}

	for i := 0; i < b.depth; i++ {
		if _, err := b.network.Activate(); err != nil {
			return nil, fmt.Errorf("activation failed: %w", err)
		}
	}

	outputs := b.network.ReadOutputs()

	// Flush network state for next tick
	if _, err := b.network.Flush(); err != nil {
		return nil, fmt.Errorf("flush failed: %w", err)
	}

	return outputs, nil
}

// Fitness returns the fitness written by the simulation.
func (b *Brain) Fitness() float64 { return b.fitness }

// SetFitness overwrites the fitness.
func (b *Brain) SetFitness(f float64) { b.fitness = f }

// Species returns the species the brain was last assigned to.
func (b *Brain) Species() int { return b.SpeciesID }

// RebuildNetwork recreates the phenotype network from the genome.
// Call this after the genome has been mutated.
func (b *Brain) RebuildNetwork() error {
	phenotype, err := b.Genome.Genesis(b.Genome.Id)
	if err != nil {
		return fmt.Errorf("failed to build network from genome %d: %w", b.Genome.Id, err)
	}
	b.network = phenotype
	b.depth = activationDepth(b.Genome)
	return nil
}

// NodeCount returns the number of nodes in the network.
func (b *Brain) NodeCount() int {
	return b.network.NodeCount()
}

// LinkCount returns the number of links (connections) in the network.
func (b *Brain) LinkCount() int {
	return b.network.LinkCount()
}

// activationDepth returns the number of activation steps needed for a signal to
// cross the longest feed-forward path of enabled genes. Recurrent genes add one step.
func activationDepth(genome *genetics.Genome) int {
	incoming := make(map[int][]int)
	recurrent := false
	for _, g := range genome.Genes {
		if !g.IsEnabled {
			continue
		}
		if g.Link.IsRecurrent {
			recurrent = true
			continue
		}
		out := g.Link.OutNode.Id
		incoming[out] = append(incoming[out], g.Link.InNode.Id)
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[int]int)
	depth := make(map[int]int)

	var visit func(id int) int
	visit = func(id int) int {
		switch state[id] {
		case done:
			return depth[id]
		case visiting:
			// A cycle of non-recurrent genes; count it like a recurrent step.
			recurrent = true
			return 0
		}
		state[id] = visiting
		d := 0
		for _, in := range incoming[id] {
			d = max(d, visit(in)+1)
		}
		state[id] = done
		depth[id] = d
		return d
	}

	maxDepth := 0
	for _, n := range genome.Nodes {
		if n.NeuronType == network.OutputNeuron {
			maxDepth = max(maxDepth, visit(n.Id))
		}
	}
	if recurrent {
		maxDepth++
	}
	return max(maxDepth, 1)
}

// CreateBrainGenome creates a brain genome with BrainInputs linear inputs, a bias
// and BrainOutputs steepened-sigmoid outputs. Each input-output pair is linked with
// probability connectionProb and every output receives at least one link.
// Initial link innovations are fixed by position so fresh genomes align.
func CreateBrainGenome(id int, rng *rand.Rand, connectionProb, weightMin, weightMax float64) *genetics.Genome {
	nodes := make([]*network.NNode, 0, BrainInputs+1+BrainOutputs)

	// Input nodes (IDs 1 to BrainInputs)
	for i := 1; i <= BrainInputs; i++ {
		node := network.NewNNode(i, network.InputNeuron)
		node.ActivationType = neatmath.LinearActivation
		nodes = append(nodes, node)
	}

	bias := network.NewNNode(biasNodeID, network.BiasNeuron)
	bias.ActivationType = neatmath.LinearActivation
	nodes = append(nodes, bias)

	// Output nodes follow the bias
	for i := 0; i < BrainOutputs; i++ {
		node := network.NewNNode(firstOutputID+i, network.OutputNeuron)
		node.ActivationType = neatmath.SigmoidSteepenedActivation
		nodes = append(nodes, node)
	}

	sources := nodes[:BrainInputs+1]
	outputs := nodes[BrainInputs+1:]
	weight := func() float64 { return weightMin + rng.Float64()*(weightMax-weightMin) }

	genes := make([]*genetics.Gene, 0, len(sources)*len(outputs))
	for j, out := range outputs {
		connected := false
		for i, in := range sources {
			if rng.Float64() >= connectionProb {
				continue
			}
			genes = append(genes, genetics.NewGeneWithTrait(
				nil, weight(), in, out, false, initialInnovation(i, j), 0,
			))
			connected = true
		}

		if !connected {
			i := rng.Intn(len(sources))
			genes = append(genes, genetics.NewGeneWithTrait(
				nil, weight(), sources[i], out, false, initialInnovation(i, j), 0,
			))
		}
	}

	sortGenes(genes)
	return genetics.NewGenome(id, nil, nodes, genes)
}

// initialInnovation numbers the link from source i to output j of a fresh genome.
func initialInnovation(i, j int) int64 {
	return int64(i*BrainOutputs + j + 1)
}
