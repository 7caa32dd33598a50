package game

import (
	"runtime"
	"sort"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/evo"
	"github.com/pthm-cable/flock/systems"
)

// intent is the computed outcome for one agent, applied after every agent is computed.
type intent struct {
	Pos     r2.Vec
	Vel     r2.Vec
	Fitness float64 // sample for this tick, AI mode only
	Err     bool    // controller failed and steering was neutral
}

// workerScratch holds per-worker reusable buffers.
type workerScratch struct {
	candidates []int
	neighbors  []systems.Snapshot
}

// workChunk represents a range of slots for a worker to process.
type workChunk struct {
	start, end int
}

// parallelState holds the tick snapshot, intents and the worker pool.
type parallelState struct {
	snapshots   []systems.Snapshot
	controllers []evo.Controller
	intents     []intent
	scratches   []workerScratch
	numWorkers  int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

// newParallelState sizes the pool; workers <= 0 means GOMAXPROCS.
func newParallelState(workers int) *parallelState {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	scratches := make([]workerScratch, workers)
	for i := range scratches {
		scratches[i].candidates = make([]int, 0, 64)
		scratches[i].neighbors = make([]systems.Snapshot, 0, 64)
	}
	return &parallelState{
		numWorkers: workers,
		scratches:  scratches,
		snapshots:  make([]systems.Snapshot, 0, 256),
		intents:    make([]intent, 0, 256),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(s *Simulation) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(s, i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *parallelState) worker(s *Simulation, workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			s.computeChunk(chunk.start, chunk.end, scratch)
			p.doneChan <- struct{}{}
		}
	}
}

// compute fills one intent per snapshot, in parallel when the roster reaches
// parallel.threshold. Results do not depend on which path ran.
func (s *Simulation) compute() {
	p := s.parallel
	n := len(p.snapshots)
	if n == 0 {
		p.intents = p.intents[:0]
		return
	}

	if cap(p.intents) < n {
		p.intents = make([]intent, n)
	}
	p.intents = p.intents[:n]

	threshold := s.cfg.Parallel.Threshold
	if threshold <= 0 || n < threshold || p.numWorkers < 2 {
		s.computeChunk(0, n, &p.scratches[0])
		return
	}
	s.computeParallel(n)
}

// computeParallel dispatches work to the worker pool and waits for it.
func (s *Simulation) computeParallel(n int) {
	p := s.parallel
	if !p.running {
		p.startWorkers(s)
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	chunksDispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end}
		chunksDispatched++
	}

	for i := 0; i < chunksDispatched; i++ {
		<-p.doneChan
	}
}

// computeChunk runs the per-agent rules for slots [i0, i1). It reads only the
// snapshot and writes only intents[i0:i1].
func (s *Simulation) computeChunk(i0, i1 int, scratch *workerScratch) {
	p := s.parallel
	maxSpeed := s.cfg.Flocking.MaxSpeed
	danger := s.cfg.Obstacle.DangerRadius

	for i := i0; i < i1; i++ {
		snap := &p.snapshots[i]
		it := &p.intents[i]

		// Candidates in slot order so summation order is fixed
		scratch.candidates = s.grid.CandidatesInto(scratch.candidates[:0], snap.Pos, snap.Perception)
		sort.Ints(scratch.candidates)
		scratch.neighbors = scratch.neighbors[:0]
		for _, idx := range scratch.candidates {
			scratch.neighbors = append(scratch.neighbors, p.snapshots[idx])
		}

		sense := systems.SenseFlock(*snap, scratch.neighbors, s.flock)
		ref := systems.ReferenceSteering(sense, s.steering)

		steer := ref
		*it = intent{}
		if c := p.controllers[i]; c != nil {
			var avoid r2.Vec
			if s.hasObstacle {
				avoid = systems.Avoidance(snap.Pos, s.obstacle, danger, s.bounds)
			}

			inputs := systems.ControllerInputs(sense, avoid, s.norm)
			ctl, err := systems.ControllerSteering(c, inputs, s.norm, s.steering.Agility)
			if err != nil {
				ctl = r2.Vec{}
				it.Err = true
			}

			it.Fitness = systems.EvaluateFitness(ref, ctl, avoid, s.fitness).Value
			steer = ctl
		}

		pos, vel := snap.Pos, snap.Vel
		systems.Integrate(&pos, &vel, steer, maxSpeed, s.bounds, s.wrap)
		it.Pos, it.Vel = pos, vel
	}
}
