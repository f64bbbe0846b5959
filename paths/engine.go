package paths

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Result is the aggregate of one accumulating process after a run.
type Result struct {
	Name          string  `json:"name"`
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"std_dev"`
	StandardError float64 `json:"standard_error"`
	Paths         int     `json:"paths"`
}

// ProgressFunc is called after each completed block with the number of blocks done.
type ProgressFunc func(done, total int)

// Engine drives the setup, resolve, finish and simulate phases over a set of processes.
// An Engine runs once.
type Engine struct {
	cfg       EngineConfig
	registry  *FeatureRegistry
	stream    RandomStream
	processes []PathProcess
	progress  ProgressFunc
	ran       bool
}

// NewEngine validates cfg and prepares a registry anchored at buildDate. A nil stream
// selects a PCGStream seeded from cfg.Seed.
func NewEngine(buildDate time.Time, cfg EngineConfig, stream RandomStream) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if stream == nil {
		stream = NewPCGStream(cfg.Seed)
	}
	return &Engine{
		cfg:      cfg,
		registry: NewFeatureRegistry(buildDate, cfg),
		stream:   stream,
	}, nil
}

func (e *Engine) AddProcess(ps ...PathProcess) {
	e.processes = append(e.processes, ps...)
}

func (e *Engine) WithProgress(fn ProgressFunc) *Engine {
	e.progress = fn
	return e
}

func (e *Engine) Registry() *FeatureRegistry { return e.registry }

// Processes returns the processes in execution order.
func (e *Engine) Processes() []PathProcess { return e.processes }

// Run executes the three phases and simulates every block. The first error from any
// process aborts the run and is returned.
func (e *Engine) Run(ctx context.Context) error {
	if e.ran {
		return ErrAlreadyResolved
	}
	e.ran = true
	if len(e.processes) == 0 {
		return fmt.Errorf("%w: no processes", ErrInvalidConfig)
	}

	sort.SliceStable(e.processes, func(i, j int) bool {
		return e.processes[i].Kind() < e.processes[j].Kind()
	})

	for _, p := range e.processes {
		if err := p.SetupFeatures(e.registry); err != nil {
			return fmt.Errorf("setup %s: %w", p.Name(), err)
		}
	}
	if err := e.registry.Resolve(); err != nil {
		return err
	}
	for _, p := range e.processes {
		if err := p.Finish(e.registry); err != nil {
			return fmt.Errorf("finish %s: %w", p.Name(), err)
		}
	}

	start := time.Now()
	if err := e.simulate(ctx); err != nil {
		return err
	}
	logrus.Infof("Simulated %d paths x %d steps x %d factors in %s",
		e.cfg.NumberOfPaths, e.registry.TimeSteps().TimeStepCount(),
		e.registry.Mapping().NumberOfDimensions(), time.Since(start).Round(time.Millisecond))
	return nil
}

func (e *Engine) simulate(ctx context.Context) error {
	var (
		factors = e.registry.Mapping().Names()
		steps   = e.registry.TimeSteps().TimeStepCount()
		total   = e.cfg.NumberOfBlocks()
		done    atomic.Int64
	)
	blocks := sync.Pool{
		New: func() any {
			return NewPathBlock(0, len(factors), steps, e.cfg.PathsPerBlock, e.cfg.VectorWidth)
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.workers())
	logrus.Debugf("Running %d blocks of %d paths on %d workers", total, e.cfg.PathsPerBlock, e.cfg.workers())

	for b := 0; b < total; b++ {
		if gctx.Err() != nil {
			break
		}
		offset := b * e.cfg.PathsPerBlock
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			block := blocks.Get().(*PathBlock)
			defer blocks.Put(block)
			block.reset(offset)

			e.fillNormals(block, factors)
			for _, p := range e.processes {
				if err := p.Process(block); err != nil {
					return fmt.Errorf("process %s on block at path %d: %w", p.Name(), offset, err)
				}
			}
			n := int(done.Add(1))
			if e.progress != nil {
				e.progress(n, total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// fillNormals writes each path's draws into its lane so diffusions can consume them in place.
func (e *Engine) fillNormals(block *PathBlock, factors []string) {
	width := block.VectorWidth()
	draws := make([]float64, block.NumberOfSteps())
	for f, name := range factors {
		for group := 0; group < block.NumberOfPaths(); group += width {
			lanes := block.StepsForFactor(group, f)
			for lane := 0; lane < width; lane++ {
				e.stream.Normals(block.GlobalPathIndex()+group+lane, name, draws)
				for s, z := range draws {
					lanes.At(s)[lane] = z
				}
			}
		}
	}
}

// Results collects the aggregates of every process that accumulates per-path values.
func (e *Engine) Results() ([]Result, error) {
	var out []Result
	for _, p := range e.processes {
		agg, ok := p.(Aggregator)
		if !ok {
			continue
		}
		r := Result{Name: p.Name(), Paths: e.cfg.NumberOfPaths}
		var err error
		if r.Mean, err = agg.Mean(); err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name(), err)
		}
		if r.StdDev, err = agg.StdDev(); err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name(), err)
		}
		if r.StandardError, err = agg.StandardError(); err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name(), err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Run builds an engine, runs it to completion and returns the aggregates.
func Run(ctx context.Context, cfg EngineConfig, buildDate time.Time, stream RandomStream, processes ...PathProcess) ([]Result, error) {
	e, err := NewEngine(buildDate, cfg, stream)
	if err != nil {
		return nil, err
	}
	e.AddProcess(processes...)
	if err := e.Run(ctx); err != nil {
		return nil, err
	}
	return e.Results()
}
