package paths

import (
	"fmt"
	"runtime"
)

// EngineConfig groups path count, batching and RNG parameters.
type EngineConfig struct {
	NumberOfPaths int   // total simulated paths (must be a multiple of PathsPerBlock)
	PathsPerBlock int   // paths per PathBlock (must be a multiple of VectorWidth)
	VectorWidth   int   // lanes per vector group
	Workers       int   // concurrent blocks (0 = GOMAXPROCS)
	Seed          int64 // master seed for the default random stream
}

// DefaultEngineConfig mirrors the sizes used by the pricing model defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		NumberOfPaths: 1 << 16,
		PathsPerBlock: 1 << 12,
		VectorWidth:   4,
		Workers:       0,
		Seed:          42,
	}
}

// Validate checks the batching invariants.
func (c EngineConfig) Validate() error {
	switch {
	case c.NumberOfPaths <= 0:
		return fmt.Errorf("%w: number of paths %d must be positive", ErrInvalidConfig, c.NumberOfPaths)
	case c.VectorWidth <= 0:
		return fmt.Errorf("%w: vector width %d must be positive", ErrInvalidConfig, c.VectorWidth)
	case c.PathsPerBlock <= 0 || c.PathsPerBlock%c.VectorWidth != 0:
		return fmt.Errorf("%w: paths per block %d must be a positive multiple of vector width %d",
			ErrInvalidConfig, c.PathsPerBlock, c.VectorWidth)
	case c.NumberOfPaths%c.PathsPerBlock != 0:
		return fmt.Errorf("%w: number of paths %d must be a multiple of paths per block %d",
			ErrInvalidConfig, c.NumberOfPaths, c.PathsPerBlock)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers %d must not be negative", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// NumberOfBlocks is the block count of one full simulation.
func (c EngineConfig) NumberOfBlocks() int {
	return c.NumberOfPaths / c.PathsPerBlock
}

func (c EngineConfig) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
