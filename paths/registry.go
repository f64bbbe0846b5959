package paths

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Well-known feature keys.
const (
	FeatureTimeSteps = "time_steps"
	FeatureMapping   = "path_mapping"
	FeatureEngine    = "engine"
)

// FeatureRegistry is the keyed container handed to every process during setup and
// resolution. It starts open for registration and is frozen exactly once by Resolve.
type FeatureRegistry struct {
	features map[string]any
	resolved bool
}

// NewFeatureRegistry creates a registry with a time grid anchored at buildDate, an empty
// factor map and the engine config.
func NewFeatureRegistry(buildDate time.Time, cfg EngineConfig) *FeatureRegistry {
	return &FeatureRegistry{
		features: map[string]any{
			FeatureTimeSteps: newTimeGrid(buildDate),
			FeatureMapping:   newFactorMap(),
			FeatureEngine:    cfg,
		},
	}
}

// SetFeature publishes an extension feature. Well-known keys cannot be replaced.
func (r *FeatureRegistry) SetFeature(key string, v any) error {
	if r.resolved {
		return fmt.Errorf("%w: feature %q set after resolve", ErrRegistryFrozen, key)
	}
	switch key {
	case FeatureTimeSteps, FeatureMapping, FeatureEngine:
		return fmt.Errorf("feature %q is reserved", key)
	}
	r.features[key] = v
	return nil
}

// Feature returns the feature stored under key as a T.
func Feature[T any](r *FeatureRegistry, key string) (T, error) {
	var zero T
	v, ok := r.features[key]
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrUnknownFeature, key)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("feature %q has type %T, want %T", key, v, zero)
	}
	return t, nil
}

func (r *FeatureRegistry) TimeSteps() *TimeGrid {
	return r.features[FeatureTimeSteps].(*TimeGrid)
}

func (r *FeatureRegistry) Mapping() *FactorMap {
	return r.features[FeatureMapping].(*FactorMap)
}

func (r *FeatureRegistry) Engine() EngineConfig {
	return r.features[FeatureEngine].(EngineConfig)
}

// IsResolved reports whether Resolve has run.
func (r *FeatureRegistry) IsResolved() bool { return r.resolved }

// Resolve freezes the time grid and the factor map. It must be called exactly once,
// after every process has registered.
func (r *FeatureRegistry) Resolve() error {
	if r.resolved {
		return ErrAlreadyResolved
	}
	grid := r.TimeSteps()
	if len(grid.requested) == 0 {
		return fmt.Errorf("%w: no simulation dates registered", ErrInvalidConfig)
	}
	grid.resolve()
	r.Mapping().resolved = true
	r.resolved = true

	logrus.Debugf("Resolved feature registry: %d dates (%s .. %s), %d factors",
		grid.TimeStepCount(),
		grid.dates[0].Format(time.DateOnly),
		grid.dates[len(grid.dates)-1].Format(time.DateOnly),
		r.Mapping().NumberOfDimensions())
	return nil
}
