package paths

// PathBlock is one batch of paths: factors × steps × paths, stored as lane groups of
// VectorWidth so a group's values for one step are contiguous.
//
// Layout: ((factor*groups + group)*steps + step)*width + lane.
type PathBlock struct {
	data            []float64
	globalPathIndex int
	numFactors      int
	numSteps        int
	numPaths        int
	width           int
}

// NewPathBlock allocates a block. numPaths must be a multiple of width.
func NewPathBlock(globalPathIndex, numFactors, numSteps, numPaths, width int) *PathBlock {
	return &PathBlock{
		data:            make([]float64, numFactors*numSteps*numPaths),
		globalPathIndex: globalPathIndex,
		numFactors:      numFactors,
		numSteps:        numSteps,
		numPaths:        numPaths,
		width:           width,
	}
}

func (b *PathBlock) GlobalPathIndex() int { return b.globalPathIndex }
func (b *PathBlock) NumberOfFactors() int { return b.numFactors }
func (b *PathBlock) NumberOfSteps() int   { return b.numSteps }
func (b *PathBlock) NumberOfPaths() int   { return b.numPaths }
func (b *PathBlock) VectorWidth() int     { return b.width }

// reset re-targets a recycled block at a new global offset.
func (b *PathBlock) reset(globalPathIndex int) {
	b.globalPathIndex = globalPathIndex
	clear(b.data)
}

// StepsForFactor returns the lane group starting at local path index path for one factor.
// path must be a multiple of the vector width.
func (b *PathBlock) StepsForFactor(path, factor int) LaneSteps {
	group := path / b.width
	groups := b.numPaths / b.width
	stride := b.numSteps * b.width
	off := (factor*groups + group) * stride
	return LaneSteps{data: b.data[off : off+stride], width: b.width}
}

// LaneSteps is a mutable view over every step of one lane group.
type LaneSteps struct {
	data  []float64
	width int
}

// At returns the lanes of step as a slice aliasing the block.
func (s LaneSteps) At(step int) []float64 {
	return s.data[step*s.width : (step+1)*s.width]
}

// Set broadcasts v to every lane of step.
func (s LaneSteps) Set(step int, v float64) {
	lanes := s.At(step)
	for i := range lanes {
		lanes[i] = v
	}
}

func (s LaneSteps) Len() int { return len(s.data) / s.width }
