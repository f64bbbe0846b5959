package paths

import (
	"hash/fnv"
	"strconv"

	"golang.org/x/exp/rand"
)

// RandomStream produces standard normal draws for one path of one factor. Draws depend
// only on (globalPath, factor), never on which block or worker asks for them, so results
// are invariant to block size and worker count.
type RandomStream interface {
	Normals(globalPath int, factor string, dst []float64)
}

// PCGStream derives an independent PCG source per (path, factor) from a master seed.
type PCGStream struct {
	seed uint64
}

func NewPCGStream(seed int64) *PCGStream {
	return &PCGStream{seed: uint64(seed)}
}

// Normals fills dst with N(0,1) draws.
func (s *PCGStream) Normals(globalPath int, factor string, dst []float64) {
	var src rand.PCGSource
	src.Seed(s.seed ^ streamKey(globalPath, factor))
	rng := rand.New(&src)
	for i := range dst {
		dst[i] = rng.NormFloat64()
	}
}

func streamKey(globalPath int, factor string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(factor))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(globalPath)))
	return h.Sum64()
}
