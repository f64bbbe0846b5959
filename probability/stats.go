package probability

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Summary holds the sample statistics of per-path results.
type Summary struct {
	N             int
	Mean          float64
	StdDev        float64 // sample standard deviation
	StandardError float64 // StdDev / √N
}

func Summarize(values []float64) Summary {
	s := Summary{N: len(values)}
	switch len(values) {
	case 0:
		return s
	case 1:
		s.Mean = values[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	s.StandardError = s.StdDev / math.Sqrt(float64(len(values)))
	return s
}
