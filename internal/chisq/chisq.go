// Package chisq implements the chi-square attack on LSB-style embedding.
//
// Sample values are partitioned into pairs of values (PoVs) that an LSB
// replacement maps onto each other: adjacent byte values (2k, 2k+1) for
// raster samples, sign-preserving magnitude pairs for DCT coefficients.
// Under the hypothesis that random payload bits are embedded, both members
// of a pair occur equally often; the chi-square statistic of the observed
// histogram against that expectation, evaluated on a growing prefix of the
// carrier, yields a probability-of-embedding curve.
package chisq

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// Config holds the scan parameters. The zero value is usable; fields left
// zero take the defaults below.
type Config struct {
	// StepFraction is the portion of samples added between curve points.
	StepFraction float64 // default 0.01
	// Threshold is the probability above which a point counts toward the
	// verdict.
	Threshold float64 // default 0.9
	// SustainFraction is the portion of curve points that must exceed
	// Threshold for the carrier to be flagged.
	SustainFraction float64 // default 0.25
}

func (c Config) withDefaults() Config {
	if c.StepFraction <= 0 || c.StepFraction > 1 {
		c.StepFraction = 0.01
	}
	if c.Threshold <= 0 {
		c.Threshold = 0.9
	}
	if c.SustainFraction <= 0 {
		c.SustainFraction = 0.25
	}
	return c
}

// Point is one observation of the detection curve.
type Point struct {
	Fraction    float64 // portion of samples scanned so far
	Probability float64 // probability of embedding at this prefix
}

// Result is the detection curve with its derived verdict. It is never
// mutated after analysis returns.
type Result struct {
	Curve          []Point
	MaxProbability float64
	Suspected      bool
}

// AnalyzeBytes scans raster samples in the order given, pairing adjacent
// byte values (2k, 2k+1).
func AnalyzeBytes(samples []uint8, cfg Config) Result {
	cfg = cfg.withDefaults()
	var hist [256]int
	points := scan(len(samples), cfg, func(i int) {
		hist[samples[i]]++
	}, func() float64 {
		var chi float64
		pairs := 0
		for k := 0; k < 128; k++ {
			o0, o1 := float64(hist[2*k]), float64(hist[2*k+1])
			e := (o0 + o1) / 2
			if e == 0 {
				continue
			}
			chi += (o0 - e) * (o0 - e) / e
			pairs++
		}
		return probability(chi, pairs-1)
	})
	return verdict(points, cfg)
}

// AnalyzeCoefficients scans quantized DCT coefficients in the order given.
// The caller supplies only qualifying coefficients (magnitude > 1); pairs
// are formed between magnitudes 2k and 2k+1 of the same sign, mirroring the
// magnitude-preserving LSB replacement of the embedder.
func AnalyzeCoefficients(values []int32, cfg Config) Result {
	cfg = cfg.withDefaults()
	even := map[int32]int{} // key: signed magnitude with LSB cleared
	odd := map[int32]int{}
	points := scan(len(values), cfg, func(i int) {
		v := values[i]
		mag := v
		if mag < 0 {
			mag = -mag
		}
		key := mag &^ 1
		if v < 0 {
			key = -key
		}
		if mag&1 == 0 {
			even[key]++
		} else {
			odd[key]++
		}
	}, func() float64 {
		var chi float64
		pairs := 0
		for key, o0f := range even {
			o0, o1 := float64(o0f), float64(odd[key])
			e := (o0 + o1) / 2
			chi += (o0 - e) * (o0 - e) / e
			pairs++
		}
		for key, o1f := range odd {
			if _, ok := even[key]; ok {
				continue // counted above
			}
			o1 := float64(o1f)
			e := o1 / 2
			chi += e // (0 - e)^2 / e
			pairs++
		}
		return probability(chi, pairs-1)
	})
	return verdict(points, cfg)
}

// scan feeds sample indices 0..n-1 to add and evaluates measure at every
// step boundary, returning the curve.
func scan(n int, cfg Config, add func(i int), measure func() float64) []Point {
	if n == 0 {
		return nil
	}
	step := int(float64(n) * cfg.StepFraction)
	if step < 1 {
		step = 1
	}
	var points []Point
	for i := 0; i < n; i++ {
		add(i)
		if (i+1)%step == 0 || i == n-1 {
			points = append(points, Point{
				Fraction:    float64(i+1) / float64(n),
				Probability: measure(),
			})
		}
	}
	return points
}

// probability converts a chi-square statistic with the given degrees of
// freedom into the probability that the PoV histogram is equalized, i.e.
// that an embedding is present.
func probability(chi float64, dof int) float64 {
	if dof < 1 {
		return 0
	}
	dist := distuv.ChiSquared{K: float64(dof)}
	return 1 - dist.CDF(chi)
}

func verdict(points []Point, cfg Config) Result {
	r := Result{Curve: points}
	if len(points) == 0 {
		return r
	}
	above := 0
	for _, p := range points {
		if p.Probability > r.MaxProbability {
			r.MaxProbability = p.Probability
		}
		if p.Probability > cfg.Threshold {
			above++
		}
	}
	r.Suspected = float64(above)/float64(len(points)) >= cfg.SustainFraction
	return r
}
