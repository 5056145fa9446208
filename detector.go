package stegimg

import (
	"fmt"

	"github.com/stegimg/stegimg/internal/chisq"
	"github.com/stegimg/stegimg/internal/jsteg"
	"github.com/stegimg/stegimg/internal/lsbr"
)

// CurvePoint is one observation of a detection curve: the probability of
// embedding after scanning the given fraction of samples.
type CurvePoint struct {
	Fraction    float64
	Probability float64
}

// Detection is the immutable result of one analysis call.
type Detection struct {
	Curve          []CurvePoint
	MaxProbability float64
	// Suspected is true when the probability exceeded the detector's
	// threshold over its configured portion of the scan.
	Suspected bool
}

// Detector runs the chi-square attack against a carrier. It never mutates
// the carrier and cannot fail on a well-formed one; a low-confidence result
// is a valid outcome, not an error.
type Detector struct {
	cfg    chisq.Config
	policy lsbr.Policy
}

// NewDetector initializes a detector. Thresholds and scan granularity can be
// optionally specified; for default values, refer to the chisq package.
func NewDetector(opts ...DetectorOption) (*Detector, error) {
	d := new(Detector)
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if d.policy.Version == 0 {
		d.policy = lsbr.DefaultPolicy()
	}
	return d, nil
}

// DetectLSB scans the raster's samples in embedding order and tests their
// least significant bits for the equalized pair-of-values histogram that
// LSB replacement produces.
func (d *Detector) DetectLSB(r *Raster) (*Detection, error) {
	if _, err := lsbr.NewReader(lsbr.Image{Width: r.Width, Height: r.Height, Channels: r.Channels, Pix: r.Pix}, d.policy); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedCarrier, err)
	}
	samples := lsbr.Samples(lsbr.Image{Width: r.Width, Height: r.Height, Channels: r.Channels, Pix: r.Pix}, d.policy)
	return convert(chisq.AnalyzeBytes(samples, d.cfg)), nil
}

// DetectJSteg scans the carrier's qualifying coefficients in embedding order
// and tests their magnitudes for the equalized pair-of-values histogram that
// JSTEG produces. Coefficients in {-1, 0, 1} are outside the embedding
// format and excluded from the statistic.
func (d *Detector) DetectJSteg(c *Coefficients) (*Detection, error) {
	if _, err := jsteg.NewReader(c.Blocks, jsteg.DefaultPolicy()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedCarrier, err)
	}
	return convert(chisq.AnalyzeCoefficients(jsteg.Coefficients(c.Blocks), d.cfg)), nil
}

func convert(r chisq.Result) *Detection {
	det := &Detection{
		Curve:          make([]CurvePoint, len(r.Curve)),
		MaxProbability: r.MaxProbability,
		Suspected:      r.Suspected,
	}
	for i, p := range r.Curve {
		det.Curve[i] = CurvePoint{Fraction: p.Fraction, Probability: p.Probability}
	}
	return det
}

type DetectorOption func(*Detector) error

// WithThreshold sets the probability above which a curve point counts toward
// the verdict. The default is 0.9.
func WithThreshold(p float64) DetectorOption {
	return func(d *Detector) error {
		if p <= 0 || p >= 1 {
			return fmt.Errorf("threshold %v outside (0, 1)", p)
		}
		d.cfg.Threshold = p
		return nil
	}
}

// WithSustain sets the portion of curve points that must exceed the
// threshold before the carrier is flagged. The default is 0.25.
func WithSustain(fraction float64) DetectorOption {
	return func(d *Detector) error {
		if fraction <= 0 || fraction > 1 {
			return fmt.Errorf("sustain fraction %v outside (0, 1]", fraction)
		}
		d.cfg.SustainFraction = fraction
		return nil
	}
}

// WithStep sets the portion of samples added between curve points. The
// default is 0.01.
func WithStep(fraction float64) DetectorOption {
	return func(d *Detector) error {
		if fraction <= 0 || fraction > 1 {
			return fmt.Errorf("step fraction %v outside (0, 1]", fraction)
		}
		d.cfg.StepFraction = fraction
		return nil
	}
}

// WithDetectChannels selects the raster channels the detector scans, in
// order. It should match the channel selection suspected to carry payload.
func WithDetectChannels(channels ...int) DetectorOption {
	return func(d *Detector) error {
		if len(channels) == 0 {
			return fmt.Errorf("no channels selected")
		}
		d.policy = lsbr.DefaultPolicy()
		d.policy.Channels = channels
		return nil
	}
}
