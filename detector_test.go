package stegimg_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stegimg/stegimg"
)

// cleanRaster mimics an untouched image: sample values concentrated on a
// few pairs of values with a strongly skewed least significant bit.
func cleanRaster(t *testing.T, w, h int) *stegimg.Raster {
	t.Helper()
	pix := make([]uint8, w*h*3)
	for i := range pix {
		v := uint8(64 + 2*(i%8))
		if i%10 == 0 {
			v |= 1
		}
		pix[i] = v
	}
	r, err := stegimg.NewRaster(w, h, 3, pix)
	require.NoError(t, err)
	return r
}

// spreadRaster spreads samples over many pairs of values, the histogram
// shape the embedded-carrier scenario needs.
func spreadRaster(t *testing.T, w, h int) *stegimg.Raster {
	t.Helper()
	pix := make([]uint8, w*h*3)
	for i := range pix {
		v := uint8(64 + 2*(i%64))
		if i%10 == 0 {
			v |= 1
		}
		pix[i] = v
	}
	r, err := stegimg.NewRaster(w, h, 3, pix)
	require.NoError(t, err)
	return r
}

func TestDetectLSBEmbedded(t *testing.T) {
	ctx := context.Background()
	r := spreadRaster(t, 64, 64)

	// fill close to the full capacity of 1530 bytes
	require.NoError(t, stegimg.EmbedLSB(ctx, r, randomPayload(1500, 77)))

	d, err := stegimg.NewDetector()
	require.NoError(t, err)
	res, err := d.DetectLSB(r)
	require.NoError(t, err)

	assert.True(t, res.Suspected)
	assert.Greater(t, res.MaxProbability, 0.9)

	early := false
	for _, p := range res.Curve {
		if p.Fraction > 0.5 {
			break
		}
		if p.Probability > 0.9 {
			early = true
			break
		}
	}
	assert.True(t, early, "probability did not exceed 0.9 in the first half of the scan")
}

func TestDetectLSBClean(t *testing.T) {
	r := cleanRaster(t, 64, 64)
	d, err := stegimg.NewDetector()
	require.NoError(t, err)
	res, err := d.DetectLSB(r)
	require.NoError(t, err)

	assert.False(t, res.Suspected)
	for _, p := range res.Curve {
		assert.Less(t, p.Probability, 0.5, "at fraction %v", p.Fraction)
	}
}

func TestDetectLSBDoesNotMutate(t *testing.T) {
	r := cleanRaster(t, 32, 32)
	before := r.Clone()
	d, err := stegimg.NewDetector()
	require.NoError(t, err)
	_, err = d.DetectLSB(r)
	require.NoError(t, err)
	assert.Equal(t, before.Pix, r.Pix)
}

// cleanCoefficients skews magnitudes toward even values across many pairs.
func cleanCoefficients(t *testing.T, blocks int) *stegimg.Coefficients {
	t.Helper()
	bs := make([][]int32, blocks)
	k := 0
	for i := range bs {
		bs[i] = make([]int32, 64)
		for j := range bs[i] {
			if j == 0 {
				bs[i][j] = 0 // a DC position outside the embedding format
				k++
				continue
			}
			v := int32(4 + 2*(k%32))
			if k%10 == 0 {
				v |= 1
			}
			if k%2 == 0 {
				v = -v
			}
			bs[i][j] = v
			k++
		}
	}
	c, err := stegimg.NewCoefficients(bs)
	require.NoError(t, err)
	return c
}

func TestDetectJSteg(t *testing.T) {
	ctx := context.Background()
	d, err := stegimg.NewDetector()
	require.NoError(t, err)

	clean := cleanCoefficients(t, 128)
	res, err := d.DetectJSteg(clean)
	require.NoError(t, err)
	assert.False(t, res.Suspected, "clean carrier flagged: max %v", res.MaxProbability)

	embedded := cleanCoefficients(t, 128)
	s, err := stegimg.New()
	require.NoError(t, err)
	bits, err := s.CapacityJSteg(embedded)
	require.NoError(t, err)
	require.NoError(t, s.EmbedJSteg(ctx, embedded, randomPayload(bits/8, 99)))

	res, err = d.DetectJSteg(embedded)
	require.NoError(t, err)
	assert.True(t, res.Suspected)
	assert.Greater(t, res.MaxProbability, 0.9)
}

func TestDetectorOptions(t *testing.T) {
	_, err := stegimg.NewDetector(stegimg.WithThreshold(1.5))
	assert.Error(t, err)
	_, err = stegimg.NewDetector(stegimg.WithSustain(0))
	assert.Error(t, err)
	_, err = stegimg.NewDetector(stegimg.WithStep(2))
	assert.Error(t, err)

	ctx := context.Background()
	r := spreadRaster(t, 64, 64)
	require.NoError(t, stegimg.EmbedLSB(ctx, r, randomPayload(1500, 13)))

	// an unreachable sustain window keeps even a saturated curve negative
	d, err := stegimg.NewDetector(stegimg.WithThreshold(0.999999), stegimg.WithSustain(1))
	require.NoError(t, err)
	res, err := d.DetectLSB(r)
	require.NoError(t, err)
	assert.False(t, res.Suspected)

	// coarser steps shorten the curve
	d, err = stegimg.NewDetector(stegimg.WithStep(0.25))
	require.NoError(t, err)
	res, err = d.DetectLSB(r)
	require.NoError(t, err)
	assert.Len(t, res.Curve, 4)
}

func TestDetectChannels(t *testing.T) {
	ctx := context.Background()

	// embed into the blue channel only, at full capacity
	r := spreadRaster(t, 64, 64)
	s, err := stegimg.New(stegimg.WithChannels(2))
	require.NoError(t, err)
	bits, err := s.CapacityLSB(r)
	require.NoError(t, err)
	require.NoError(t, s.EmbedLSB(ctx, r, randomPayload(bits/8, 55)))

	d, err := stegimg.NewDetector(stegimg.WithDetectChannels(2))
	require.NoError(t, err)
	res, err := d.DetectLSB(r)
	require.NoError(t, err)
	assert.True(t, res.Suspected)
}
