package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stegimg/stegimg"
)

func parseCommon(t *testing.T, args ...string) *commonFlags {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var c commonFlags
	c.register(fs)
	require.NoError(t, fs.Parse(args))
	return &c
}

func TestBitsFlag(t *testing.T) {
	c := parseCommon(t, "-channels", "rg", "-bits", "2")
	opts, _, err := c.setup()
	require.NoError(t, err)

	s, err := stegimg.New(opts...)
	require.NoError(t, err)
	r, err := stegimg.NewRaster(16, 16, 3, make([]uint8, 16*16*3))
	require.NoError(t, err)

	// two channels, two bit planes each
	bits, err := s.CapacityLSB(r)
	require.NoError(t, err)
	assert.Equal(t, 16*16*2*2-48, bits)
}

func TestBitsFlagOutOfRange(t *testing.T) {
	c := parseCommon(t, "-bits", "9")
	opts, _, err := c.setup()
	require.NoError(t, err)
	_, err = stegimg.New(opts...)
	assert.Error(t, err)
}

func TestChannelsFlagUnknownChannel(t *testing.T) {
	c := parseCommon(t, "-channels", "rgz")
	_, _, err := c.setup()
	assert.ErrorIs(t, err, stegimg.ErrUnsupportedCarrier)
}

func TestExitCodes(t *testing.T) {
	test := []struct {
		err  error
		code int
	}{
		{err: stegimg.ErrCapacity, code: exitCapacity},
		{err: stegimg.ErrFormat, code: exitFormat},
		{err: stegimg.ErrIntegrity, code: exitIntegrity},
		{err: stegimg.ErrUnsupportedCarrier, code: exitUnsupported},
		{err: flag.ErrHelp, code: exitFailure},
	}
	for _, tt := range test {
		assert.Equal(t, tt.code, exitCode(tt.err))
	}
}
