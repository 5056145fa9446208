package bench_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stegimg/stegimg"
)

func benchRaster(b *testing.B, w, h int) *stegimg.Raster {
	b.Helper()
	pix := make([]uint8, w*h*3)
	rd := rand.New(rand.NewSource(1))
	rd.Read(pix)
	r, err := stegimg.NewRaster(w, h, 3, pix)
	if err != nil {
		b.Fatal(err)
	}
	return r
}

func benchCoefficients(b *testing.B, blocks int) *stegimg.Coefficients {
	b.Helper()
	rd := rand.New(rand.NewSource(2))
	bs := make([][]int32, blocks)
	for i := range bs {
		bs[i] = make([]int32, 64)
		for j := range bs[i] {
			bs[i][j] = int32(rd.Intn(64) - 32)
		}
	}
	c, err := stegimg.NewCoefficients(bs)
	if err != nil {
		b.Fatal(err)
	}
	return c
}

func BenchmarkEmbedLSB(b *testing.B) {
	ctx := context.Background()
	payload := make([]byte, 32<<10)
	rand.New(rand.NewSource(3)).Read(payload)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		r := benchRaster(b, 512, 512)
		b.StartTimer()
		if err := stegimg.EmbedLSB(ctx, r, payload); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkExtractLSB(b *testing.B) {
	ctx := context.Background()
	r := benchRaster(b, 512, 512)
	payload := make([]byte, 32<<10)
	rand.New(rand.NewSource(4)).Read(payload)
	if err := stegimg.EmbedLSB(ctx, r, payload); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := stegimg.ExtractLSB(ctx, r); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEmbedJSteg(b *testing.B) {
	ctx := context.Background()
	payload := make([]byte, 4<<10)
	rand.New(rand.NewSource(5)).Read(payload)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		c := benchCoefficients(b, 4096)
		b.StartTimer()
		if err := stegimg.EmbedJSteg(ctx, c, payload); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDetectLSB(b *testing.B) {
	r := benchRaster(b, 512, 512)
	d, err := stegimg.NewDetector()
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.DetectLSB(r); err != nil {
			b.Fatal(err)
		}
	}
}
