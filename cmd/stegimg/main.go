// Command stegimg embeds, extracts and detects hidden payloads in lossless
// raster images. JPEG coefficient carriers are served by the library API
// only, since no lossless coefficient codec ships with this tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/fatih/color"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/stegimg/stegimg"
)

// Exit codes per error kind.
const (
	exitOK          = 0
	exitFailure     = 1
	exitCapacity    = 2
	exitFormat      = 3
	exitIntegrity   = 4
	exitUnsupported = 5
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		usage()
		return exitFailure
	}

	var err error
	switch args[0] {
	case "embed":
		err = cmdEmbed(args[1:])
	case "extract":
		err = cmdExtract(args[1:])
	case "detect":
		err = cmdDetect(args[1:])
	case "capacity":
		err = cmdCapacity(args[1:])
	default:
		usage()
		return exitFailure
	}
	if err != nil {
		color.Red("error: %v", err)
		return exitCode(err)
	}
	return exitOK
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: stegimg <embed|extract|detect|capacity> [flags]")
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, stegimg.ErrCapacity):
		return exitCapacity
	case errors.Is(err, stegimg.ErrFormat):
		return exitFormat
	case errors.Is(err, stegimg.ErrIntegrity):
		return exitIntegrity
	case errors.Is(err, stegimg.ErrUnsupportedCarrier):
		return exitUnsupported
	default:
		return exitFailure
	}
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	logLevel string
	channels string
	bits     int
	ecc      bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.logLevel, "log-level", "info", "debug, info, warn or error")
	fs.StringVar(&c.channels, "channels", "rgb", "channels carrying payload bits, a subset of \"rgba\"")
	fs.IntVar(&c.bits, "bits", 1, "low bit planes used per channel (1..8)")
	fs.BoolVar(&c.ecc, "ecc", false, "protect the payload with a Golay error correcting code")
}

func (c *commonFlags) setup() ([]stegimg.Option, []stegimg.DetectorOption, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.logLevel)); err != nil {
		return nil, nil, fmt.Errorf("invalid -log-level %q: %w", c.logLevel, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	channels, err := parseChannels(c.channels)
	if err != nil {
		return nil, nil, err
	}
	opts := []stegimg.Option{
		stegimg.WithChannels(channels...),
		stegimg.WithBitsPerChannel(c.bits),
	}
	if c.ecc {
		opts = append(opts, stegimg.WithECC())
	}
	return opts, []stegimg.DetectorOption{stegimg.WithDetectChannels(channels...)}, nil
}

func parseChannels(s string) ([]int, error) {
	index := map[rune]int{'r': 0, 'g': 1, 'b': 2, 'a': 3}
	var out []int
	for _, r := range strings.ToLower(s) {
		i, ok := index[r]
		if !ok {
			return nil, fmt.Errorf("%w: unknown channel %q", stegimg.ErrUnsupportedCarrier, r)
		}
		out = append(out, i)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no channels selected", stegimg.ErrUnsupportedCarrier)
	}
	return out, nil
}

func cmdEmbed(args []string) error {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	var (
		common    commonFlags
		input     = fs.String("i", "", "path to the cover image")
		output    = fs.String("o", "", "path the stego image is written to (lossless format)")
		dataPath  = fs.String("d", "", "path to the payload file")
		watermark = fs.Bool("w", false, "tile the payload to fill the whole capacity")
	)
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" || *output == "" || *dataPath == "" {
		return errors.New("embed requires -i, -o and -d")
	}
	opts, _, err := common.setup()
	if err != nil {
		return err
	}
	if err := requireLossless(*output); err != nil {
		return err
	}

	carrier, err := loadCarrier(*input)
	if err != nil {
		return err
	}
	payload, err := os.ReadFile(*dataPath)
	if err != nil {
		return err
	}
	slog.Info("loaded payload", "bytes", len(payload))

	ctx := context.Background()
	s, err := stegimg.New(opts...)
	if err != nil {
		return err
	}
	if *watermark {
		bits, err := s.CapacityLSB(carrier)
		if err != nil {
			return err
		}
		payload, err = stegimg.RepeatToFill(payload, bits)
		if err != nil {
			return err
		}
		slog.Info("tiled payload for watermarking", "bytes", len(payload))
	}
	if err := s.EmbedLSB(ctx, carrier, payload); err != nil {
		return err
	}

	img, err := carrier.ToImage()
	if err != nil {
		return err
	}
	if err := imaging.Save(img, *output); err != nil {
		return err
	}
	color.Green("embedded %d bytes into %s", len(payload), *output)
	return nil
}

func cmdExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	var (
		common commonFlags
		input  = fs.String("i", "", "path to the stego image")
		output = fs.String("o", "", "path the extracted payload is written to")
	)
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" || *output == "" {
		return errors.New("extract requires -i and -o")
	}
	opts, _, err := common.setup()
	if err != nil {
		return err
	}

	carrier, err := loadCarrier(*input)
	if err != nil {
		return err
	}
	payload, err := stegimg.ExtractLSB(context.Background(), carrier, opts...)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*output, payload, 0o644); err != nil {
		return err
	}
	color.Green("extracted %d bytes into %s", len(payload), *output)
	return nil
}

func cmdDetect(args []string) error {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	var (
		common    commonFlags
		input     = fs.String("i", "", "path to the image under analysis")
		threshold = fs.Float64("threshold", 0.9, "probability a curve point must exceed")
		curve     = fs.Bool("curve", false, "print the full detection curve")
	)
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		return errors.New("detect requires -i")
	}
	_, dopts, err := common.setup()
	if err != nil {
		return err
	}
	dopts = append(dopts, stegimg.WithThreshold(*threshold))

	carrier, err := loadCarrier(*input)
	if err != nil {
		return err
	}
	d, err := stegimg.NewDetector(dopts...)
	if err != nil {
		return err
	}
	res, err := d.DetectLSB(carrier)
	if err != nil {
		return err
	}

	if *curve {
		for _, p := range res.Curve {
			fmt.Printf("%.3f\t%.6f\n", p.Fraction, p.Probability)
		}
	}
	fmt.Printf("max probability of embedding: %.4f\n", res.MaxProbability)
	if res.Suspected {
		color.Red("hidden payload suspected")
	} else {
		color.Green("no evidence of embedding")
	}
	return nil
}

func cmdCapacity(args []string) error {
	fs := flag.NewFlagSet("capacity", flag.ExitOnError)
	var (
		common commonFlags
		input  = fs.String("i", "", "path to the cover image")
	)
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		return errors.New("capacity requires -i")
	}
	opts, _, err := common.setup()
	if err != nil {
		return err
	}

	carrier, err := loadCarrier(*input)
	if err != nil {
		return err
	}
	s, err := stegimg.New(opts...)
	if err != nil {
		return err
	}
	bits, err := s.CapacityLSB(carrier)
	if err != nil {
		return err
	}
	fmt.Printf("storage capacity: %d bytes (%d bits)\n", bits/8, bits)
	return nil
}

func loadCarrier(path string) (*stegimg.Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", stegimg.ErrUnsupportedCarrier, err)
	}
	slog.Debug("decoded carrier", "path", path, "format", format)
	return stegimg.FromImage(img), nil
}

// requireLossless rejects output formats that would recompress the carrier
// and destroy the embedded bits.
func requireLossless(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".bmp", ".tif", ".tiff":
		return nil
	default:
		return fmt.Errorf("%w: stego output must be a lossless format (png, bmp, tiff)", stegimg.ErrUnsupportedCarrier)
	}
}
