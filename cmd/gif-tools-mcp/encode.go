package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/ironsheep/gif-tools-mcp/internal/config"
	"github.com/ironsheep/gif-tools-mcp/internal/gifenc"
	"github.com/ironsheep/gif-tools-mcp/internal/imaging"
)

// encodeFlags holds the encode subcommand's command line.
type encodeFlags struct {
	configPath  string
	profile     string
	output      string
	delay       int
	repeat      int
	quality     int
	colors      int
	background  string
	transparent string
	exact       bool
	frames      []string
	set         map[string]bool
}

func parseEncodeFlags(args []string, stderr io.Writer) (*encodeFlags, error) {
	f := &encodeFlags{set: map[string]bool{}}

	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "TOML profile file")
	fs.StringVar(&f.profile, "profile", "", "profile name")
	fs.StringVar(&f.output, "o", "", "output path")
	fs.IntVar(&f.delay, "delay", 0, "frame delay in hundredths of a second")
	fs.IntVar(&f.repeat, "repeat", gifenc.NoRepeat, "loop count (-1 once, 0 forever)")
	fs.IntVar(&f.quality, "quality", 10, "sampling factor 1-30")
	fs.IntVar(&f.colors, "colors", 256, "palette size 2-256")
	fs.StringVar(&f.background, "background", "", "background hex color")
	fs.StringVar(&f.transparent, "transparent", "", "transparent hex color")
	fs.BoolVar(&f.exact, "exact", false, "require an exact transparent color match")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	f.frames = fs.Args()
	if f.output == "" {
		return nil, errors.New("-o is required")
	}
	if len(f.frames) == 0 {
		return nil, errors.New("no frame images given")
	}
	return f, nil
}

// options resolves the profile and applies the flags given explicitly.
func (f *encodeFlags) options() (gifenc.Options, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.Load(f.configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return gifenc.Options{}, err
	}

	opts, err := cfg.Options(f.profile)
	if err != nil {
		return opts, err
	}
	if f.set["delay"] {
		opts.Delay = f.delay
	}
	if f.set["repeat"] {
		opts.Repeat = f.repeat
	}
	if f.set["quality"] {
		opts.Quality = f.quality
	}
	if f.set["colors"] {
		opts.Colors = f.colors
	}
	if f.set["background"] {
		c, err := imaging.ParseHexColor(f.background)
		if err != nil {
			return opts, fmt.Errorf("-background: %w", err)
		}
		opts.Background = &c
	}
	if f.set["transparent"] {
		c, err := imaging.ParseHexColor(f.transparent)
		if err != nil {
			return opts, fmt.Errorf("-transparent: %w", err)
		}
		opts.Transparent = &c
	}
	if f.set["exact"] {
		opts.TransparentExact = f.exact
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// runEncode encodes the frame files named in args into one GIF.
func runEncode(args []string, logger zerolog.Logger) error {
	f, err := parseEncodeFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	opts, err := f.options()
	if err != nil {
		return err
	}
	opts.Logger = logger

	images, err := imaging.NewImageCache().LoadAll(f.frames)
	if err != nil {
		return err
	}

	enc := gifenc.New(opts)
	if err := enc.StartFile(f.output); err != nil {
		return err
	}
	for i, img := range images {
		if err := enc.AddImage(img); err != nil {
			enc.Abort()
			os.Remove(f.output)
			return fmt.Errorf("frame %d (%s): %w", i, f.frames[i], err)
		}
	}
	if err := enc.Finish(); err != nil {
		os.Remove(f.output)
		return err
	}

	logger.Info().
		Str("output", f.output).
		Int("frames", len(images)).
		Msg("gif written")
	return nil
}
