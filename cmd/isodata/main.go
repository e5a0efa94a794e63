package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lucasb-eyer/go-colorful"

	"isoclass/internal/config"
	"isoclass/internal/isodata"
	"isoclass/internal/raster"
	"isoclass/internal/report"
	"isoclass/internal/thematic"
)

// options holds the command line.
type options struct {
	input      string
	output     string
	configPath string
	natural    bool
	cfg        *config.Config
}

// parseArgs reads args into options. Clustering flags given explicitly on
// the command line override values loaded from -config.
func parseArgs(args []string) (*options, error) {
	def := config.Default()
	fs := flag.NewFlagSet("isodata", flag.ContinueOnError)

	input := fs.String("input", "", "Path to the input raster (image file or ENVI .hdr)")
	output := fs.String("output", "", "Path of the label raster to write (.tif or .png)")
	configPath := fs.String("config", "", "Optional YAML run configuration")
	natural := fs.Bool("natural", false, "Colour the preview with the centre means of 3-band inputs")

	clusters := fs.Int("clusters", def.Clusters, "Number of initial cluster centres")
	initMode := fs.String("init", def.Init, "Centre initialisation: random or kmeanspp")
	maxIter := fs.Int("max-iterations", def.MaxIterations, "Maximum number of iterations")
	terminal := fs.Float64("terminal-threshold", def.TerminalThreshold, "Stop when mean centre movement falls below this")
	minNum := fs.Uint64("min-num-vals", def.MinNumVals, "Eliminate centres with fewer pixels than this")
	minDist := fs.Float64("min-distance", def.MinDistanceBetweenCentres, "Merge centres closer than this")
	sdThreshold := fs.Float64("stddev-threshold", def.StdDevThreshold, "Split centres with a band deviation above this")
	prop := fs.Float64("prop-over-avg-dist", def.PropOverAvgDist, "Split centres whose spread exceeds this multiple of the average")
	workers := fs.Int("workers", def.Workers, "Goroutines per image pass")
	seed := fs.Uint64("seed", def.Seed, "Random seed (0 for time based)")
	reportPath := fs.String("report", "", "Write a JSON run report here")
	centresPath := fs.String("centres", "", "Write the final centres as CSV here")
	plotPath := fs.String("plot", "", "Write a convergence chart PNG here")
	previewPath := fs.String("preview", "", "Write a colour preview PNG here")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *input == "" || *output == "" {
		return nil, fmt.Errorf("-input and -output are required")
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "clusters":
			cfg.Clusters = *clusters
		case "init":
			cfg.Init = *initMode
		case "max-iterations":
			cfg.MaxIterations = *maxIter
		case "terminal-threshold":
			cfg.TerminalThreshold = *terminal
		case "min-num-vals":
			cfg.MinNumVals = *minNum
		case "min-distance":
			cfg.MinDistanceBetweenCentres = *minDist
		case "stddev-threshold":
			cfg.StdDevThreshold = *sdThreshold
		case "prop-over-avg-dist":
			cfg.PropOverAvgDist = *prop
		case "workers":
			cfg.Workers = *workers
		case "seed":
			cfg.Seed = *seed
		case "report":
			cfg.Outputs.Report = *reportPath
		case "centres":
			cfg.Outputs.Centres = *centresPath
		case "plot":
			cfg.Outputs.Plot = *plotPath
		case "preview":
			cfg.Outputs.Preview = *previewPath
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &options{
		input:      *input,
		output:     *output,
		configPath: *configPath,
		natural:    *natural,
		cfg:        cfg,
	}, nil
}

// run classifies the input and writes every requested output.
func run(ctx context.Context, opts *options) error {
	cfg := opts.cfg
	params := cfg.Params()

	copts := []isodata.Option{isodata.WithWorkers(cfg.Workers)}
	if cfg.Seed != 0 {
		copts = append(copts, isodata.WithSeed(cfg.Seed))
	}
	c := isodata.New(raster.FileOpener(opts.input), copts...)

	var err error
	switch cfg.Init {
	case config.InitKMeansPP:
		err = c.InitializeKMeansPP(ctx, cfg.Clusters)
	default:
		err = c.InitializeRandom(ctx, cfg.Clusters)
	}
	if err != nil {
		return err
	}

	iterErr := c.IterateUntilConverged(ctx, params)
	if iterErr == nil {
		iterErr = c.GenerateOutputImage(ctx, opts.output)
	}

	// The report and chart are still useful when the run fails part way.
	r := report.New(c, params)
	r.Input = opts.input
	if iterErr == nil {
		r.Output = opts.output
	}

	if labels := c.Labels(); labels != nil {
		colours := thematic.Palette(len(c.Centres()))
		if opts.natural {
			colours = naturalColours(c.Centres())
		}
		r.Classes = thematic.Shares(labels, colours)
		if cfg.Outputs.Preview != "" {
			if err := raster.WritePNG(cfg.Outputs.Preview, thematic.Render(labels, colours)); err != nil {
				return fmt.Errorf("error writing preview: %w", err)
			}
		}
		if cfg.Outputs.Centres != "" {
			if err := report.WriteCentres(cfg.Outputs.Centres, c.Centres()); err != nil {
				return err
			}
		}
	}
	if cfg.Outputs.Plot != "" && len(c.History()) > 0 {
		if err := report.PlotConvergence(cfg.Outputs.Plot, c.History(), params.TerminalThreshold); err != nil {
			return fmt.Errorf("error writing convergence plot: %w", err)
		}
	}
	if cfg.Outputs.Report != "" {
		if err := r.Write(cfg.Outputs.Report); err != nil {
			return err
		}
	}

	if iterErr != nil {
		return iterErr
	}
	log.Printf("Classification complete: %s after %d iterations, %d classes written to %s",
		c.State(), len(c.History()), len(c.Centres()), opts.output)
	return nil
}

// naturalColours stretches the centre means so the brightest band value maps
// to full intensity.
func naturalColours(centres isodata.Store) []colorful.Color {
	means := make([][]float64, len(centres))
	maxValue := 0.0
	for i, c := range centres {
		means[i] = c.Mean
		for _, v := range c.Mean {
			maxValue = max(maxValue, v)
		}
	}
	return thematic.NaturalColours(means, maxValue)
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// Create a context that can be canceled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle termination signals
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		log.Println("Received termination signal, shutting down...")
		cancel()
	}()

	log.Printf("Classifying %s into %d initial clusters", opts.input, opts.cfg.Clusters)
	if err := run(ctx, opts); err != nil {
		log.Fatalf("Error classifying %s: %v", opts.input, err)
	}
}
