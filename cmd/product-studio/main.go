package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/pixelform/studio"
	"github.com/pixelform/studio/internal/config"
	"github.com/pixelform/studio/internal/utils"
	"github.com/pixelform/studio/pkg/generate"
	"github.com/pixelform/studio/pkg/pipeline"
	"github.com/pixelform/studio/pkg/types"
)

func main() {
	// .env is optional; missing files are fine.
	_ = godotenv.Load()

	var (
		in         string
		outDir     string
		mode       string
		configPath string

		backendName string
		precision   string
		memory      string

		strategy  string
		threshold float64
		padding   float64
		noCrop    bool

		background string
		bgSource   string

		confidence float64

		genModel string
		genURL   string
		style    string

		format  string
		quality int
		verbose bool
	)

	flag.StringVar(&in, "in", "", "input image path or URL (jpg/png/webp), or a directory in classify mode")
	flag.StringVar(&outDir, "out", "", "output directory")
	flag.StringVar(&mode, "mode", "process", "mode: process or classify")
	flag.StringVar(&configPath, "config", "", "config file path (JSON)")

	flag.StringVar(&backendName, "backend", "", "compute backend: gpu|portable|experimental")
	flag.StringVar(&precision, "precision", "", "model precision: high|medium|low")
	flag.StringVar(&memory, "memory", "", "memory policy: aggressive|balanced|throughput")

	flag.StringVar(&strategy, "strategy", "", "segmentation strategy: portrait|object|fast")
	flag.Float64Var(&threshold, "threshold", -1, "segmentation threshold (0..1)")
	flag.Float64Var(&padding, "padding", -1, "auto-crop padding fraction (0..1)")
	flag.BoolVar(&noCrop, "nocrop", false, "skip auto-crop")

	flag.StringVar(&background, "background", "transparent", "background: transparent|white|gradient|blur|image")
	flag.StringVar(&bgSource, "bgimage", "", "background image path or URL (for -background image)")

	flag.Float64Var(&confidence, "confidence", -1, "classification confidence threshold (0..1)")

	flag.StringVar(&genModel, "genmodel", "", "generation model name; empty disables generation")
	flag.StringVar(&genURL, "genurl", "", "generation server URL")
	flag.StringVar(&style, "style", "", "style fragment for the generation prompt")

	flag.StringVar(&format, "ext", "", "output format: png|jpg|webp")
	flag.IntVar(&quality, "quality", 0, "JPEG/WebP output quality (1-100)")
	flag.BoolVar(&verbose, "v", false, "verbose logging")

	flag.Parse()
	if in == "" {
		log.Fatalf("usage: %s -in input.jpg|URL [-mode process|classify] [-strategy portrait|object|fast] [-background gradient] [-out outdir]",
			filepath.Base(os.Args[0]))
	}

	cfg := loadConfig(configPath)
	applyFlagOverrides(cfg, backendName, precision, memory, strategy, threshold, padding, confidence, genModel, genURL, style, format, quality, outDir)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	opts := []studio.Option{
		studio.WithLogger(logger),
		studio.WithModelDir(cfg.Models.CacheDir),
	}
	if cfg.Generate.Model != "" {
		gen, err := generate.NewOllama(cfg.Generate.URL, logger)
		if err != nil {
			log.Fatalf("generation backend: %v", err)
		}
		opts = append(opts, studio.WithGenerator(gen))
	}

	s, warning, err := studio.New(cfg.PerformanceProfile(), opts...)
	if err != nil {
		log.Fatalf("initializing studio: %v", err)
	}
	if warning != "" {
		fmt.Fprintln(os.Stderr, "warning:", warning)
	}

	ctx := context.Background()
	switch mode {
	case "process":
		runProcess(ctx, s, cfg, in, background, bgSource, !noCrop)
	case "classify":
		runClassify(ctx, s, cfg, in)
	default:
		log.Fatalf("unknown mode %q (use process or classify)", mode)
	}
}

func runProcess(ctx context.Context, s *studio.Studio, cfg *config.Config, in, background, bgSource string, autoCrop bool) {
	spec, err := backgroundSpec(background, bgSource)
	if err != nil {
		log.Fatal(err)
	}

	if err := utils.EnsureDir(cfg.Output.Dir); err != nil {
		log.Fatalf("creating output directory: %v", err)
	}

	result, err := s.Process(ctx, pipeline.Request{
		Source:              in,
		Strategy:            types.ModelKind(cfg.Segment.Strategy),
		Threshold:           cfg.Segment.Threshold,
		AutoCrop:            autoCrop,
		Padding:             cfg.Segment.Padding,
		Background:          spec,
		Classify:            true,
		ConfidenceThreshold: cfg.Classify.ConfidenceThreshold,
		GenerateModel:       cfg.Generate.Model,
		Style:               cfg.Generate.Style,
		Progress: func(fraction float64, message string) {
			fmt.Printf("\r[%3.0f%%] %-40s", fraction*100, message)
		},
	})
	fmt.Println()
	if err != nil {
		log.Fatalf("processing failed: %v", err)
	}

	for _, w := range result.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	outPath := utils.GenerateOutputFilename(in, cfg.Output.Dir, cfg.Output.Suffix, cfg.Output.Format)
	if err := s.Save(result.Image, outPath, cfg.Output.Format, cfg.Output.Quality); err != nil {
		log.Fatalf("saving result: %v", err)
	}
	fmt.Println("saved:", outPath)

	if result.Category != nil {
		fmt.Printf("category: %s (%.2f)", result.Category.BestCategory, result.Category.BestConfidence)
		if result.Category.SuggestedName != "" {
			fmt.Printf("  name: %s", result.Category.SuggestedName)
		}
		fmt.Println()
	}
	if result.Generated != nil {
		fmt.Println("generation response:", result.Generated.Text)
	}
}

func runClassify(ctx context.Context, s *studio.Studio, cfg *config.Config, in string) {
	sources := []string{in}
	if info, err := os.Stat(in); err == nil && info.IsDir() {
		files, err := utils.ListImageFiles(in)
		if err != nil {
			log.Fatalf("listing images: %v", err)
		}
		if len(files) == 0 {
			log.Fatalf("no images found under %s", in)
		}
		sources = files
	}

	results, failures, err := s.ClassifyBatch(ctx, sources, cfg.Classify.ConfidenceThreshold,
		func(fraction float64, message string) {
			fmt.Printf("\r[%3.0f%%] %-40s", fraction*100, message)
		})
	fmt.Println()
	if err != nil {
		log.Fatalf("batch classification failed: %v", err)
	}

	type row struct {
		Source string                       `json:"source"`
		Result *types.ProductCategoryResult `json:"result,omitempty"`
		Error  string                       `json:"error,omitempty"`
	}
	rows := make([]row, len(sources))
	for i, src := range sources {
		rows[i] = row{Source: src, Result: results[i]}
	}
	for _, f := range failures {
		rows[f.Index].Error = f.Err.Error()
	}

	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(out))
}

func backgroundSpec(name, source string) (types.BackgroundSpec, error) {
	switch strings.ToLower(name) {
	case "", "transparent":
		return nil, nil
	case "white":
		return types.DefaultSolid(), nil
	case "gradient":
		return types.DefaultGradient(), nil
	case "blur":
		return types.DefaultBlur(), nil
	case "image":
		if source == "" {
			return nil, fmt.Errorf("-background image requires -bgimage")
		}
		return types.ImageBackground{Source: source, Scale: 1, Anchor: types.AnchorCenter}, nil
	default:
		return nil, fmt.Errorf("unknown background %q", name)
	}
}

func loadConfig(path string) *config.Config {
	if path == "" {
		if def := config.GetConfigPath(); utils.FileExists(def) {
			path = def
		}
	}
	if path == "" {
		return config.Default()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	return cfg
}

func applyFlagOverrides(cfg *config.Config, backendName, precision, memory, strategy string, threshold, padding, confidence float64, genModel, genURL, style, format string, quality int, outDir string) {
	if backendName != "" {
		cfg.Profile.Backend = backendName
	}
	if precision != "" {
		cfg.Profile.Precision = precision
	}
	if memory != "" {
		cfg.Profile.MemoryPolicy = memory
	}
	if strategy != "" {
		cfg.Segment.Strategy = strategy
	}
	if threshold >= 0 {
		cfg.Segment.Threshold = threshold
	}
	if padding >= 0 {
		cfg.Segment.Padding = padding
	}
	if confidence >= 0 {
		cfg.Classify.ConfidenceThreshold = confidence
	}
	if genModel != "" {
		cfg.Generate.Model = genModel
	}
	if genURL != "" {
		cfg.Generate.URL = genURL
	}
	if style != "" {
		cfg.Generate.Style = style
	}
	if format != "" {
		cfg.Output.Format = format
	}
	if quality > 0 {
		cfg.Output.Quality = quality
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}

	// Env overrides land between config file and flags via godotenv.
	if v := os.Getenv("STUDIO_GENERATE_URL"); v != "" && genURL == "" {
		cfg.Generate.URL = v
	}
	if v := os.Getenv("STUDIO_MODEL_DIR"); v != "" {
		cfg.Models.CacheDir = v
	}
}
