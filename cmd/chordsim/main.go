package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"ChordSim/internal/config"
	"ChordSim/internal/domain"
	"ChordSim/internal/interp"
	"ChordSim/internal/logger"
	zapfactory "ChordSim/internal/logger/zap"
	"ChordSim/internal/ring"
	"ChordSim/internal/telemetry"

	"github.com/peterh/liner"
	"go.opentelemetry.io/otel"
)

const usageText = "usage: chordsim m [-i FILE] [-config FILE]"

func main() {
	// The key size is the leading positional argument; flags follow it.
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usageText)
		os.Exit(1)
	}
	m, err := strconv.Atoi(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid key size %q\n%s\n", os.Args[1], usageText)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("chordsim", flag.ExitOnError)
	inputPath := fs.String("i", "", "batch command file (default: interactive)")
	configPath := fs.String("config", "", "path to configuration file")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, usageText)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[2:])

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %q: %v", *configPath, err)
	}
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// Initialize logger
	var lgr logger.Logger
	if cfg.Logger.Active {
		zapLog, err := zapfactory.New(cfg.Logger)
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
		defer func() { _ = zapLog.Sync() }()
		lgr = zapfactory.NewZapAdapter(zapLog)
	} else {
		lgr = &logger.NopLogger{}
	}
	cfg.LogConfig(lgr)

	// Initialize identifier space
	space, err := domain.NewSpace(m)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	lgr.Debug("identifier space initialized",
		logger.F("key_size", space.Bits),
		logger.F("byte_len", space.ByteLen))

	// Initialize telemetry
	shutdown := telemetry.InitTracer(cfg.Telemetry, "chordsim")
	defer func() { _ = shutdown(context.Background()) }()

	// Initialize topology and ring
	top := ring.NewTopology(space)
	ringOpts := []ring.Option{ring.WithLogger(lgr.Named("ring"))}
	if cfg.Telemetry.Tracing.Enabled {
		ringOpts = append(ringOpts, ring.WithTracer(otel.Tracer("chordsim/ring")))
	}
	rng := ring.New(space, top, ringOpts...)
	it := interp.New(space, rng, os.Stdout, interp.WithLogger(lgr.Named("interp")))

	ctx := context.Background()
	if *inputPath != "" {
		runBatch(ctx, it, *inputPath, lgr)
		return
	}
	runInteractive(ctx, it, cfg.REPL, lgr)
}

// runBatch feeds the command file through the interpreter line by
// line. A missing file is a startup error; end and end-of-file both
// terminate normally.
func runBatch(ctx context.Context, it *interp.Interpreter, path string, lgr logger.Logger) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Input file not found, will exit...")
		os.Exit(1)
	}
	defer f.Close()
	lgr.Info("batch mode", logger.F("file", path))

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := it.Execute(ctx, scanner.Text()); errors.Is(err, interp.ErrEnd) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		lgr.Error("reading input file", logger.F("err", err))
	}
}

// runInteractive runs the liner-backed shell. Ctrl-C and end-of-file
// exit cleanly, as does the end command.
func runInteractive(ctx context.Context, it *interp.Interpreter, cfg config.REPLConfig, lgr logger.Logger) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if cfg.HistoryFile != "" {
		if f, err := os.Open(cfg.HistoryFile); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}
	lgr.Info("interactive mode")

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			// Ctrl-C and EOF both end the session.
			if !errors.Is(err, liner.ErrPromptAborted) {
				lgr.Debug("prompt closed", logger.F("err", err))
			}
			break
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		if err := it.Execute(ctx, input); errors.Is(err, interp.ErrEnd) {
			break
		}
	}

	if cfg.HistoryFile != "" {
		if f, err := os.Create(cfg.HistoryFile); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		} else {
			lgr.Warn("cannot write history file", logger.F("err", err))
		}
	}
}
