package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/beamdasm/beam"
	"github.com/wippyai/beamdasm/config"
	"github.com/wippyai/beamdasm/export"
	"github.com/wippyai/beamdasm/runtime"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to beamdasm.toml (default: search upwards from the working directory)")
		strict     = flag.Bool("strict", false, "Fail on unknown term tags and illegal opcodes")
		chunks     = flag.Bool("chunks", false, "List the chunks of each file")
		functions  = flag.Bool("functions", false, "List imports, exports and locals")
		exportDir  = flag.String("export", "", "Write a CBOR snapshot of each module to this directory")
		color      = flag.String("color", "", "Colour output: auto, always or never")
		verbose    = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: beamdasm [-chunks] [-functions] [-strict] [-export dir] <file.beam>...")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "strict":
			cfg.Decode.Strict = *strict
		case "export":
			cfg.Output.ExportDir = *exportDir
		case "color":
			cfg.Output.Color = *color
		case "v":
			if *verbose {
				cfg.Log.Level = "debug"
			}
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := listing{chunks: *chunks, functions: *functions}
	if err := run(cfg, flag.Args(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.FindAndLoad(".")
}

func run(cfg *config.Config, paths []string, opts listing) error {
	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	beam.SetLogger(log)
	runtime.SetLogger(log)
	setColor(cfg.Output.Color)

	ld := runtime.New(cfg.LoaderOptions(log))
	mods, err := ld.LoadAll(context.Background(), paths)
	if err != nil {
		return err
	}

	for i, m := range mods {
		if i > 0 {
			fmt.Println()
		}
		fmt.Print(summarize(m, opts))

		if cfg.Output.ExportDir != "" {
			path, err := export.Write(cfg.Output.ExportDir, m)
			if err != nil {
				return err
			}
			log.Info("snapshot written", zap.String("module", m.Name()), zap.String("path", path))
			fmt.Printf("%s %s\n", labelStyle.Render("snapshot"), path)
		}
	}
	return nil
}

func setColor(mode string) {
	switch mode {
	case config.ColorNever:
		lipgloss.SetColorProfile(termenv.Ascii)
	case config.ColorAlways:
		lipgloss.SetColorProfile(termenv.TrueColor)
	default:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
	}
}
