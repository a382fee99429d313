// Command reefmap runs the reef feature curation pipeline.
//
// Each pipeline stage is its own subcommand so a run can be resumed or
// re-executed stage by stage; "run" executes every stage in order.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/reefworks/reefmap/internal/download"
	"github.com/reefworks/reefmap/pkg/pipeline"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	flags := pflag.NewFlagSet(cmd, pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "path to config.toml (defaults apply when omitted)")
	verbose := flags.BoolP("verbose", "v", false, "enable debug logging")
	if err := flags.Parse(args); err != nil {
		log.Fatal().Err(err).Msg("parse flags")
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg := pipeline.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = pipeline.LoadConfig(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("load config")
		}
	}

	runner := pipeline.NewRunner(cfg, log)

	var err error
	switch cmd {
	case "download":
		err = download.New(cfg.DownloadPath).FetchAll(download.DefaultSources())
	case "clean-overlaps":
		err = runner.CleanOverlaps()
	case "crosswalk":
		err = runner.Crosswalk()
	case "merge-rocks":
		err = runner.MergeRocks()
	case "clip-rocks":
		err = runner.ClipRocks()
	case "correct-mask":
		err = runner.CorrectMask()
	case "fill-sediment":
		err = runner.FillSediment()
	case "clip-land":
		err = runner.ClipLand()
	case "reclassify":
		err = runner.Reclassify()
	case "reclip-land":
		err = runner.ReclipLand()
	case "run":
		err = runner.RunAll()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal().Err(err).Str("command", cmd).Msg("pipeline failed")
	}

	if cmd != "run" && cmd != "download" {
		runner.Summary().Log(log)
	}
}

func printUsage() {
	fmt.Println("Usage: reefmap <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  download       Fetch third-party source datasets into the cache")
	fmt.Println("  clean-overlaps Remove overlaps between source reef types")
	fmt.Println("  crosswalk      Reclassify source types into the curated schema")
	fmt.Println("  merge-rocks    Dissolve rocky reefs with the semi-automated layer")
	fmt.Println("  clip-rocks     Cut rocky reef areas out of other features")
	fmt.Println("  correct-mask   Apply manual corrections to the shallow mask")
	fmt.Println("  fill-sediment  Promote unclaimed shallow areas to sediment features")
	fmt.Println("  clip-land      Remove land areas using the coastline")
	fmt.Println("  reclassify     Migrate the dataset to the revised classification")
	fmt.Println("  reclip-land    Repeat the land clip on the reclassified dataset")
	fmt.Println("  run            Execute every curation stage in order")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -c, --config   Path to config.toml")
	fmt.Println("  -v, --verbose  Enable debug logging")
}
