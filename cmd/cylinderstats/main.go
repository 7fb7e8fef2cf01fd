package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"cylinderstats/internal/models"
	"cylinderstats/pkg/config"
	"cylinderstats/pkg/markers"
	"cylinderstats/pkg/pipeline"
	"cylinderstats/pkg/volumeio"
)

var log = config.NamedLogger("main")

func main() {
	configPath := flag.String("config", "cylinderstats.yaml", "YAML configuration file (defaults are used when it does not exist)")
	volumePath := flag.String("volume", "", "Reference volume: a .nii/.nii.gz file or a directory holding a DICOM series")
	markerPaths := flag.String("markers", "", "Comma-separated .fcsv/.mrk.json files or directories of them")
	modes := flag.String("mode", "", "Comma-separated operations run in order: generate, export, both")
	outputDir := flag.String("out", "", "Directory receiving the Statistic_<segment>.csv files")
	diameter := flag.Float64("diameter", 0, "Cylinder diameter in mm")
	height := flag.Float64("height", 0, "Cylinder height in mm")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use for rasterization")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	writeConfig := flag.Bool("write-config", false, "Write the effective configuration to -config and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	applyFlags(cfg, *modes, *outputDir, *diameter, *height, *numCores, *verbose)
	config.SetVerbose(cfg.Output.Verbose)

	if *writeConfig {
		if err := config.SaveConfig(cfg, *configPath); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Configuration written to %s\n", *configPath)
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if *volumePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	runModes := make([]pipeline.Mode, 0, len(cfg.Processing.Modes))
	for _, m := range cfg.Processing.Modes {
		mode, err := pipeline.ParseMode(m)
		if err != nil {
			log.Fatal(err)
		}
		runModes = append(runModes, mode)
	}

	reference, err := volumeio.Load(*volumePath)
	if err != nil {
		log.Fatalf("Failed to load volume: %v", err)
	}

	var markerList []models.Marker
	if *markerPaths != "" {
		markerList, err = markers.LoadPaths(splitList(*markerPaths))
		if err != nil {
			log.Fatalf("Failed to load markers: %v", err)
		}
	}

	if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	p := pipeline.NewPipeline(&pipeline.Params{
		Diameter:  cfg.Cylinder.Diameter,
		Height:    cfg.Cylinder.Height,
		OutputDir: cfg.Output.Directory,
		NumCores:  cfg.Processing.NumCores,
	})

	fmt.Println("================================")
	fmt.Println("CYLINDRICAL ROI STATISTICS")
	fmt.Println("================================")
	fmt.Printf("Volume: %s (%dx%dx%d voxels, spacing %.3f x %.3f x %.3f mm)\n",
		*volumePath, reference.Dims[0], reference.Dims[1], reference.Dims[2],
		reference.Spacing.X, reference.Spacing.Y, reference.Spacing.Z)
	fmt.Printf("Markers: %d\n", len(markerList))
	fmt.Printf("Cylinder: diameter %.3f mm, height %.3f mm\n", cfg.Cylinder.Diameter, cfg.Cylinder.Height)

	// The segmentation of a generate run is held here and handed to the
	// following export run.
	in := pipeline.Inputs{Reference: reference, Markers: markerList}
	var messages, files []string
	startTime := time.Now()
	for _, mode := range runModes {
		out, err := p.Run(mode, in)
		if out != nil {
			files = append(files, out.Files...)
			for _, name := range out.Skipped {
				fmt.Printf("Skipped marker %s: it must hold exactly one control point\n", name)
			}
		}
		if err != nil {
			reportFiles(files)
			log.Fatalf("%s failed: %v", mode, err)
		}
		in.Segmentation = out.Segmentation
		messages = append(messages, out.Message)
	}

	reportFiles(files)
	fmt.Printf("\nCompleted in %.2f seconds\n", time.Since(startTime).Seconds())
	for _, msg := range messages {
		fmt.Println(msg)
	}
}

// applyFlags overrides configuration values with the flags that were set.
func applyFlags(cfg *config.Config, modes, outputDir string, diameter, height float64, numCores int, verbose bool) {
	if modes != "" {
		cfg.Processing.Modes = splitList(modes)
	}
	if outputDir != "" {
		cfg.Output.Directory = outputDir
	}
	if diameter != 0 {
		cfg.Cylinder.Diameter = diameter
	}
	if height != 0 {
		cfg.Cylinder.Height = height
	}
	if numCores > 0 {
		cfg.Processing.NumCores = numCores
	}
	if verbose {
		cfg.Output.Verbose = true
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func reportFiles(files []string) {
	if len(files) == 0 {
		return
	}
	fmt.Println("\nStatistics written to:")
	for _, f := range files {
		fmt.Printf("- %s\n", f)
	}
}
