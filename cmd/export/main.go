package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gpa-frame-export/internal/capture"
	"gpa-frame-export/internal/config"
	"gpa-frame-export/internal/orchestrate"
	"gpa-frame-export/internal/runlog"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	captureDir := flag.String("capture", "", "Capture dump directory (default: cwd)")
	outputDir := flag.String("output", "", "Output directory (default: <capture>/exports)")
	minCall := flag.Int("min-call", 0, "First call index to export, inclusive (default: 1)")
	maxCall := flag.Int("max-call", 0, "Last call index to export, inclusive (default: -1 = unbounded)")
	skinning := flag.Bool("skinning", false, "Apply skeletal skinning to reconstructed geometry")
	preview := flag.Bool("preview", false, "Write TGA/WebP previews for uncompressed textures")
	logFile := flag.String("log", "", "Run log file (default: <output>/export.log)")
	verbose := flag.Bool("v", false, "Verbose (debug) logging")

	flag.Parse()

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		CaptureDir:     *captureDir,
		OutputDir:      *outputDir,
		MinCall:        *minCall,
		MaxCall:        *maxCall,
		EnableSkinning: *skinning,
		Preview:        *preview,
		LogFile:        *logFile,
		Verbose:        *verbose,
	})

	src, err := capture.OpenDir(cfg.CaptureDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening capture: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}
	log, err := runlog.Open(cfg.LogFile, true, cfg.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	frameName := src.FrameName
	if frameName == "" {
		frameName = "frame"
	}

	fmt.Printf("GPA Frame Asset Exporter\n")
	fmt.Printf("Capture: %s (frame %q)\n", cfg.CaptureDir, frameName)
	fmt.Printf("Calls: [%d, %d], skinning: %v\n", cfg.MinCall, cfg.MaxCall, cfg.EnableSkinning)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	o := &orchestrate.Orchestrator{
		Source:    src,
		Resources: src,
		Shaders:   src,
		Log:       log,
		Options: orchestrate.Options{
			OutputDir:      cfg.OutputDir,
			FrameName:      frameName,
			MinCall:        cfg.MinCall,
			MaxCall:        cfg.MaxCall,
			EnableSkinning: cfg.EnableSkinning,
			Preview:        cfg.Preview,
		},
	}

	summary, runDir, err := o.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	failed := 0
	for _, e := range summary.Events {
		if e.Error != "" {
			failed++
		}
	}
	fmt.Printf("Events: %d (%d with errors)\n", summary.Summary.TotalEvents, failed)
	fmt.Printf("Textures: %d, Buffers: %d, Meshes: %d, Shaders: %d\n",
		summary.Summary.TotalTextures, summary.Summary.TotalBuffers,
		summary.Summary.TotalMeshes, summary.Summary.TotalShaders)
	fmt.Printf("Run dir: %s\n", runDir)

	if failed > 0 {
		limit := 20
		fmt.Printf("\nFailed events:\n")
		for _, e := range summary.Events {
			if e.Error == "" {
				continue
			}
			fmt.Printf("  g_%d (%s): %s\n", e.Index, e.Name, e.Error)
			if limit--; limit == 0 {
				break
			}
		}
		os.Exit(1)
	}
}
