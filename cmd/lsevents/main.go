package main

import (
	"flag"
	"fmt"
	"os"

	"gpa-frame-export/internal/calllog"
	"gpa-frame-export/internal/capture"
)

func main() {
	captureDir := flag.String("capture", ".", "Capture dump directory")
	minCall := flag.Int("min-call", 1, "First call index, inclusive")
	maxCall := flag.Int("max-call", -1, "Last call index, inclusive (-1 = unbounded)")
	flag.Parse()

	src, err := capture.OpenDir(*captureDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	calls, err := src.Calls()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	index := calllog.New(calls)
	events := index.Events(*minCall, *maxCall)
	fmt.Printf("Frame %q: %d calls, %d draw events in range\n",
		src.FrameName, len(calls), len(events))

	for _, e := range events {
		fmt.Printf("  %6d  %-24s vs=%X ps=%X  inputs=%d  IndexCount=%d\n",
			e.Index, e.Name, e.Programs.Vertex, e.Programs.Pixel,
			len(e.Inputs), e.ArgValue("IndexCount"))
	}
}
