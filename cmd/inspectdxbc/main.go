package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"gpa-frame-export/internal/dxbc"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: inspectdxbc <blob.dxbc>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	blob, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	table, err := dxbc.Parse(0, blob)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s: %d texture slots, %d cbuffer slots\n",
		path, len(table.Textures), len(table.CBuffers))

	printSlots("Textures", "t", table.Textures)
	printSlots("Constant buffers", "cb", table.CBuffers)

	for _, name := range sortedKeys(table.CBufferFields) {
		fmt.Printf("\n%s fields:\n", name)
		for _, f := range table.CBufferFields[name] {
			fmt.Printf("  %-32s offset %4d size %4d\n", f.Name, f.Offset, f.Size)
		}
	}
}

func printSlots(title, prefix string, slots map[uint32]string) {
	if len(slots) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", title)
	keys := make([]uint32, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		fmt.Printf("  %s%-3d %s\n", prefix, k, slots[k])
	}
}

func sortedKeys(m map[string][]dxbc.Field) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
