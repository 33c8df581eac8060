// pfstool is a CLI utility for working with EverQuest PFS archives
// (.s3d/.eqg) and compiled map files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/azone/internal/zonemap"
	"github.com/Faultbox/azone/pkg/pfs"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "list", "ls":
		cmdList(args)
	case "extract", "x":
		cmdExtract(args)
	case "search", "find":
		cmdSearch(args)
	case "mapinfo":
		cmdMapInfo(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`pfstool - EverQuest PFS archive and map utility

Usage:
  pfstool <command> [options]

Commands:
  info <archive>                     Show archive information
  list <archive> [pattern]           List files (optional glob pattern)
  extract <archive> <path> [output]  Extract file(s) to directory
  search <archive> <pattern>         Search files by name pattern
  mapinfo <file.map>                 Show a compiled map's header and counts

Examples:
  pfstool info qeynos.s3d
  pfstool list qeynos_obj.s3d "*.wld"
  pfstool extract tox.eqg "*.mod" ./output
  pfstool search gfaydark.s3d "tree"
  pfstool mapinfo maps/qeynos.map`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func openArchive(path string) *pfs.Archive {
	archive, err := pfs.Open(path)
	if err != nil {
		fail("%v", err)
	}
	return archive
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pfstool info <archive>")
		os.Exit(1)
	}

	archive := openArchive(args[0])
	defer archive.Close()

	files := archive.List()

	extCount := make(map[string]int)
	var totalSize uint64
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f))
		if ext == "" {
			ext = "(no ext)"
		}
		extCount[ext]++
		if entry, ok := archive.Stat(f); ok {
			totalSize += uint64(entry.Size)
		}
	}

	fmt.Printf("Archive: %s\n", args[0])
	fmt.Printf("Files:   %d\n", len(files))
	fmt.Printf("Size:    %.2f MB (inflated)\n", float64(totalSize)/(1024*1024))
	fmt.Println()
	fmt.Println("Files by type:")

	type extStat struct {
		ext   string
		count int
	}
	var stats []extStat
	for ext, count := range extCount {
		stats = append(stats, extStat{ext, count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].count != stats[j].count {
			return stats[i].count > stats[j].count
		}
		return stats[i].ext < stats[j].ext
	})

	for _, s := range stats {
		fmt.Printf("  %-10s %d\n", s.ext, s.count)
	}
}

func cmdList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	long := fs.Bool("l", false, "Show sizes and CRCs")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pfstool list [-n N] [-l] <archive> [pattern]")
		os.Exit(1)
	}

	archive := openArchive(fs.Arg(0))
	defer archive.Close()

	pattern := ""
	if fs.NArg() > 1 {
		pattern = strings.ToLower(fs.Arg(1))
	}

	count := 0
	for _, f := range archive.List() {
		if pattern != "" {
			matched, _ := filepath.Match(pattern, f)
			if !matched && !strings.Contains(f, pattern) {
				continue
			}
		}
		if *long {
			entry, _ := archive.Stat(f)
			fmt.Printf("%10d  %08X  %s\n", entry.Size, entry.CRC, f)
		} else {
			fmt.Println(f)
		}
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}

	if pattern != "" {
		fmt.Fprintf(os.Stderr, "\n(%d files matched)\n", count)
	}
}

func cmdExtract(args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: pfstool extract <archive> <path> [output_dir]")
		os.Exit(1)
	}

	filePath := strings.ToLower(fs.Arg(1))
	outputDir := "."
	if fs.NArg() > 2 {
		outputDir = fs.Arg(2)
	}

	archive := openArchive(fs.Arg(0))
	defer archive.Close()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fail("creating directory: %v", err)
	}

	var names []string
	if strings.ContainsAny(filePath, "*?[") {
		for _, f := range archive.List() {
			if matched, _ := filepath.Match(filePath, f); matched {
				names = append(names, f)
			}
		}
	} else {
		if !archive.Contains(filePath) {
			fail("file not found: %s", filePath)
		}
		names = []string{filePath}
	}

	extracted := 0
	for _, f := range names {
		data, err := archive.Read(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", f, err)
			continue
		}

		outputPath := filepath.Join(outputDir, f)
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outputPath, err)
			continue
		}

		fmt.Printf("Extracted: %s (%d bytes)\n", outputPath, len(data))
		extracted++
	}

	if len(names) > 1 {
		fmt.Fprintf(os.Stderr, "\nExtracted %d files\n", extracted)
	}
}

func cmdSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	limit := fs.Int("n", 50, "Limit results (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: pfstool search <archive> <pattern>")
		os.Exit(1)
	}

	archive := openArchive(fs.Arg(0))
	defer archive.Close()

	pattern := strings.ToLower(fs.Arg(1))

	count := 0
	for _, f := range archive.List() {
		if strings.Contains(f, pattern) {
			fmt.Println(f)
			count++
			if *limit > 0 && count >= *limit {
				fmt.Fprintf(os.Stderr, "\n(showing first %d matches, use -n 0 for all)\n", *limit)
				break
			}
		}
	}

	if count == 0 {
		fmt.Fprintln(os.Stderr, "No files found")
	} else if *limit == 0 || count < *limit {
		fmt.Fprintf(os.Stderr, "\n(%d files found)\n", count)
	}
}

func cmdMapInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pfstool mapinfo <file.map>")
		os.Exit(1)
	}

	f, err := zonemap.ReadFile(args[0])
	if err != nil {
		fail("%v", err)
	}

	fmt.Printf("Map:          %s\n", args[0])
	fmt.Printf("Version:      0x%08X\n", f.Version)
	fmt.Printf("Compressed:   %d bytes\n", f.CompressedSize)
	fmt.Printf("Uncompressed: %d bytes\n", f.UncompressedSize)
	fmt.Println()
	fmt.Printf("Collide:      %d vertices, %d triangles\n", len(f.Collide.Vertices), len(f.Collide.Indices)/3)
	fmt.Printf("Non-collide:  %d vertices, %d triangles\n", len(f.NonCollide.Vertices), len(f.NonCollide.Indices)/3)

	if f.Terrain == nil {
		fmt.Println("Terrain:      none")
		return
	}
	flat := 0
	for _, t := range f.Terrain.Tiles {
		if t.Flat {
			flat++
		}
	}
	fmt.Printf("Terrain:      %d tiles (%d flat), %d quads per tile, %.2f units per vertex\n",
		len(f.Terrain.Tiles), flat, f.Terrain.QuadsPerTile, f.Terrain.UnitsPerVertex)
}
