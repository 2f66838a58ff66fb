// Command scan-test scans a library directory once and prints what a device would see.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kobink/kobink-server/internal/logger"
	"github.com/kobink/kobink-server/internal/scanner"
)

func main() {
	mode := flag.String("fingerprint", string(scanner.FingerprintHash), "fingerprint mode (hash or stat)")
	workers := flag.Int("workers", 4, "concurrent fingerprint workers")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: scan-test [flags] <library-path>")
		os.Exit(1)
	}
	root := flag.Arg(0)

	fp, err := scanner.ParseFingerprintMode(*mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: logger.ParseLevel(level)})

	if err := scanner.CheckRoot(root); err != nil {
		log.Error("library root unusable", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s := scanner.NewScanner(root, scanner.Options{Fingerprint: fp, Workers: *workers}, log.Logger)
	snapshot, report, err := s.Scan(ctx)
	if err != nil {
		log.Error("scan failed", "error", err)
		os.Exit(1)
	}

	for _, e := range snapshot.Entries() {
		fmt.Printf("%s  %-5s  %s  [%s]\n", e.ID, e.Format, e.Title, strings.Join(e.Authors, ", "))
	}

	fmt.Printf("\n=== Scan Complete ===\n")
	fmt.Printf("Duration: %s\n", report.Duration())
	fmt.Printf("Files: %d\n", report.Files)
	fmt.Printf("Books: %d\n", report.Entries)
	fmt.Printf("Warnings: %d\n", len(report.Warnings))
	for _, w := range report.Warnings {
		fmt.Printf("  %s: %v\n", w.Path, w.Err)
	}
}
