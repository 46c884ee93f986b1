package main

import (
	"context"
	"fmt"
	"time"

	"github.com/updraft-sh/updraft/internal/engine"
)

// runCheck handles the `updraft check` subcommand.
// Returns an exit code (0 = up to date, 1 = stale files found) and an error.
func runCheck(args []string) (int, error) {
	showHelp := false
	var manifestPath string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--help", "-h":
			showHelp = true
		case "--manifest", "-m":
			value, err := nextArg(args, &i, args[i])
			if err != nil {
				return 1, err
			}
			manifestPath = value
		default:
			return 1, fmt.Errorf("unknown option: %s\nRun 'updraft check --help' for usage", args[i])
		}
	}

	if showHelp {
		printCheckHelp()
		return 0, nil
	}

	manifestPath = envDefault(manifestPath, "UPDRAFT_MANIFEST")
	if manifestPath == "" {
		return 1, fmt.Errorf("no manifest specified; use --manifest or set UPDRAFT_MANIFEST")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	info, err := detectHost(ctx)
	if err != nil {
		return 1, err
	}
	m, err := loadManifest(ctx, manifestPath, info)
	if err != nil {
		return 1, err
	}

	e, err := engine.New(engine.Config{Platform: info})
	if err != nil {
		return 1, err
	}

	stale, err := e.Check(ctx, m)
	if err != nil {
		return 1, fmt.Errorf("check files: %w", err)
	}

	total := len(m.FilesFor(info))
	if len(stale) == 0 {
		fmt.Printf("Up to date (%d files checked)\n", total)
		return 0, nil
	}

	fmt.Printf("%d of %d files need updating:\n", len(stale), total)
	for _, s := range stale {
		fmt.Printf("  %-40s %s\n", s.Record.Path, s.Reason)
	}
	return 1, nil
}

func printCheckHelp() {
	fmt.Println("Usage: updraft check [options]")
	fmt.Println()
	fmt.Println("Compare installed files against a manifest without downloading anything.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -h, --help            Show this help message")
	fmt.Println("  -m, --manifest <path> Manifest file (default: $UPDRAFT_MANIFEST)")
	fmt.Println()
	fmt.Println("Exit codes:")
	fmt.Println("  0  All files up to date")
	fmt.Println("  1  One or more files stale, or the check failed")
}
