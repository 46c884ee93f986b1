package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/updraft-sh/updraft/internal/engine"
	"github.com/updraft-sh/updraft/internal/fingerprint"
	"github.com/updraft-sh/updraft/internal/transaction"
)

// runUpdate handles the `updraft update` subcommand.
func runUpdate(args []string) error {
	showHelp := false
	staged := false
	quiet := false
	var manifestPath, keyringPath, stagingDir string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--help", "-h":
			showHelp = true
		case "--staged", "-s":
			staged = true
		case "--quiet", "-q":
			quiet = true
		case "--manifest", "-m":
			value, err := nextArg(args, &i, args[i])
			if err != nil {
				return err
			}
			manifestPath = value
		case "--keyring", "-k":
			value, err := nextArg(args, &i, args[i])
			if err != nil {
				return err
			}
			keyringPath = value
		case "--staging-dir":
			value, err := nextArg(args, &i, args[i])
			if err != nil {
				return err
			}
			stagingDir = value
		default:
			return fmt.Errorf("unknown option: %s\nRun 'updraft update --help' for usage", args[i])
		}
	}

	if showHelp {
		printUpdateHelp()
		return nil
	}

	manifestPath = envDefault(manifestPath, "UPDRAFT_MANIFEST")
	if manifestPath == "" {
		return fmt.Errorf("no manifest specified; use --manifest or set UPDRAFT_MANIFEST")
	}
	keyringPath = envDefault(keyringPath, "UPDRAFT_KEYRING")
	stagingDir = envDefault(stagingDir, "UPDRAFT_STAGING_DIR")

	// Cancel the run cleanly on Ctrl-C; in-flight temp files are removed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	info, err := detectHost(ctx)
	if err != nil {
		return err
	}
	m, err := loadManifest(ctx, manifestPath, info)
	if err != nil {
		return err
	}

	cfg := engine.Config{
		Platform:   info,
		StagingDir: stagingDir,
	}
	if keyringPath != "" {
		keyring, err := fingerprint.ReadKeyringFile(keyringPath)
		if err != nil {
			return fmt.Errorf("load keyring: %w", err)
		}
		cfg.Keyring = keyring
	}
	if !quiet {
		cfg.Listener = newProgressPrinter()
	}

	e, err := engine.New(cfg)
	if err != nil {
		return err
	}

	// One update at a time per installation.
	lockDir := stagingDir
	if lockDir == "" {
		lockDir = filepath.Join(m.BasePath, ".updraft")
	}
	lock, err := transaction.AcquireLock(lockDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	var result *engine.Result
	if staged {
		result, err = e.Stage(ctx, m)
	} else {
		result, err = e.Update(ctx, m)
	}
	if err != nil {
		return err
	}

	switch {
	case result.Updated == 0:
		fmt.Printf("Up to date (%d files checked)\n", result.Fresh)
	case staged:
		fmt.Printf("Staged %d files (%d already fresh)\n", result.Updated, result.Fresh)
		fmt.Printf("Finalize with: updraft txn finalize %s\n", result.TxnPath)
	default:
		fmt.Printf("Updated %d files (%d already fresh)\n", result.Updated, result.Fresh)
	}
	return nil
}

// progressPrinter renders run events as terminal output.
type progressPrinter struct {
	lastPercent int
}

func newProgressPrinter() *progressPrinter {
	return &progressPrinter{lastPercent: -1}
}

func (p *progressPrinter) OnEvent(ev engine.Event) error {
	switch ev := ev.(type) {
	case engine.CheckStarted:
		fmt.Printf("Checking %d files...\n", ev.Total)
	case engine.FileChecked:
		if ev.Stale {
			fmt.Printf("  stale: %s (%s)\n", ev.Record.Path, ev.Reason)
		}
	case engine.DownloadStarted:
		fmt.Printf("Downloading %d files (%s)...\n", ev.Files, formatBytes(ev.TotalBytes))
	case engine.FileProgress:
		percent := int(ev.Fraction * 100)
		if percent != p.lastPercent {
			fmt.Printf("\r  %3d%%", percent)
			p.lastPercent = percent
		}
	case engine.FileVerified:
		fmt.Printf("\r  verified: %s\n", ev.Record.Path)
		p.lastPercent = -1
	case engine.Failed:
		fmt.Println()
	case engine.Stopped:
		fmt.Println("\nStopped.")
	}
	return nil
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func printUpdateHelp() {
	fmt.Println("Usage: updraft update [options]")
	fmt.Println()
	fmt.Println("Download, verify, and install every stale file named by a manifest.")
	fmt.Println("Each file is promoted as soon as it verifies; a failed run keeps the")
	fmt.Println("files already promoted and discards the rest.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -h, --help            Show this help message")
	fmt.Println("  -m, --manifest <path> Manifest file (default: $UPDRAFT_MANIFEST)")
	fmt.Println("  -k, --keyring <path>  Trusted signing keys; when set, every file")
	fmt.Println("                        must carry a verifying signature")
	fmt.Println("                        (default: $UPDRAFT_KEYRING)")
	fmt.Println("  -s, --staged          Verify and stage only; finalize later with")
	fmt.Println("                        'updraft txn finalize'")
	fmt.Println("  --staging-dir <path>  Where staged transactions are recorded")
	fmt.Println("                        (default: $UPDRAFT_STAGING_DIR, then")
	fmt.Println("                        <base path>/.updraft)")
	fmt.Println("  -q, --quiet           Suppress progress output")
}
