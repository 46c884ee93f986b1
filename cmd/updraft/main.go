package main

import (
	"context"
	"fmt"
	"os"

	"github.com/updraft-sh/updraft/internal/luadoc"
	"github.com/updraft-sh/updraft/internal/manifest"
	"github.com/updraft-sh/updraft/internal/platform"
	"github.com/updraft-sh/updraft/internal/props"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version":
			fmt.Printf("updraft %s\n", Version)
			return
		case "build":
			if err := runBuild(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "check":
			code, err := runCheck(os.Args[2:])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			os.Exit(code)
		case "update":
			if err := runUpdate(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "txn":
			if err := runTxn(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	// Default: show help
	fmt.Println("updraft - signed-manifest application updater")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  updraft --version            Show version information")
	fmt.Println("  updraft build [options]      Author a manifest from local files")
	fmt.Println("  updraft check [options]      Compare the install against a manifest")
	fmt.Println("  updraft update [options]     Download and install stale files")
	fmt.Println("  updraft txn <action>         Manage staged update transactions")
	fmt.Println()
	fmt.Println("Run any subcommand with --help for details.")
}

// detectHost inspects the running machine once per invocation.
func detectHost(ctx context.Context) (*platform.Info, error) {
	info, err := platform.NewDetector().Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}
	return info, nil
}

// loadManifest reads, parses, and resolves a Lua manifest for the host.
func loadManifest(ctx context.Context, path string, info *platform.Info) (*manifest.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	codec := luadoc.NewCodec(platform.Static{Info: *info})
	doc, err := codec.Decode(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %s", luadoc.FormatError(err, false))
	}

	m, err := manifest.Read(doc, info, props.SystemLookup(info))
	if err != nil {
		return nil, fmt.Errorf("resolve manifest: %w", err)
	}
	return m, nil
}

// nextArg consumes the value of a flag that takes one.
func nextArg(args []string, i *int, flag string) (string, error) {
	*i++
	if *i >= len(args) {
		return "", fmt.Errorf("%s requires a value", flag)
	}
	return args[*i], nil
}

// envDefault returns an environment fallback for an unset flag.
func envDefault(value, envKey string) string {
	if value != "" {
		return value
	}
	return os.Getenv(envKey)
}
