package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/updraft-sh/updraft/internal/fingerprint"
	"github.com/updraft-sh/updraft/internal/luadoc"
	"github.com/updraft-sh/updraft/internal/manifest"
	"github.com/updraft-sh/updraft/internal/platform"
	"github.com/updraft-sh/updraft/internal/props"
)

// runBuild handles the `updraft build` subcommand.
func runBuild(args []string) error {
	showHelp := false
	fold := props.FoldWords
	var (
		baseURL, basePath, outputPath string
		updateHandler, launchHandler  string
		signingKeyPath, passphraseEnv string
		properties                    []props.Property
		inputs                        []string
	)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--help", "-h":
			showHelp = true
		case "--base-url", "-u":
			value, err := nextArg(args, &i, arg)
			if err != nil {
				return err
			}
			baseURL = value
		case "--base-path", "-p":
			value, err := nextArg(args, &i, arg)
			if err != nil {
				return err
			}
			basePath = value
		case "--output", "-o":
			value, err := nextArg(args, &i, arg)
			if err != nil {
				return err
			}
			outputPath = value
		case "--update-handler":
			value, err := nextArg(args, &i, arg)
			if err != nil {
				return err
			}
			updateHandler = value
		case "--launch-handler":
			value, err := nextArg(args, &i, arg)
			if err != nil {
				return err
			}
			launchHandler = value
		case "--key":
			value, err := nextArg(args, &i, arg)
			if err != nil {
				return err
			}
			signingKeyPath = value
		case "--passphrase-env":
			value, err := nextArg(args, &i, arg)
			if err != nil {
				return err
			}
			passphraseEnv = value
		case "--prop":
			value, err := nextArg(args, &i, arg)
			if err != nil {
				return err
			}
			prop, err := parseProp(value)
			if err != nil {
				return err
			}
			properties = append(properties, prop)
		case "--no-fold":
			fold = props.FoldNone
		default:
			if len(arg) > 0 && arg[0] != '-' {
				inputs = append(inputs, arg)
			} else {
				return fmt.Errorf("unknown option: %s\nRun 'updraft build --help' for usage", arg)
			}
		}
	}

	if showHelp {
		printBuildHelp()
		return nil
	}

	basePath = envDefault(basePath, "UPDRAFT_BASE_PATH")
	if basePath == "" {
		return fmt.Errorf("no base path specified; use --base-path or set UPDRAFT_BASE_PATH")
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no files specified; run 'updraft build --help' for usage")
	}

	refs, err := collectRefs(inputs)
	if err != nil {
		return err
	}

	cfg := manifest.BuildConfig{
		BaseURL:       baseURL,
		BasePath:      basePath,
		UpdateHandler: updateHandler,
		LaunchHandler: launchHandler,
		Properties:    properties,
	}

	if signingKeyPath != "" {
		var passphrase []byte
		if passphraseEnv != "" {
			passphrase = []byte(os.Getenv(passphraseEnv))
		}
		signer, err := fingerprint.ReadSigningKey(signingKeyPath, passphrase)
		if err != nil {
			return err
		}
		cfg.Signer = signer
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	info, err := detectHost(ctx)
	if err != nil {
		return err
	}
	cfg.Platform = info
	cfg.Lookup = props.SystemLookup(info)

	m, err := manifest.Build(refs, cfg)
	if err != nil {
		return fmt.Errorf("build manifest: %w", err)
	}

	doc, err := manifest.Write(m, fold)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	codec := luadoc.NewCodec(platform.Static{Info: *info})
	data, err := codec.Encode(doc)
	if err != nil {
		return fmt.Errorf("generate manifest: %w", err)
	}

	if outputPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s (%d files)\n", outputPath, len(m.Files))
	return nil
}

// collectRefs expands the positional arguments into file refs, walking
// directories recursively.
func collectRefs(inputs []string) ([]manifest.FileRef, error) {
	var refs []manifest.FileRef
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", input, err)
		}
		if !info.IsDir() {
			refs = append(refs, manifest.FileRef{File: input})
			continue
		}
		err = filepath.Walk(input, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.Mode().IsRegular() {
				refs = append(refs, manifest.FileRef{File: path})
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", input, err)
		}
	}
	return refs, nil
}

// parseProp parses a key=value[@platform] property argument.
func parseProp(s string) (props.Property, error) {
	key, rest, found := strings.Cut(s, "=")
	if !found || key == "" {
		return props.Property{}, fmt.Errorf("malformed property %q, want key=value", s)
	}
	value, platformSpec, _ := strings.Cut(rest, "@")

	prop := props.Property{Key: key, Value: value}
	if platformSpec != "" {
		filter, err := platform.ParseFilter(platformSpec)
		if err != nil {
			return props.Property{}, fmt.Errorf("property %q: %w", s, err)
		}
		prop.Filter = filter
	}
	return prop, nil
}

func printBuildHelp() {
	fmt.Println("Usage: updraft build [options] <file-or-dir>...")
	fmt.Println()
	fmt.Println("Fingerprint local files and write a Lua manifest describing them.")
	fmt.Println("Directories are walked recursively. Platform filters are inferred")
	fmt.Println("from filename tokens like 'tool-linux-amd64.so'.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -h, --help              Show this help message")
	fmt.Println("  -u, --base-url <url>    Download base for relative sources")
	fmt.Println("  -p, --base-path <path>  Install base; file paths are recorded")
	fmt.Println("                          relative to it (default: $UPDRAFT_BASE_PATH)")
	fmt.Println("  -o, --output <path>     Output file (default: stdout)")
	fmt.Println("  --key <path>            OpenPGP signing key; signs every file")
	fmt.Println("  --passphrase-env <var>  Environment variable holding the key passphrase")
	fmt.Println("  --prop <key=value[@platform]>")
	fmt.Println("                          Add a property, optionally platform-scoped;")
	fmt.Println("                          repeatable")
	fmt.Println("  --update-handler <id>   Qualified update handler name")
	fmt.Println("  --launch-handler <id>   Qualified launch handler name")
	fmt.Println("  --no-fold               Emit literal values instead of folding them")
	fmt.Println("                          back into ${property} placeholders")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  updraft build -p /opt/app -u https://dist.example.com/app \\")
	fmt.Println("      --prop channel=stable --key release.asc /opt/app")
}
