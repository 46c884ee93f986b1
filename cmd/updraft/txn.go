package main

import (
	"fmt"

	"github.com/updraft-sh/updraft/internal/engine"
	"github.com/updraft-sh/updraft/internal/transaction"
)

// runTxn handles the `updraft txn` subcommand.
func runTxn(args []string) error {
	if len(args) == 0 {
		printTxnHelp()
		return fmt.Errorf("txn requires an action")
	}

	switch args[0] {
	case "--help", "-h":
		printTxnHelp()
		return nil
	case "list":
		return runTxnList(args[1:])
	case "finalize":
		return runTxnApply(args[1:], "finalize", engine.Finalize)
	case "abandon":
		return runTxnApply(args[1:], "abandon", engine.Abandon)
	default:
		return fmt.Errorf("unknown txn action: %s\nRun 'updraft txn --help' for usage", args[0])
	}
}

// runTxnList prints pending staged transactions.
func runTxnList(args []string) error {
	var stagingDir string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--staging-dir":
			value, err := nextArg(args, &i, args[i])
			if err != nil {
				return err
			}
			stagingDir = value
		default:
			return fmt.Errorf("unknown option: %s", args[i])
		}
	}

	stagingDir = envDefault(stagingDir, "UPDRAFT_STAGING_DIR")
	if stagingDir == "" {
		return fmt.Errorf("no staging directory; use --staging-dir or set UPDRAFT_STAGING_DIR")
	}

	records, err := transaction.Scan(stagingDir)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No pending transactions.")
		return nil
	}

	for _, path := range records {
		txn, err := transaction.Load(path)
		if err != nil {
			fmt.Printf("%s  (unreadable: %v)\n", path, err)
			continue
		}
		fmt.Printf("%s\n  staged %s, %d files, %d pending\n",
			path, txn.Timestamp.Format("2006-01-02 15:04:05 MST"),
			len(txn.Entries), len(txn.Pending()))
	}
	return nil
}

// runTxnApply runs finalize or abandon on a single record.
func runTxnApply(args []string, action string, apply func(string) error) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: updraft txn %s <record>", action)
	}
	if err := apply(args[0]); err != nil {
		return fmt.Errorf("%s transaction: %w", action, err)
	}
	fmt.Printf("Transaction %s complete.\n", action)
	return nil
}

func printTxnHelp() {
	fmt.Println("Usage: updraft txn <action>")
	fmt.Println()
	fmt.Println("Manage transactions left behind by 'updraft update --staged'.")
	fmt.Println()
	fmt.Println("Actions:")
	fmt.Println("  list [--staging-dir <path>]  Show pending transactions")
	fmt.Println("  finalize <record>            Move staged files into place")
	fmt.Println("  abandon <record>             Discard staged files")
	fmt.Println()
	fmt.Println("A finalize interrupted mid-way can be re-run on the same record;")
	fmt.Println("files already moved stay in place.")
}
