package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/updraft-sh/updraft/internal/transaction"
)

// Finalize completes a staged update: every pending entry in the
// transaction record is moved into place, then the record is removed.
// The record is re-saved after each move, so a crash mid-finalize can be
// resumed by calling Finalize again on the same path.
func Finalize(txnPath string) error {
	txn, err := transaction.Load(txnPath)
	if err != nil {
		return err
	}

	dir := filepath.Dir(txnPath)
	for _, entry := range txn.Pending() {
		if err := installEntry(entry.TempPath, entry.DestPath, entry.Executable, entry.Unpack); err != nil {
			txn.Save(dir) //nolint:errcheck
			return fmt.Errorf("finalize %s: %w", entry.DestPath, err)
		}
		txn.MarkPromoted(entry.TempPath)
		if _, err := txn.Save(dir); err != nil {
			return err
		}
	}

	if err := os.Remove(txnPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove transaction record: %w", err)
	}
	return nil
}

// Abandon discards a staged update: pending temp files are deleted and
// the record is removed. Entries already promoted by a partial finalize
// stay in place.
func Abandon(txnPath string) error {
	txn, err := transaction.Load(txnPath)
	if err != nil {
		return err
	}

	for _, entry := range txn.Pending() {
		if err := os.Remove(entry.TempPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove staged file: %w", err)
		}
	}

	if err := os.Remove(txnPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove transaction record: %w", err)
	}
	return nil
}
