// Command sharide runs the SHARide rating ledger and directory API, and
// offers a few one-shot commands against the configured store.
package main

import (
	"os"

	// ledger dates use Asia/Kuala_Lumpur even on hosts without tzdata
	_ "time/tzdata"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
