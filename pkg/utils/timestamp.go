package utils

import (
	"fmt"
	"time"
)

// LedgerLayout is the durable wire format of rating transaction dates
// (dd/MM/yyyy HH:mm:ss). History ordering parses it back, so changing it
// breaks ordering of already-stored transactions.
const LedgerLayout = "02/01/2006 15:04:05"

// DefaultLedgerZone is the zone ledger dates are written in (UTC+8).
const DefaultLedgerZone = "Asia/Kuala_Lumpur"

// LoadLedgerLocation resolves a zone name, falling back to a fixed UTC+8
// offset when the host has no tzdata for it.
func LoadLedgerLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultLedgerZone
	}
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	if name == DefaultLedgerZone {
		return time.FixedZone("UTC+8", 8*60*60), nil
	}
	return nil, fmt.Errorf("load ledger zone %q: %w", name, err)
}

// FormatLedgerTime renders t in loc using LedgerLayout.
func FormatLedgerTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(LedgerLayout)
}

// ParseLedgerTime parses a LedgerLayout string interpreted in loc.
func ParseLedgerTime(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(LedgerLayout, s, loc)
}
