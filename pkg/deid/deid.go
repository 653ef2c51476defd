// Package deid applies the Safe Harbor de-identification transform:
// keyed hashing of the patient identifier, date generalization, ZIP
// truncation, and unconditional removal of direct identifiers.
package deid

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
	"github.com/evergreen-health/vitals-ingress/pkg/schema"
	"github.com/evergreen-health/vitals-ingress/pkg/table"
)

// Direct identifier columns removed unconditionally, in addition to the
// configured hash column. Leaving any of them would break the
// de-identification guarantee, so the drop is not configurable.
const (
	colDOB     = "dob"
	colZip     = "zip"
	colEventTS = "event_ts"
)

// Derived column names.
const (
	ColPatientKey = "patient_key"
	ColDOBYear    = "dob_year"
	ColEventDate  = "event_date"
	ColZip3       = "zip3"
)

// HashID computes the salted HMAC-SHA256 of an identifier, hex encoded.
func HashID(value, salt string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// Apply performs the Safe Harbor transform in place. The salt is read
// from the configured environment variable; an unset variable yields an
// empty-string salt (weak but functional, by the documented contract).
// On return the table contains no direct identifier columns.
func Apply(t *table.Table, cfg config.SafeHarborConfig) error {
	idCol := t.Col(cfg.HashIDColumn)
	if idCol == nil {
		return fmt.Errorf("hash column %q not present in input", cfg.HashIDColumn)
	}
	salt := os.Getenv(cfg.HashSaltEnv)

	key := &table.Column{Name: ColPatientKey, Kind: table.String}
	for _, v := range idCol.Values {
		key.Values = append(key.Values, table.NewString(HashID(v.Text(), salt)))
	}
	if err := t.SetColumn(key); err != nil {
		return err
	}

	if cfg.Dates.DOB == "year_only" {
		if c := t.Col(colDOB); c != nil {
			year := &table.Column{Name: ColDOBYear, Kind: table.Int}
			for _, v := range c.Values {
				if ts, ok := timeValue(v); ok {
					year.Values = append(year.Values, table.NewInt(int64(ts.Year())))
				} else {
					year.Values = append(year.Values, table.Missing(table.Int))
				}
			}
			if err := t.SetColumn(year); err != nil {
				return err
			}
		}
	}

	if cfg.Dates.EventTS == "date_only" {
		if c := t.Col(colEventTS); c != nil {
			day := &table.Column{Name: ColEventDate, Kind: table.Date}
			for _, v := range c.Values {
				if ts, ok := timeValue(v); ok {
					day.Values = append(day.Values, table.NewDate(ts))
				} else {
					day.Values = append(day.Values, table.Missing(table.Date))
				}
			}
			if err := t.SetColumn(day); err != nil {
				return err
			}
		}
	}

	if cfg.TruncateZip() {
		if c := t.Col(colZip); c != nil {
			zip3 := &table.Column{Name: ColZip3, Kind: table.String}
			for _, v := range c.Values {
				if !v.Valid() {
					zip3.Values = append(zip3.Values, table.Missing(table.String))
					continue
				}
				zip3.Values = append(zip3.Values, table.NewString(truncateZip(v.Text())))
			}
			if err := t.SetColumn(zip3); err != nil {
				return err
			}
		}
	}

	remove := append([]string{}, cfg.Remove...)
	remove = append(remove, cfg.HashIDColumn, colDOB, colZip, colEventTS)
	t.Drop(remove...)
	return nil
}

// timeValue reads a value as a timestamp, parsing date text when the
// column was never coerced. Generalization must not depend on the
// schema having declared the identifier columns.
func timeValue(v table.Value) (time.Time, bool) {
	if ts, ok := v.Time(); ok {
		return ts, true
	}
	if !v.Valid() {
		return time.Time{}, false
	}
	return schema.ParseDatetime(strings.TrimSpace(v.Text()))
}

// truncateZip left-pads to five characters and keeps the first three
// (the Safe Harbor geographic rule).
func truncateZip(zip string) string {
	if len(zip) < 5 {
		zip = strings.Repeat("0", 5-len(zip)) + zip
	}
	return zip[:3]
}
