// Package table renders an hourly WeatherSeries as quoted, comma separated
// rows:
//
//	"time","temperature"
//	"2024-01-01T00:00","5.2"
//
// Fields are never escaped; timestamps and numbers contain no double quotes.
package table

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"meteo/manager"
)

const header = `"time","temperature"` + "\n"

// Serialize returns the table for series. Mismatched parallel sequences are
// a ContractViolation and produce no output.
func Serialize(series manager.WeatherSeries) (string, error) {
	if len(series.Times) != len(series.Temperatures) {
		return "", &manager.ContractViolation{
			Reason: fmt.Sprintf("series has %d times but %d temperatures", len(series.Times), len(series.Temperatures)),
		}
	}

	var b strings.Builder
	b.Grow(len(header) + len(series.Times)*32)
	b.WriteString(header)
	for i, t := range series.Times {
		b.WriteString(`"`)
		b.WriteString(t)
		b.WriteString(`","`)
		b.WriteString(formatTemperature(series.Temperatures[i]))
		b.WriteString("\"\n")
	}

	return b.String(), nil
}

// Write serializes series to w. Nothing is written on a ContractViolation.
func Write(w io.Writer, series manager.WeatherSeries) error {
	content, err := Serialize(series)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, content)
	return err
}

// WriteFile replaces path with the table for series. The content goes to a
// temporary file in the same directory first and is renamed into place, so
// readers never see a partial table.
func WriteFile(path string, series manager.WeatherSeries) error {
	content, err := Serialize(series)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	return os.Rename(tmp.Name(), path)
}

// formatTemperature uses the shortest decimal form: 5.2 -> "5.2", 10 -> "10",
// -0 -> "0".
func formatTemperature(v float64) string {
	if math.IsNaN(v) {
		return "null"
	}
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
