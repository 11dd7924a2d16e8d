package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/scanfill/internal/classification"
	"github.com/Veraticus/scanfill/internal/ocr"
	"github.com/spf13/viper"
)

// DatabaseFile is the SQLite file name inside the data directory.
const DatabaseFile = "scanfill.db"

// SetDefaults registers the default value of every configuration key.
func SetDefaults(v *viper.Viper) {
	tb := classification.DefaultTieBreak()
	oc := ocr.DefaultConfig()

	v.SetDefault("data.dir", "~/.local/share/scanfill")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)

	v.SetDefault("extraction.min_text_length", 100)
	v.SetDefault("extraction.workers", 1)

	v.SetDefault("ocr.dpi", oc.DPI)
	v.SetDefault("ocr.languages", oc.Languages)
	v.SetDefault("ocr.timeout", oc.Timeout)
	v.SetDefault("ocr.pdftoppm", oc.PdftoppmPath)
	v.SetDefault("ocr.tesseract", oc.TesseractPath)
	v.SetDefault("ocr.breaker_min_requests", oc.BreakerMinRequests)
	v.SetDefault("ocr.breaker_failure_ratio", oc.BreakerFailureRatio)
	v.SetDefault("ocr.breaker_open_timeout", oc.BreakerOpenTimeout)

	v.SetDefault("tiebreak.ratio_min", tb.RatioMin)
	v.SetDefault("tiebreak.ratio_max", tb.RatioMax)
	v.SetDefault("tiebreak.sum_tolerance", tb.SumTolerance)
	v.SetDefault("tiebreak.small_value", tb.SmallValue)
	v.SetDefault("tiebreak.large_value", tb.LargeValue)
}

// DataDir resolves and creates the data directory.
func DataDir(v *viper.Viper) (string, error) {
	dir := ExpandPath(v.GetString("data.dir"))
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".local", "share", "scanfill")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// DatabasePath is the location of the cache database.
func DatabasePath(v *viper.Viper) (string, error) {
	dir, err := DataDir(v)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DatabaseFile), nil
}

// TieBreak reads the tie-break thresholds.
func TieBreak(v *viper.Viper) (classification.TieBreak, error) {
	tb := classification.DefaultTieBreak()
	if err := v.UnmarshalKey("tiebreak", &tb); err != nil {
		return tb, fmt.Errorf("failed to read tiebreak settings: %w", err)
	}
	return tb, nil
}

// OCR reads the OCR engine settings.
func OCR(v *viper.Viper) ocr.Config {
	cfg := ocr.DefaultConfig()
	if s := v.GetString("ocr.languages"); s != "" {
		cfg.Languages = s
	}
	if s := v.GetString("ocr.pdftoppm"); s != "" {
		cfg.PdftoppmPath = ExpandPath(s)
	}
	if s := v.GetString("ocr.tesseract"); s != "" {
		cfg.TesseractPath = ExpandPath(s)
	}
	if n := v.GetInt("ocr.dpi"); n > 0 {
		cfg.DPI = n
	}
	if d := v.GetDuration("ocr.timeout"); d > 0 {
		cfg.Timeout = d
	}
	if n := v.GetUint32("ocr.breaker_min_requests"); n > 0 {
		cfg.BreakerMinRequests = n
	}
	if r := v.GetFloat64("ocr.breaker_failure_ratio"); r > 0 {
		cfg.BreakerFailureRatio = r
	}
	if d := v.GetDuration("ocr.breaker_open_timeout"); d > 0 {
		cfg.BreakerOpenTimeout = d
	}
	return cfg
}

// Keywords loads the keyword tables, applying the optional override file.
func Keywords(v *viper.Viper) (classification.Tables, error) {
	return classification.LoadTables(ExpandPath(v.GetString("extraction.keywords_file")))
}

// Workers is the extraction worker count, at least one.
func Workers(v *viper.Viper) int {
	return max(v.GetInt("extraction.workers"), 1)
}

// MetricsTextfile is the optional prometheus textfile path.
func MetricsTextfile(v *viper.Viper) string {
	return ExpandPath(v.GetString("metrics.textfile"))
}
