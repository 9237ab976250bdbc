package datasets

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func parseFloat64(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty string")
	}
	return strconv.ParseFloat(s, 64)
}

func isFinite32(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// AllFinite reports whether every value in every row is neither NaN nor Inf.
func AllFinite(rows [][]float32) bool {
	for _, row := range rows {
		for _, v := range row {
			if !isFinite32(v) {
				return false
			}
		}
	}
	return true
}

// FindCSVInAssets finds CSV files in a specified directory
func FindCSVInAssets(dir string) (string, error) {
	pattern := filepath.Join(dir, "*.csv")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no CSV files found in %s", dir)
	}
	return matches[0], nil
}

// ResolveCSV returns path itself when it is a file, or the first CSV inside
// it when it is a directory.
func ResolveCSV(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return FindCSVInAssets(path)
	}
	return path, nil
}
