package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys are the valid top-level keys in the config file.
var knownKeys = map[string]bool{
	// Server
	"api_url": true, "username": true, "password": true,
	"browse_root": true, "download_dir": true, "resolver_url": true,
	// Session
	"refresh_interval": true,
	// Browse
	"page_size": true,
	// Monitor
	"poll_interval": true, "task_category": true,
	"max_pending_scans": true, "max_scan_failures": true,
	// Network
	"connect_timeout": true, "data_timeout": true, "retry_max": true, "user_agent": true,
	// Logging
	"log_level": true,
}

// knownKeysList is the sorted slice form of knownKeys, for deterministic
// suggestions when two candidates have the same edit distance.
var knownKeysList = func() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns an
// error with "did you mean?" suggestions for each unknown key. Keys nested
// under a table are reported by their top-level name, once.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(undecoded))

	var errs []error

	for _, key := range undecoded {
		top := strings.SplitN(key.String(), ".", 2)[0]
		if seen[top] {
			continue
		}

		seen[top] = true

		if suggestion := closestMatch(top, knownKeysList); suggestion != "" {
			errs = append(errs, fmt.Errorf("unknown config key %q, did you mean %q?", top, suggestion))
		} else {
			errs = append(errs, fmt.Errorf("unknown config key %q", top))
		}
	}

	return errors.Join(errs...)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		if d := levenshtein(unknown, k); d < bestDist {
			bestDist = d
			best = k
		}
	}

	return best
}

// levenshtein computes the edit distance between two strings using two
// rolling rows.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
