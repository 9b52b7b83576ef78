// Package names serves prefix autocomplete over all known system names
// from an in-memory sorted sequence, loaded once from the cache file the
// exporter writes.
package names

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// bytesPerName approximates the per-entry memory cost of the index.
const bytesPerName = 15

// Index is an immutable, lexicographically sorted sequence of system
// names. It is safe for concurrent readers after Load returns.
type Index struct {
	names    []string
	file     string
	loadTime time.Duration
}

// Load reads the newline-delimited cache file into memory. Blank lines
// and a trailing delimiter are tolerated. Sortedness is verified and
// defensively restored on violation.
func Load(path string) (*Index, error) {
	var started = time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening system names file: %w", err)
	}
	defer f.Close()

	var names []string
	var scanner = bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading system names file: %w", err)
	}

	if !sort.StringsAreSorted(names) {
		log.Warn("system names not sorted, sorting now")
		sort.Strings(names)
	}

	var ix = &Index{names: names, file: path, loadTime: time.Since(started)}
	log.WithFields(log.Fields{
		"systems":   len(names),
		"loadTime":  ix.loadTime,
		"memoryMB":  fmt.Sprintf("%.1f", ix.estimatedMemoryMB()),
		"namesFile": path,
	}).Info("loaded system names")
	return ix, nil
}

// Search returns up to |limit| names whose lower-cased prefix equals the
// lower-cased query, in index order. An empty query matches nothing.
func (ix *Index) Search(query string, limit int) []string {
	if query == "" || limit <= 0 {
		return nil
	}
	var prefix = strings.ToLower(query)

	// Lower bound: first name >= query under case-insensitive order.
	var start = sort.Search(len(ix.names), func(i int) bool {
		return strings.ToLower(ix.names[i]) >= prefix
	})

	var results []string
	for _, name := range ix.names[start:] {
		if !strings.HasPrefix(strings.ToLower(name), prefix) {
			break
		}
		results = append(results, name)
		if len(results) >= limit {
			break
		}
	}
	return results
}

// Len returns the number of indexed names.
func (ix *Index) Len() int { return len(ix.names) }

// Stats describes the loaded index for the stats and health endpoints.
type Stats struct {
	Loaded            bool    `json:"loaded"`
	TotalSystems      int     `json:"total_systems"`
	LoadTimeSeconds   float64 `json:"load_time_seconds"`
	EstimatedMemoryMB float64 `json:"estimated_memory_mb"`
	NamesFile         string  `json:"names_file"`
}

// Stats reports the index statistics.
func (ix *Index) Stats() Stats {
	return Stats{
		Loaded:            true,
		TotalSystems:      len(ix.names),
		LoadTimeSeconds:   ix.loadTime.Seconds(),
		EstimatedMemoryMB: ix.estimatedMemoryMB(),
		NamesFile:         ix.file,
	}
}

func (ix *Index) estimatedMemoryMB() float64 {
	return float64(len(ix.names)*bytesPerName) / 1024 / 1024
}
