package search

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// LetterGroup holds the drugs sharing the same initial letter, sorted
// ascending. The letter is only used for site navigation batching.
type LetterGroup struct {
	Letter string
	Drugs  []string
}

// GroupedTargets is an ordered list of letter groups, ascending by letter.
type GroupedTargets []LetterGroup

// Total returns the number of drugs across all groups.
func (g GroupedTargets) Total() int {
	n := 0
	for _, group := range g {
		n += len(group.Drugs)
	}
	return n
}

// GroupByLetter normalizes the raw drug names (trim, lower-case, drop
// empties), deduplicates them and partitions the sorted survivors by
// initial letter.
func GroupByLetter(raw []string) GroupedTargets {
	seen := make(map[string]struct{})
	for _, name := range raw {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		seen[name] = struct{}{}
	}

	unique := make([]string, 0, len(seen))
	for name := range seen {
		unique = append(unique, name)
	}
	sort.Strings(unique)

	var grouped GroupedTargets
	for _, name := range unique {
		letter := name[:1]
		if n := len(grouped); n > 0 && grouped[n-1].Letter == letter {
			grouped[n-1].Drugs = append(grouped[n-1].Drugs, name)
			continue
		}
		grouped = append(grouped, LetterGroup{Letter: letter, Drugs: []string{name}})
	}
	return grouped
}

// ParseDrugList splits a free-form query into drug names. Newlines are
// treated as commas, so both comma-separated and one-per-line input work.
func ParseDrugList(raw string) []string {
	tokens := strings.Split(strings.ReplaceAll(raw, "\n", ","), ",")
	var names []string
	for _, token := range tokens {
		token = strings.ToLower(strings.TrimSpace(token))
		if token != "" {
			names = append(names, token)
		}
	}
	return names
}

// ReadDrugsFile reads one drug name per line from the given file.
func ReadDrugsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read drugs file: %w", err)
	}
	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.ToLower(strings.TrimSpace(line))
		if line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}
