/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"math/rand"
	"os"
	"sort"
)

// Fragments that are guaranteed playable, unioned in when a bucket comes out
// nearly empty after frequency filtering.
var fallbackFragments = map[int][]string{
	2: {"ar", "er", "ir", "or", "al", "an", "en", "on", "os", "as", "es", "do", "ro", "la", "ta", "ma", "ca", "pa", "sa", "na", "ra"},
	3: {"ado", "ero", "nte", "ion", "mos", "lar", "tar", "nar", "car", "gar", "rar", "ber", "der", "ler", "mer", "ner", "per", "ser", "ter", "ver"},
	4: {"cion", "ente", "ment", "ando", "endo", "iera", "idad", "aron"},
}

// Last resort when every bucket is empty.
var emergencyFragments = []string{"ar", "er", "al", "on", "an", "os", "as"}

// FragmentGenerator serves randomized letter fragments of length 2-4, built
// from dictionary substring frequencies so that every fragment is neither
// unplayably rare nor trivially common.
type FragmentGenerator struct {
	buckets map[int][]string
}

// LoadFragments reads a precomputed table from --fragments when set and
// parseable, and otherwise builds the buckets from the dictionary.
func LoadFragments(cfg *Config, dict *Dictionary) *FragmentGenerator {
	if cfg.fragments != "" {
		data, err := os.ReadFile(cfg.fragments)
		if err == nil {
			var table map[string][]string
			if err := json.Unmarshal(data, &table); err == nil {
				g := &FragmentGenerator{buckets: map[int][]string{
					2: table["2"],
					3: table["3"],
					4: table["4"],
				}}
				logf(cfg, "WORDS: Loaded fragment table from %s: len2=%d, len3=%d, len4=%d",
					cfg.fragments, len(g.buckets[2]), len(g.buckets[3]), len(g.buckets[4]))
				return g
			}
		}
		logf(cfg, "WORDS: Unusable fragment table at %s, rebuilding", cfg.fragments)
	}

	g := buildFragments(dict)
	logf(cfg, "WORDS: Built fragments: len2=%d, len3=%d, len4=%d",
		len(g.buckets[2]), len(g.buckets[3]), len(g.buckets[4]))

	return g
}

// buildFragments counts each distinct substring once per word, so that
// intra-word repeats do not skew the frequency distribution.
func buildFragments(dict *Dictionary) *FragmentGenerator {
	counts := map[int]map[string]int{
		2: make(map[string]int),
		3: make(map[string]int),
		4: make(map[string]int),
	}

	for word := range dict.All() {
		runes := []rune(word)
		for length := 2; length <= 4; length++ {
			if len(runes) < length {
				continue
			}
			seen := make(map[string]struct{})
			for i := 0; i+length <= len(runes); i++ {
				frag := string(runes[i : i+length])
				if _, ok := seen[frag]; ok {
					continue
				}
				seen[frag] = struct{}{}
				counts[length][frag]++
			}
		}
	}

	dictSize := dict.Len()

	var minFreq int
	switch {
	case dictSize < 200:
		minFreq = 2
	case dictSize < 1000:
		minFreq = 3
	case dictSize < 5000:
		minFreq = 5
	default:
		minFreq = 20
	}

	g := &FragmentGenerator{buckets: make(map[int][]string, 3)}

	for length := 2; length <= 4; length++ {
		type entry struct {
			frag  string
			count int
		}

		entries := make([]entry, 0, len(counts[length]))
		for frag, count := range counts[length] {
			if count >= minFreq {
				entries = append(entries, entry{frag, count})
			}
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].count != entries[j].count {
				return entries[i].count < entries[j].count
			}
			return entries[i].frag < entries[j].frag
		})

		// Large dictionaries also drop the most common 5%, which are
		// trivial to play around.
		maxFreq := -1
		if dictSize > 5000 && len(entries) > 20 {
			maxFreq = entries[len(entries)*95/100].count
		}

		bucket := make([]string, 0, len(entries))
		for _, e := range entries {
			if maxFreq >= 0 && e.count > maxFreq {
				continue
			}
			bucket = append(bucket, e.frag)
		}

		if len(bucket) < 5 {
			present := make(map[string]struct{}, len(bucket))
			for _, frag := range bucket {
				present[frag] = struct{}{}
			}
			for _, frag := range fallbackFragments[length] {
				if _, ok := present[frag]; !ok {
					bucket = append(bucket, frag)
				}
			}
		}

		g.buckets[length] = bucket
	}

	return g
}

// Fragment draws a fragment of the requested length, preferring fragments
// absent from recent. When exclusion would empty the pool, recency is
// ignored for the draw.
func (g *FragmentGenerator) Fragment(length int, recent []string, rng *rand.Rand) string {
	pool := g.buckets[length]
	if len(pool) == 0 {
		pool = g.buckets[3]
	}
	if len(pool) == 0 {
		return emergencyFragments[rng.Intn(len(emergencyFragments))]
	}

	recentSet := make(map[string]struct{}, len(recent))
	for _, frag := range recent {
		recentSet[frag] = struct{}{}
	}

	candidates := make([]string, 0, len(pool))
	for _, frag := range pool {
		if _, ok := recentSet[frag]; !ok {
			candidates = append(candidates, frag)
		}
	}
	if len(candidates) == 0 {
		candidates = pool
	}

	return candidates[rng.Intn(len(candidates))]
}
