/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"math/rand"
	"testing"
)

func TestBuildFragmentsCountsOncePerWord(t *testing.T) {
	// "aaaa" contains "aa" three times but must count once.
	dict := newDictionary([]string{"aaaa", "aabb", "bbaa"})
	g := buildFragments(dict)

	// dict has 3 words, so minFreq is 2; "aa" appears in all three words.
	found := false
	for _, frag := range g.buckets[2] {
		if frag == "aa" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %q in length-2 bucket %v", "aa", g.buckets[2])
	}
}

func TestBuildFragmentsFiltersRare(t *testing.T) {
	words := []string{"parar", "parte", "pardo", "parque", "mirlo"}
	g := buildFragments(newDictionary(words))

	// "rl" occurs in a single word, under minFreq 2, so only the
	// fallback set could reintroduce it; it is not in that set.
	for _, frag := range g.buckets[2] {
		if frag == "rl" {
			t.Fatalf("rare fragment %q should be filtered", frag)
		}
	}
}

func TestBuildFragmentsFallbackUnion(t *testing.T) {
	// Two words produce almost no qualifying fragments; every bucket must
	// still be playable.
	g := buildFragments(newDictionary([]string{"casa", "cosa"}))

	for length := 2; length <= 4; length++ {
		if len(g.buckets[length]) < 5 {
			t.Fatalf("length-%d bucket too small: %d", length, len(g.buckets[length]))
		}
	}
}

func TestFragmentRespectsLength(t *testing.T) {
	g := buildFragments(newDictionary(testWords))
	rng := rand.New(rand.NewSource(1))

	for length := 2; length <= 4; length++ {
		for i := 0; i < 50; i++ {
			frag := g.Fragment(length, nil, rng)
			if len([]rune(frag)) != length {
				t.Fatalf("Fragment(%d) returned %q", length, frag)
			}
		}
	}
}

func TestFragmentAvoidsRecent(t *testing.T) {
	g := &FragmentGenerator{buckets: map[int][]string{
		2: {"ar", "er", "ir", "or"},
	}}
	rng := rand.New(rand.NewSource(1))

	recent := []string{"ar", "er", "ir"}
	for i := 0; i < 20; i++ {
		if frag := g.Fragment(2, recent, rng); frag != "or" {
			t.Fatalf("expected the only non-recent fragment, got %q", frag)
		}
	}
}

func TestFragmentIgnoresRecencyWhenExhausted(t *testing.T) {
	g := &FragmentGenerator{buckets: map[int][]string{
		2: {"ar", "er"},
	}}
	rng := rand.New(rand.NewSource(1))

	frag := g.Fragment(2, []string{"ar", "er"}, rng)
	if frag != "ar" && frag != "er" {
		t.Fatalf("expected a pool fragment despite recency, got %q", frag)
	}
}

func TestFragmentFallsBackToLengthThree(t *testing.T) {
	g := &FragmentGenerator{buckets: map[int][]string{
		3: {"ado", "ero"},
	}}
	rng := rand.New(rand.NewSource(1))

	frag := g.Fragment(4, nil, rng)
	if frag != "ado" && frag != "ero" {
		t.Fatalf("expected a length-3 fallback, got %q", frag)
	}
}

func TestFragmentEmergencyPool(t *testing.T) {
	g := &FragmentGenerator{buckets: map[int][]string{}}
	rng := rand.New(rand.NewSource(1))

	frag := g.Fragment(2, nil, rng)
	if frag == "" {
		t.Fatal("emergency pool must always yield a fragment")
	}
}
