/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	_ "embed"
	"io"
	"os"
	"strings"
)

// Minimal Spanish word list, used when no dictionary file is provided.
//
//go:embed data/spanish_words.txt
var embeddedWords string

// Dictionary holds the set of playable words, keyed by normalized form.
type Dictionary struct {
	words map[string]struct{}
}

// NormalizeWord lowercases, trims, maps accented vowels to their plain
// equivalents, and strips every rune outside a-z and ñ. Idempotent.
func NormalizeWord(word string) string {
	var b strings.Builder

	for _, r := range strings.ToLower(strings.TrimSpace(word)) {
		switch r {
		case 'á':
			b.WriteRune('a')
		case 'é':
			b.WriteRune('e')
		case 'í':
			b.WriteRune('i')
		case 'ó':
			b.WriteRune('o')
		case 'ú', 'ü':
			b.WriteRune('u')
		default:
			if (r >= 'a' && r <= 'z') || r == 'ñ' {
				b.WriteRune(r)
			}
		}
	}

	return b.String()
}

// LoadDictionary reads the word list named by --dictionary, falling back to
// the embedded list when the flag is unset.
func LoadDictionary(cfg *Config) (*Dictionary, error) {
	d := &Dictionary{words: make(map[string]struct{})}

	if cfg.dictionary != "" {
		f, err := os.Open(cfg.dictionary)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		count, err := d.readWords(f)
		if err != nil {
			return nil, err
		}

		logf(cfg, "WORDS: Loaded %d words from %s", count, cfg.dictionary)

		return d, nil
	}

	count, err := d.readWords(strings.NewReader(embeddedWords))
	if err != nil {
		return nil, err
	}

	logf(cfg, "WORDS: Loaded %d embedded words", count)

	return d, nil
}

func newDictionary(words []string) *Dictionary {
	d := &Dictionary{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if n := NormalizeWord(w); len(n) >= 2 {
			d.words[n] = struct{}{}
		}
	}
	return d
}

func (d *Dictionary) readWords(r io.Reader) (int, error) {
	count := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		w := NormalizeWord(scanner.Text())
		if len(w) < 2 {
			continue
		}
		if _, ok := d.words[w]; !ok {
			d.words[w] = struct{}{}
			count++
		}
	}
	return count, scanner.Err()
}

func (d *Dictionary) Has(word string) bool {
	_, ok := d.words[word]
	return ok
}

func (d *Dictionary) Len() int {
	return len(d.words)
}

func (d *Dictionary) All() map[string]struct{} {
	return d.words
}
