// Package lexicon holds the fixed keyword sets the detectors match utterances against.
package lexicon

import (
	"sort"
	"strings"
	"unicode"
)

// Mode selects how a lexicon is matched against text
type Mode int

const (
	// WordSet matches whole lowercase word tokens only ("class" never matches "ass")
	WordSet Mode = iota
	// Substring matches a lowercase phrase anywhere in the lowercased text
	Substring
)

func (m Mode) String() string {
	switch m {
	case WordSet:
		return "word_set"
	case Substring:
		return "substring"
	default:
		return "unknown"
	}
}

// Lexicon is an immutable set of lowercase terms
type Lexicon struct {
	name  string
	mode  Mode
	terms []string
	set   map[string]struct{}
}

// New builds a lexicon. Terms are lowercased, trimmed, deduplicated and kept sorted.
func New(name string, mode Mode, terms ...string) *Lexicon {
	l := &Lexicon{
		name: name,
		mode: mode,
		set:  make(map[string]struct{}, len(terms)),
	}
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if _, ok := l.set[term]; ok {
			continue
		}
		l.set[term] = struct{}{}
		l.terms = append(l.terms, term)
	}
	sort.Strings(l.terms)
	return l
}

// Name returns the lexicon name
func (l *Lexicon) Name() string {
	return l.name
}

// Mode returns the matching mode
func (l *Lexicon) Mode() Mode {
	return l.mode
}

// Terms returns a copy of the terms in sorted order
func (l *Lexicon) Terms() []string {
	out := make([]string, len(l.terms))
	copy(out, l.terms)
	return out
}

// Contains reports whether term is in the lexicon, ignoring case
func (l *Lexicon) Contains(term string) bool {
	_, ok := l.set[strings.ToLower(term)]
	return ok
}

// Match returns the terms found in text, or nil. Word-set matches come back
// in the order they appear in the text, each term once; substring matches
// come back in lexicon order.
func (l *Lexicon) Match(text string) []string {
	if l == nil || text == "" {
		return nil
	}
	if l.mode == WordSet {
		return l.matchWords(text)
	}
	return l.matchSubstrings(text)
}

// Matches reports whether any term is found in text
func (l *Lexicon) Matches(text string) bool {
	return len(l.Match(text)) > 0
}

func (l *Lexicon) matchWords(text string) []string {
	var matched []string
	seen := make(map[string]bool)
	for _, token := range Tokenize(text) {
		if seen[token] {
			continue
		}
		seen[token] = true
		if _, ok := l.set[token]; ok {
			matched = append(matched, token)
		}
	}
	return matched
}

func (l *Lexicon) matchSubstrings(text string) []string {
	lower := strings.ToLower(text)
	var matched []string
	for _, term := range l.terms {
		if strings.Contains(lower, term) {
			matched = append(matched, term)
		}
	}
	return matched
}

// Tokenize splits text into lowercase runs of letters, digits and underscores
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
}
