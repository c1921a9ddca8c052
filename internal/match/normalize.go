package match

import "strings"

// Punctuation is the ASCII punctuation set.
const Punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// DefaultNoiseWords lists the words stripped from titles and artists before
// comparison. Order matters: "tracks" must be removed before "track".
var DefaultNoiseWords = []string{
	"the",
	"deluxe",
	"expanded",
	"edition",
	"remastered",
	"reissue",
	"version",
	"bonus",
	"tracks",
	"track",
}

// NormalizerConfig controls what a Normalizer strips.
type NormalizerConfig struct {
	// NoiseWords are removed as plain substrings, in order, so a noise word
	// inside a longer word is removed too ("Heather" becomes "hear").
	NoiseWords []string
	// Punctuation holds every character dropped from the output.
	Punctuation string
}

// DefaultNormalizerConfig returns the stock noise list and ASCII punctuation.
func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{
		NoiseWords:  append([]string(nil), DefaultNoiseWords...),
		Punctuation: Punctuation,
	}
}

// Normalizer turns a title or artist into a dense lowercase string with no
// noise words, whitespace or punctuation.
type Normalizer struct {
	noise []string
	punct map[rune]struct{}
}

// NewNormalizer builds a Normalizer from cfg. Noise words are lowercased and
// empty entries ignored.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	n := &Normalizer{punct: make(map[rune]struct{}, len(cfg.Punctuation))}
	for _, w := range cfg.NoiseWords {
		if w = strings.ToLower(w); w != "" {
			n.noise = append(n.noise, w)
		}
	}
	for _, r := range cfg.Punctuation {
		n.punct[r] = struct{}{}
	}
	return n
}

var defaultNormalizer = NewNormalizer(DefaultNormalizerConfig())

// Normalize applies the default configuration.
func Normalize(s string) string {
	return defaultNormalizer.Normalize(s)
}

// Normalize returns the comparison form of s.
//
// A single pass can leave a fresh noise word behind, e.g. "t-he" becomes
// "the" once the hyphen goes, so passes repeat until the output is stable.
// Every pass after the first only deletes characters.
func (n *Normalizer) Normalize(s string) string {
	out := n.pass(s)
	for {
		next := n.pass(out)
		if next == out {
			return out
		}
		out = next
	}
}

func (n *Normalizer) pass(s string) string {
	s = strings.ToLower(s)
	for _, w := range n.noise {
		s = strings.ReplaceAll(s, w, "")
	}
	s = strings.Join(strings.Fields(s), "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if _, ok := n.punct[r]; !ok {
			b.WriteRune(r)
		}
	}
	return b.String()
}
