// Package analysis derives writing-style signals from a caption corpus. It is
// deterministic, dependency-free and concurrency-safe: an Analyzer is
// immutable after construction and every method is a pure function of its
// input, so the profile synthesizer stays testable without any model calls.
//
// Outputs are stable: ties in frequency ordering are broken alphabetically so
// the same corpus always yields the same profile fields.
package analysis

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords  map[string]struct{}
	minSupport int
	maxTerms   int
}

func defaultConfig() config {
	return config{
		stopwords:  defaultStopwords(),
		minSupport: 2,
		maxTerms:   10,
	}
}

// WithStopwords replaces the default stop-word set.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		c.stopwords = m
	}
}

// WithMinSupport sets the minimum occurrence count for a word or phrase to be
// reported as recurring.
func WithMinSupport(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.minSupport = n
		}
	}
}

// WithMaxTerms caps how many favorite words and phrase templates are kept.
func WithMaxTerms(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxTerms = n
		}
	}
}

// ----------------------------------------------------------------------------
// Analyzer

// Analyzer extracts style signals from caption text. Safe for concurrent use.
type Analyzer struct {
	cfg config
}

// New builds an Analyzer with the given options applied over the defaults.
func New(opts ...Option) *Analyzer {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Analyzer{cfg: cfg}
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

// tokens returns lower-cased word tokens in document order, hashtags and
// mentions stripped beforehand so tags do not skew vocabulary signals.
func (a *Analyzer) tokens(caption string) []string {
	caption = tagRE.ReplaceAllString(caption, " ")
	return wordRE.FindAllString(strings.ToLower(caption), -1)
}

var tagRE = regexp.MustCompile(`[#@]\w+`)

// ----------------------------------------------------------------------------
// Tone

// Tone names, in the order they are scored.
const (
	ToneInspirational = "inspirational"
	ToneEducational   = "educational"
	ToneHumorous      = "humorous"
	ToneProfessional  = "professional"
	ToneCasual        = "casual"
)

// toneLexicon maps each tone to marker words. Deliberately small: it only has
// to separate tones, not classify arbitrary text.
var toneLexicon = map[string][]string{
	ToneInspirational: {"dream", "believe", "journey", "grow", "growth", "inspire", "passion", "goal", "goals", "mindset", "grateful", "hustle"},
	ToneEducational:   {"how", "why", "learn", "tip", "tips", "guide", "step", "steps", "lesson", "explain", "thread", "breakdown"},
	ToneHumorous:      {"lol", "haha", "funny", "joke", "literally", "can't", "omg", "honestly", "me", "mood"},
	ToneProfessional:  {"team", "product", "launch", "client", "clients", "industry", "results", "strategy", "announce", "proud", "excited", "share"},
	ToneCasual:        {"just", "today", "love", "new", "fun", "day", "weekend", "vibes", "little", "check"},
}

// ToneDistribution scores each tone by marker-word hits across the corpus and
// normalizes to a distribution summing to 1. An empty or markerless corpus
// yields nil.
func (a *Analyzer) ToneDistribution(captions []string) map[string]float64 {
	hits := map[string]int{}
	total := 0
	for _, c := range captions {
		toks := a.tokens(c)
		set := make(map[string]struct{}, len(toks))
		for _, t := range toks {
			set[t] = struct{}{}
		}
		for tone, markers := range toneLexicon {
			for _, m := range markers {
				if _, ok := set[m]; ok {
					hits[tone]++
					total++
				}
			}
		}
	}
	if total == 0 {
		return nil
	}
	dist := make(map[string]float64, len(hits))
	for tone, n := range hits {
		dist[tone] = float64(n) / float64(total)
	}
	return dist
}

// PrimaryTone returns the highest-weighted tone of dist, breaking ties
// alphabetically. Empty dist yields the neutral fallback.
func PrimaryTone(dist map[string]float64) string {
	if len(dist) == 0 {
		return "neutral"
	}
	tones := make([]string, 0, len(dist))
	for t := range dist {
		tones = append(tones, t)
	}
	sort.Slice(tones, func(i, j int) bool {
		if dist[tones[i]] != dist[tones[j]] {
			return dist[tones[i]] > dist[tones[j]]
		}
		return tones[i] < tones[j]
	})
	return tones[0]
}

// EmotionalRange lists the tones carrying at least 15% of the distribution,
// strongest first.
func (a *Analyzer) EmotionalRange(dist map[string]float64) []string {
	var out []string
	for t := range dist {
		if dist[t] >= 0.15 {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if dist[out[i]] != dist[out[j]] {
			return dist[out[i]] > dist[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// ----------------------------------------------------------------------------
// Rhythm, vocabulary, punctuation

var sentenceSplitRE = regexp.MustCompile(`[.!?\n]+`)

// SentenceRhythm classifies the corpus by mean words per sentence.
func (a *Analyzer) SentenceRhythm(captions []string) string {
	sentences := 0
	words := 0
	for _, c := range captions {
		for _, s := range sentenceSplitRE.Split(c, -1) {
			n := len(wordRE.FindAllString(strings.ToLower(s), -1))
			if n == 0 {
				continue
			}
			sentences++
			words += n
		}
	}
	if sentences == 0 {
		return "balanced"
	}
	switch avg := float64(words) / float64(sentences); {
	case avg < 8:
		return "short_and_punchy"
	case avg > 18:
		return "long_form"
	default:
		return "balanced"
	}
}

// VocabularyLevel classifies word sophistication by mean rune length of
// non-stop-word tokens.
func (a *Analyzer) VocabularyLevel(captions []string) string {
	count := 0
	runes := 0
	for _, c := range captions {
		for _, t := range a.tokens(c) {
			if _, skip := a.cfg.stopwords[t]; skip {
				continue
			}
			count++
			runes += len([]rune(t))
		}
	}
	if count == 0 {
		return "conversational"
	}
	switch avg := float64(runes) / float64(count); {
	case avg < 4.5:
		return "simple"
	case avg > 6.5:
		return "sophisticated"
	default:
		return "conversational"
	}
}

// PunctuationStyle classifies the corpus by its dominant terminal punctuation.
func (a *Analyzer) PunctuationStyle(captions []string) string {
	var bangs, questions, ellipses, periods int
	for _, c := range captions {
		bangs += strings.Count(c, "!")
		questions += strings.Count(c, "?")
		ellipses += strings.Count(c, "...")
		periods += strings.Count(c, ".")
	}
	periods -= ellipses * 3
	total := bangs + questions + ellipses + periods
	if total == 0 {
		return "minimal"
	}
	switch {
	case bangs*2 >= total:
		return "exclamatory"
	case questions*2 >= total:
		return "question_driven"
	case ellipses*2 >= total:
		return "trailing"
	default:
		return "standard"
	}
}

// ----------------------------------------------------------------------------
// Recurring words and phrases

type termCount struct {
	term  string
	count int
}

func sortTerms(tc []termCount) {
	sort.Slice(tc, func(i, j int) bool {
		if tc[i].count != tc[j].count {
			return tc[i].count > tc[j].count
		}
		return tc[i].term < tc[j].term
	})
}

// FavoriteWords returns the non-stop-word tokens occurring at least minSupport
// times, most frequent first, capped at maxTerms.
func (a *Analyzer) FavoriteWords(captions []string) []string {
	freq := map[string]int{}
	for _, c := range captions {
		for _, t := range a.tokens(c) {
			if _, skip := a.cfg.stopwords[t]; skip {
				continue
			}
			freq[t]++
		}
	}
	return a.topTerms(freq)
}

// PhraseTemplates returns recurring bigrams above the support threshold,
// most frequent first. Bigrams containing only stop words are dropped.
func (a *Analyzer) PhraseTemplates(captions []string) []string {
	freq := map[string]int{}
	for _, c := range captions {
		toks := a.tokens(c)
		for i := 0; i+1 < len(toks); i++ {
			_, s1 := a.cfg.stopwords[toks[i]]
			_, s2 := a.cfg.stopwords[toks[i+1]]
			if s1 && s2 {
				continue
			}
			freq[toks[i]+" "+toks[i+1]]++
		}
	}
	return a.topTerms(freq)
}

func (a *Analyzer) topTerms(freq map[string]int) []string {
	tc := make([]termCount, 0, len(freq))
	for term, n := range freq {
		if n >= a.cfg.minSupport {
			tc = append(tc, termCount{term, n})
		}
	}
	if len(tc) == 0 {
		return nil
	}
	sortTerms(tc)
	if len(tc) > a.cfg.maxTerms {
		tc = tc[:a.cfg.maxTerms]
	}
	out := make([]string, len(tc))
	for i, t := range tc {
		out[i] = t.term
	}
	return out
}

// Catchphrases returns short sentences (at most five words) repeated across
// at least minSupport captions, verbatim after whitespace normalization.
func (a *Analyzer) Catchphrases(captions []string) []string {
	freq := map[string]int{}
	for _, c := range captions {
		for _, s := range sentenceSplitRE.Split(c, -1) {
			s = normalizeWhitespace(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			if n := len(wordRE.FindAllString(strings.ToLower(s), -1)); n == 0 || n > 5 {
				continue
			}
			freq[s]++
		}
	}
	return a.topTerms(freq)
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "from",
		"has", "have", "i", "if", "in", "is", "it", "its", "my", "of", "on",
		"or", "our", "so", "that", "the", "their", "this", "to", "was", "we",
		"were", "will", "with", "you", "your",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
