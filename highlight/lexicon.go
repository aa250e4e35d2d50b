package highlight

import (
	"regexp"
	"sort"
	"strings"
)

// viralKeywords are terms that historically correlate with clip engagement.
// Matching is substring-insensitive on lowercased text.
var viralKeywords = []string{
	"amazing", "incredible", "unbelievable", "shocking", "wow", "omg", "crazy",
	"insane", "mind-blowing", "epic", "legendary", "viral", "trending", "hot",
	"breaking", "exclusive", "secret", "hack", "trick", "tip", "mistake", "fail",
	"win", "success", "transformation", "before", "after", "reveal", "exposed",
	"truth", "reality", "facts", "study", "research", "proven", "science",
	"money", "rich", "poor", "millionaire", "billionaire", "expensive", "cheap",
	"free", "deal", "offer", "limited", "urgent", "now", "today", "never",
	"always", "everyone", "nobody", "first", "last", "best", "worst", "top",
	"bottom", "new", "old", "young", "genius", "stupid", "smart", "dumb",
}

var positiveWords = map[string]bool{
	"amazing": true, "awesome": true, "beautiful": true, "best": true,
	"brilliant": true, "excellent": true, "exciting": true, "fantastic": true,
	"good": true, "great": true, "happy": true, "incredible": true,
	"love": true, "perfect": true, "win": true, "wonderful": true,
	"success": true, "genius": true, "epic": true, "legendary": true,
}

var negativeWords = map[string]bool{
	"awful": true, "bad": true, "boring": true, "fail": true, "hate": true,
	"horrible": true, "sad": true, "stupid": true, "terrible": true,
	"worst": true, "wrong": true, "dumb": true, "ugly": true, "angry": true,
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true,
	"has": true, "his": true, "how": true, "its": true, "they": true,
	"this": true, "that": true, "with": true, "have": true, "from": true,
	"will": true, "what": true, "when": true, "your": true, "just": true,
	"about": true, "there": true, "them": true, "were": true, "been": true,
	"like": true, "really": true, "going": true, "know": true, "think": true,
}

var fillerPattern = regexp.MustCompile(`(?i)\b(um|uh|like|you know|so|well)\b`)
var spacePattern = regexp.MustCompile(`\s+`)
var tokenPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z'-]+`)

// keywordScore counts viral-keyword hits, normalized to [0,1] with five
// hits saturating the signal.
func keywordScore(text string) float64 {
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range viralKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	score := float64(hits) / 5
	if score > 1 {
		return 1
	}
	return score
}

// sentimentScore maps lexicon polarity to [0,1]; 0.5 is neutral, positive
// emotion scores higher.
func sentimentScore(text string) float64 {
	pos, neg := 0, 0
	for _, tok := range tokenize(text) {
		if positiveWords[tok] {
			pos++
		}
		if negativeWords[tok] {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0.5
	}
	return 0.5 + 0.5*float64(pos-neg)/float64(pos+neg)
}

// lengthScore prefers the word-count band that fits 15-60 second clips.
func lengthScore(text string) float64 {
	wc := len(strings.Fields(text))
	switch {
	case wc >= 10 && wc <= 30:
		return 1.0
	case (wc >= 5 && wc < 10) || (wc > 30 && wc <= 50):
		return 0.7
	default:
		return 0.3
	}
}

// hasLexicalSignal reports whether any window could score above the silence
// floor: at least one viral keyword or sentiment-bearing word in the text.
func hasLexicalSignal(text string) bool {
	if keywordScore(text) > 0 {
		return true
	}
	for _, tok := range tokenize(text) {
		if positiveWords[tok] || negativeWords[tok] {
			return true
		}
	}
	return false
}

// extractKeywords returns the top-k non-stopword tokens by frequency,
// first-occurrence order breaking frequency ties for determinism.
func extractKeywords(text string, k int) []string {
	type entry struct {
		word  string
		count int
		first int
	}
	counts := map[string]*entry{}
	order := []*entry{}
	for i, tok := range tokenize(text) {
		if len(tok) < 3 || stopWords[tok] {
			continue
		}
		if e, ok := counts[tok]; ok {
			e.count++
			continue
		}
		e := &entry{word: tok, count: 1, first: i}
		counts[tok] = e
		order = append(order, e)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})

	out := make([]string, 0, k)
	for _, e := range order {
		if len(out) == k {
			break
		}
		out = append(out, e.word)
	}
	return out
}

// generateTitle builds a short title from window text: filler words
// stripped, a viral phrase preferred, first words as fallback.
func generateTitle(text string) string {
	clean := fillerPattern.ReplaceAllString(text, "")
	clean = strings.TrimSpace(spacePattern.ReplaceAllString(clean, " "))

	words := strings.Fields(clean)
	if len(words) == 0 {
		return "Untitled clip"
	}
	if len(words) <= 8 {
		return truncateTitle(clean)
	}

	// Prefer an opening phrase that carries a strong keyword.
	for i := 3; i < 9 && i <= len(words); i++ {
		phrase := strings.Join(words[:i], " ")
		lower := strings.ToLower(phrase)
		for _, kw := range viralKeywords[:20] {
			if strings.Contains(lower, kw) {
				return truncateTitle(phrase)
			}
		}
	}

	return truncateTitle(strings.Join(words[:6], " ") + "...")
}

func truncateTitle(title string) string {
	title = strings.TrimRight(strings.TrimSpace(title), ".")
	if len(title) > 60 {
		title = title[:57] + "..."
	}
	return title
}

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	return raw
}
