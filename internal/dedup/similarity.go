package dedup

import (
	"strings"
	"unicode"
)

const (
	shingleSize = 3
	// minShingleWords is the shortest text compared by shingles or containment;
	// anything shorter only matches by equality.
	minShingleWords = shingleSize
	// containmentRatio is how long the contained text must be relative to the
	// containing one for a substring match to count.
	containmentRatio = 0.8
)

// Fingerprint caches the normalized forms of one text.
type Fingerprint struct {
	Text     string
	Words    int
	Shingles map[string]struct{}
}

// NewFingerprint normalizes text: case-folded, punctuation turned to spaces,
// whitespace collapsed.
func NewFingerprint(text string) Fingerprint {
	normalized := NormalizeText(text)
	words := strings.Fields(normalized)
	fp := Fingerprint{Text: normalized, Words: len(words)}
	if len(words) >= shingleSize {
		fp.Shingles = make(map[string]struct{}, len(words)-shingleSize+1)
		for i := 0; i+shingleSize <= len(words); i++ {
			fp.Shingles[strings.Join(words[i:i+shingleSize], " ")] = struct{}{}
		}
	}
	return fp
}

// NormalizeText folds case and keeps only letters and digits separated by single spaces.
func NormalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := true
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Jaccard is the shingle-set Jaccard similarity of two fingerprints.
func Jaccard(a, b Fingerprint) float64 {
	if len(a.Shingles) == 0 || len(b.Shingles) == 0 {
		return 0
	}
	small, large := a.Shingles, b.Shingles
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for s := range small {
		if _, ok := large[s]; ok {
			intersection++
		}
	}
	union := len(a.Shingles) + len(b.Shingles) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Similar reports whether two fingerprints describe the same post.
func Similar(a, b Fingerprint, threshold float64) bool {
	if a.Text == "" || b.Text == "" {
		return false
	}
	if a.Text == b.Text {
		return true
	}
	if a.Words < minShingleWords || b.Words < minShingleWords {
		return false
	}

	short, long := a.Text, b.Text
	if len(short) > len(long) {
		short, long = long, short
	}
	if float64(len(short)) >= containmentRatio*float64(len(long)) && strings.Contains(long, short) {
		return true
	}

	return Jaccard(a, b) >= threshold
}
