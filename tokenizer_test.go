package glove

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"empty", "", nil},
		{"plain words", "the cat sat", []string{"the", "cat", "sat"}},
		{"sentence punctuation", "Hello, world!", []string{"Hello", ",", "world", "!"}},
		{"contractions", "can't won't", []string{"can", "not", "will", "not"}},
		{"contraction am", "I'm here", []string{"I", "am", "here"}},
		{"possessive", "John's book", []string{"John", "'s", "book"}},
		{"hyphenated", "state-of-the-art", []string{"state", "-", "of", "-", "the", "-", "art"}},
		{"thousands separator", "1,000,000 dollars", []string{"1000000", "dollars"}},
		{"url kept whole", "see https://example.com/page now", []string{"see", "https://example.com/page", "now"}},
		{"email kept whole", "mail user@example.com today", []string{"mail", "user@example.com", "today"}},
		{"ellipsis", "wait... what", []string{"wait", "...", "what"}},
		{"unicode quotes", "“quoted”", []string{"\"", "quoted", "\""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenizeLine(tt.line))
		})
	}
}

func TestTokenizeLinePreservesOrder(t *testing.T) {
	got := TokenizeLine("alpha beta gamma delta")
	assert.Equal(t, []string{"alpha", "beta", "gamma", "delta"}, got)
}

func TestStanfordTokenize(t *testing.T) {
	corpus := "apple apple apple banana banana cherry"
	freqs := StanfordTokenize(strings.NewReader(corpus), 2)

	require.Len(t, freqs, 2)
	assert.Equal(t, WordFreq{Word: "apple", Freq: 3}, freqs[0])
	assert.Equal(t, WordFreq{Word: "banana", Freq: 2}, freqs[1])
}

func TestStanfordTokenizeOrdering(t *testing.T) {
	// Equal frequencies break ties alphabetically
	freqs := StanfordTokenize(strings.NewReader("b b a a c c"), 1)
	require.Len(t, freqs, 3)
	assert.Equal(t, "a", freqs[0].Word)
	assert.Equal(t, "b", freqs[1].Word)
	assert.Equal(t, "c", freqs[2].Word)
}

func TestStanfordTokenizeMinFreqDefault(t *testing.T) {
	// Non-positive minFreq falls back to the default cutoff
	freqs := StanfordTokenize(strings.NewReader("one two two"), 0)
	assert.Empty(t, freqs)
}

func TestScanLines(t *testing.T) {
	var lines []string
	err := ScanLines(strings.NewReader("first\n\nsecond\nthird"), func(line string) error {
		lines = append(lines, line)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, lines)
}
