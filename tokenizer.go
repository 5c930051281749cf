package glove

import (
	"bufio"
	"io"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// WordFreq is a vocabulary entry: a word and its corpus frequency.
type WordFreq struct {
	Word string
	Freq int
}

// substitution is one rewrite step of the tokenization pipeline.
type substitution struct {
	pattern *regexp.Regexp
	replace string
}

// Compiled once; the pipeline runs on every token of every corpus line.
// Order matters: contractions must fire before quote separation strips
// their apostrophes, ellipses before the sentence-final dot is split off.
var (
	substitutions = []substitution{
		// Contractions
		{regexp.MustCompile(`(?i)\b(can)'t\b`), "$1 not"},
		{regexp.MustCompile(`(?i)\b(won)'t\b`), "will not"},
		{regexp.MustCompile(`(?i)\b(n)'t\b`), " not"},
		{regexp.MustCompile(`(?i)\b('m)\b`), " am"},
		{regexp.MustCompile(`(?i)\b('re)\b`), " are"},
		{regexp.MustCompile(`(?i)\b('ve)\b`), " have"},
		{regexp.MustCompile(`(?i)\b('ll)\b`), " will"},
		{regexp.MustCompile(`(?i)\b('d)\b`), " would"},
		{regexp.MustCompile(`(?i)\b('s)\b`), " 's"},
		// Ellipses and dashes
		{regexp.MustCompile(`\.{2,}`), " ... "},
		{regexp.MustCompile(`--+`), " -- "},
		// Sentence-final punctuation (a lone trailing . ! or ?)
		{regexp.MustCompile(`([^.!?\s])([.!?])$`), "$1 $2"},
		// Commas, semicolons, colons
		{regexp.MustCompile(`([,:;])`), " $1 "},
		// Opening and closing brackets and quotes
		{regexp.MustCompile(`([({\["'«])`), " $1 "},
		{regexp.MustCompile(`([)}\]"'»])`), " $1 "},
		// Hyphens between words
		{regexp.MustCompile(`(\w)-(\w)`), "$1 - $2"},
		// Percent signs, currency, math symbols, ampersand
		{regexp.MustCompile(`([%$€£¥₽])`), " $1 "},
		{regexp.MustCompile(`([+*/=<>&])`), " $1 "},
	}

	commaNumber   = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
	urlPattern    = regexp.MustCompile(`^(https?|ftp)://[^\s/$.?#].[^\s]*$`)
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	acronymMarker = regexp.MustCompile(`^([A-Z]\.)+[A-Z]?\.?$`)
)

var unicodeReplacer = strings.NewReplacer(
	"“", "\"",
	"”", "\"",
	"‘", "'",
	"’", "'",
	"–", "-",
	"—", "--",
	"…", "...",
)

// TokenizeLine splits one line into tokens in corpus order, following
// Stanford PTBTokenizer conventions: punctuation split off, contractions
// expanded, URLs, emails, acronyms and comma-separated numbers kept
// whole.
func TokenizeLine(text string) []string {
	if text == "" {
		return nil
	}

	var result []string
	for _, field := range strings.Fields(unicodeReplacer.Replace(text)) {
		// Tokens the rewrite pipeline would mangle pass through intact.
		switch {
		case urlPattern.MatchString(field) || emailPattern.MatchString(field) ||
			acronymMarker.MatchString(field):
			result = append(result, field)
			continue
		case commaNumber.MatchString(field):
			result = append(result, strings.ReplaceAll(field, ",", ""))
			continue
		}

		for _, s := range substitutions {
			field = s.pattern.ReplaceAllString(field, s.replace)
		}
		for _, token := range strings.Fields(field) {
			result = append(result, splitToken(token)...)
		}
	}
	return result
}

// splitToken peels punctuation glued to a word's edge that the rewrite
// pipeline missed.
func splitToken(token string) []string {
	if strings.HasSuffix(token, "'s") || strings.HasSuffix(token, "'S") {
		if base := token[:len(token)-2]; base != "" {
			return []string{base, token[len(token)-2:]}
		}
		return []string{token}
	}

	if allPunctuation(token) {
		return []string{token}
	}

	if len(token) > 1 {
		first := rune(token[0])
		last := rune(token[len(token)-1])
		if unicode.IsPunct(first) && !unicode.IsPunct(rune(token[1])) {
			return []string{string(first), token[1:]}
		}
		if unicode.IsPunct(last) && !unicode.IsPunct(rune(token[len(token)-2])) {
			return []string{token[:len(token)-1], string(last)}
		}
	}

	return []string{token}
}

func allPunctuation(token string) bool {
	for _, r := range token {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

// ScanLines reads the input line by line, invoking fn for each non-empty
// line. Lines up to 1 MiB are supported.
func ScanLines(r io.Reader, fn func(line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// StanfordTokenize tokenizes the whole input and returns the frequency
// table of words occurring at least minFreq times, most frequent first,
// ties broken alphabetically.
func StanfordTokenize(reader io.Reader, minFreq int) []WordFreq {
	if minFreq <= 0 {
		minFreq = DefaultMinCount
	}

	wordCount := make(map[string]int)
	_ = ScanLines(reader, func(line string) error {
		for _, token := range TokenizeLine(line) {
			wordCount[token]++
		}
		return nil
	})

	var result []WordFreq
	for word, freq := range wordCount {
		if freq >= minFreq {
			result = append(result, WordFreq{Word: word, Freq: freq})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Freq != result[j].Freq {
			return result[i].Freq > result[j].Freq
		}
		return result[i].Word < result[j].Word
	})

	return result
}
