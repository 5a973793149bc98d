package service

import (
	"regexp"
	"sort"
	"strings"

	"alias-service/internal/alias/model"
)

// Punctuation turned into spaces before substitutions run.
var rePunct = regexp.MustCompile("[.,/#!$%^&*;:{}=\\-_`~()\\[\\]+]")

// Anything left that is not a-z, 0-9 or a space.
var reNonAlnum = regexp.MustCompile(`[^a-z0-9 ]+`)

var reSpaces = regexp.MustCompile(`\s+`)

type substitution struct {
	re   *regexp.Regexp
	repl string
}

// Whole-word substitutions, applied in order. "t-shirt" keeps its hyphen here
// and is split into "t shirt" by the non-alnum pass.
var substitutions = []substitution{
	{regexp.MustCompile(`\btee\b`), "t-shirt"},
	{regexp.MustCompile(`\btv\b`), "television"},
	{regexp.MustCompile(`\bcorn\s+beef\b`), "cornbeef"},
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "by": {}, "of": {}, "in": {}, "on": {},
	"a": {}, "an": {}, "to": {}, "new": {}, "mini": {}, "set": {}, "pack": {},
	"xl": {}, "large": {}, "small": {},
	"red": {}, "blue": {}, "green": {}, "black": {}, "white": {},
}

// Normalize turns a raw product name into text, tokens and fingerprint.
// Empty input yields an empty result.
func Normalize(raw string) model.NormalizedName {
	if raw == "" {
		return model.NormalizedName{Tokens: []string{}}
	}

	// 1) регистр
	s := strings.ToLower(raw)

	// 2) пунктуация → пробел
	s = rePunct.ReplaceAllString(s, " ")

	// 3) словарные замены
	for _, sub := range substitutions {
		s = sub.re.ReplaceAllString(s, sub.repl)
	}

	// 4) всё, что не a-z0-9 и не пробел
	s = reNonAlnum.ReplaceAllString(s, " ")

	// 5) схлопнуть пробелы
	s = strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))

	tokens := make([]string, 0, 8)
	for _, t := range strings.Split(s, " ") {
		if t == "" || isStopword(t) {
			continue
		}
		tokens = append(tokens, t)
	}

	return model.NormalizedName{
		Text:        s,
		Tokens:      tokens,
		Fingerprint: fingerprint(tokens),
	}
}

func isStopword(t string) bool {
	_, ok := stopwords[strings.ToLower(t)]
	return ok
}

func fingerprint(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	uniq := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		uniq = append(uniq, t)
	}
	sort.Strings(uniq)
	return strings.Join(uniq, " ")
}
