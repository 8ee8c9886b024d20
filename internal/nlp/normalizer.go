// Package nlp reduces free text to comparable canonical tokens.
package nlp

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
	"go.uber.org/zap"
)

// DefaultAllowList keeps technology names whose canonical form is not purely alphabetic
// or would otherwise be dropped.
var DefaultAllowList = []string{"sql", "python", "it", "osi", "mikrotik", "cisco", "ssh", "ubuntu"}

// Normalizer turns text into lemma tokens using Snowball stemming.
type Normalizer struct {
	allow  map[string]struct{}
	logger *zap.Logger
	stem   func(word, language string) (string, error)
}

func New(allowList []string, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if allowList == nil {
		allowList = DefaultAllowList
	}

	allow := make(map[string]struct{}, len(allowList))
	for _, term := range allowList {
		if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
			allow[term] = struct{}{}
		}
	}

	return &Normalizer{
		allow:  allow,
		logger: logger,
		stem: func(word, language string) (string, error) {
			return snowball.Stem(word, language, true)
		},
	}
}

// Normalize returns the lemma tokens of text. Order is not meaningful.
// A failure never propagates: the result is then empty.
func (n *Normalizer) Normalize(text string) (lemmas []string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("text normalization panicked", zap.Any("panic", r))
			lemmas = []string{}
		}
	}()

	tokens := Tokenize(strings.ToLower(strings.TrimSpace(text)))
	lemmas = make([]string, 0, len(tokens))

	for _, token := range tokens {
		lemma, err := n.lemmatize(token)
		if err != nil {
			n.logger.Error("text normalization failed", zap.String("token", token), zap.Error(err))
			return []string{}
		}
		if lemma == "" {
			continue
		}
		if isAlpha(lemma) || n.allowed(token) || n.allowed(lemma) {
			lemmas = append(lemmas, lemma)
		}
	}

	return lemmas
}

// LemmaSet is Normalize as a set.
func (n *Normalizer) LemmaSet(text string) map[string]struct{} {
	lemmas := n.Normalize(text)
	set := make(map[string]struct{}, len(lemmas))
	for _, lemma := range lemmas {
		set[lemma] = struct{}{}
	}
	return set
}

func (n *Normalizer) allowed(token string) bool {
	_, ok := n.allow[token]
	return ok
}

func (n *Normalizer) lemmatize(token string) (string, error) {
	language := scriptLanguage(token)
	if language == "" {
		return token, nil
	}

	stemmed, err := n.stem(token, language)
	if err != nil {
		return "", fmt.Errorf("stem %q (%s): %w", token, language, err)
	}
	return stemmed, nil
}

// Tokenize splits text into word tokens. Letters and digits form words; '+' and '#'
// are kept inside a token so names like c++ or c# survive.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#')
	})
}

func scriptLanguage(token string) string {
	cyrillic, latin := 0, 0
	for _, r := range token {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Latin, r):
			latin++
		case !unicode.IsLetter(r):
			// Mixed tokens such as c++ or 1c are left as they are.
			return ""
		}
	}

	switch {
	case cyrillic > 0 && latin == 0:
		return "russian"
	case latin > 0 && cyrillic == 0:
		return "english"
	default:
		return ""
	}
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
