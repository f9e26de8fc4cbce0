package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

var (
	ErrUnknownName   = errors.New("no match")
	ErrAmbiguousName = errors.New("ambiguous name")
)

var accents = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u", "ü", "u",
	"ñ", "n", "ç", "c",
)

// normalize lower-cases, strips accents and collapses whitespace
func normalize(s string) string {
	s = accents.Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

func levenshteinLimit(length int) int {
	if length <= 4 {
		return 1
	}
	return 2
}

// matchName resolves free text to one of the candidate names. Exact matches
// win, then prefixes (of the name or any of its words), then the closest
// name within the edit distance limit.
func matchName(input string, candidates []string) (string, error) {
	in := normalize(input)
	if in == "" {
		return "", fmt.Errorf("%w for %q", ErrUnknownName, input)
	}

	for _, cand := range candidates {
		if normalize(cand) == in {
			return cand, nil
		}
	}

	var prefixed []string
	for _, cand := range candidates {
		norm := normalize(cand)
		if strings.HasPrefix(norm, in) {
			prefixed = append(prefixed, cand)
			continue
		}
		for _, word := range strings.Fields(norm) {
			if strings.HasPrefix(word, in) {
				prefixed = append(prefixed, cand)
				break
			}
		}
	}
	switch len(prefixed) {
	case 0:
	case 1:
		return prefixed[0], nil
	default:
		return "", ambiguous(input, prefixed)
	}

	best := -1
	var closest []string
	for _, cand := range candidates {
		norm := normalize(cand)
		dist := levenshtein.ComputeDistance(in, norm)
		if dist > levenshteinLimit(len(norm)) {
			continue
		}
		switch {
		case best < 0 || dist < best:
			best = dist
			closest = []string{cand}
		case dist == best:
			closest = append(closest, cand)
		}
	}
	switch len(closest) {
	case 0:
		return "", fmt.Errorf("%w for %q", ErrUnknownName, input)
	case 1:
		return closest[0], nil
	default:
		return "", ambiguous(input, closest)
	}
}

func ambiguous(input string, matches []string) error {
	sorted := append([]string(nil), matches...)
	sort.Strings(sorted)
	return fmt.Errorf("%w: %q could be %s", ErrAmbiguousName, input, strings.Join(sorted, ", "))
}
