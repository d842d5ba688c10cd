package server

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/wipchat/internal/wip"
)

// Shortlist ranks manifests against the user's message and returns the
// top k. Scoring is lexical: exact token hits on a manifest's text weigh
// most, near-misses count through edit distance. With no signal at all
// the manifests come back in their original order, so the agent is still
// offered something.
func Shortlist(manifests []wip.Manifest, message string, k int) []wip.Manifest {
	if k <= 0 || k > len(manifests) {
		k = len(manifests)
	}
	msgTokens := tokenize(message)

	type scored struct {
		m     wip.Manifest
		score int
		index int
	}
	ranked := make([]scored, 0, len(manifests))
	for i, m := range manifests {
		ranked = append(ranked, scored{m: m, score: manifestScore(m, msgTokens), index: i})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].index < ranked[j].index
	})

	out := make([]wip.Manifest, 0, k)
	for _, r := range ranked[:k] {
		out = append(out, r.m)
	}
	return out
}

func manifestScore(m wip.Manifest, msgTokens []string) int {
	text := strings.Join([]string{m.Name, m.Description, m.UseCasesHints}, " ")
	manTokens := tokenize(text)
	score := 0
	for _, mt := range msgTokens {
		for _, wt := range manTokens {
			switch {
			case mt == wt:
				score += 3
			case len(mt) > 3 && levenshtein.ComputeDistance(mt, wt) <= 2:
				score++
			}
		}
	}
	return score
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}

// offered reports whether uri is in the shortlist handed to the model.
func offered(shortlist []wip.Manifest, uri string) bool {
	for _, m := range shortlist {
		if m.URI == uri {
			return true
		}
	}
	return false
}
