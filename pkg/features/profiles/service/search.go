package profileservice

import (
	"unicode"
	"unicode/utf8"

	profilestruct "github.com/Gamequic/ProfileDirectory/pkg/features/profiles/struct"
)

// Filter keeps the profiles whose name or address contains query, ignoring case.
// The query is literal text. An empty query returns profiles as given.
func Filter(profiles []profilestruct.Profile, query string) []profilestruct.Profile {
	if query == "" {
		return profiles
	}

	matched := make([]profilestruct.Profile, 0, len(profiles))
	for _, p := range profiles {
		if ContainsFold(p.Name, query) || ContainsFold(p.Address, query) {
			matched = append(matched, p)
		}
	}
	return matched
}

// Highlight splits text around case-insensitive occurrences of query.
// Joining the segment texts always gives back text byte for byte.
func Highlight(text, query string) []profilestruct.Segment {
	if query == "" {
		return []profilestruct.Segment{{Text: text}}
	}

	var segments []profilestruct.Segment
	start, i := 0, 0
	for i < len(text) {
		if end, ok := matchAt(text, i, query); ok {
			if i > start {
				segments = append(segments, profilestruct.Segment{Text: text[start:i]})
			}
			segments = append(segments, profilestruct.Segment{Text: text[i:end], Match: true})
			i, start = end, end
			continue
		}
		_, width := utf8.DecodeRuneInString(text[i:])
		i += width
	}
	if start < len(text) || len(segments) == 0 {
		segments = append(segments, profilestruct.Segment{Text: text[start:]})
	}
	return segments
}

// ContainsFold reports whether substr occurs in s under Unicode simple case folding.
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	for i := 0; i < len(s); {
		if _, ok := matchAt(s, i, substr); ok {
			return true
		}
		_, width := utf8.DecodeRuneInString(s[i:])
		i += width
	}
	return false
}

// matchAt compares query against text starting at byte offset i and returns
// the byte offset in text where the match ends.
func matchAt(text string, i int, query string) (int, bool) {
	j := 0
	for j < len(query) {
		if i >= len(text) {
			return 0, false
		}
		tr, tw := utf8.DecodeRuneInString(text[i:])
		qr, qw := utf8.DecodeRuneInString(query[j:])
		if tr == utf8.RuneError || qr == utf8.RuneError {
			// Invalid bytes only match themselves.
			if tw != qw || text[i:i+tw] != query[j:j+qw] {
				return 0, false
			}
		} else if !foldEqual(tr, qr) {
			return 0, false
		}
		i += tw
		j += qw
	}
	return i, true
}

func foldEqual(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}
