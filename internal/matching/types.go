package matching

import (
	"encoding/json"
	"sort"
)

// TagSet is a set of case-sensitive tags. A nil TagSet behaves as empty.
type TagSet map[string]struct{}

// NewTagSet builds a set from tags. Duplicates collapse; empty strings are kept
// as-is because the core does no normalization.
func NewTagSet(tags ...string) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Has reports whether tag is in the set.
func (s TagSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Len returns the number of distinct tags.
func (s TagSet) Len() int { return len(s) }

// Intersect returns the tags present in both s and other.
func (s TagSet) Intersect(other TagSet) TagSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(TagSet)
	for t := range small {
		if large.Has(t) {
			out[t] = struct{}{}
		}
	}
	return out
}

// Sorted returns the tags in lexical order.
func (s TagSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of strings into the set.
func (s *TagSet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	*s = NewTagSet(tags...)
	return nil
}

// Profile is the part of a stored profile the matcher reads.
type Profile struct {
	ID         string `json:"id"`
	Interests  TagSet `json:"interests"`
	Activities TagSet `json:"activities"`
}

// MatchResult pairs a candidate with its overlap against the subject.
type MatchResult struct {
	Profile          Profile `json:"profile"`
	MatchScore       int     `json:"match_score"`
	SharedInterests  TagSet  `json:"shared_interests"`
	SharedActivities TagSet  `json:"shared_activities"`
}
