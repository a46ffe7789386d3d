// Package matching ranks candidate profiles by the interests and activities
// they share with a subject profile.
package matching

import "sort"

// RankMatches scores every candidate against subject and returns those with a
// positive score, highest first. Candidates with equal scores keep their input
// order. The subject must already be excluded from candidates.
func RankMatches(subject Profile, candidates []Profile) []MatchResult {
	results := make([]MatchResult, 0, len(candidates))
	if subject.Interests.Len() == 0 && subject.Activities.Len() == 0 {
		return results
	}

	for _, c := range candidates {
		shared := subject.Interests.Intersect(c.Interests)
		sharedAct := subject.Activities.Intersect(c.Activities)
		score := shared.Len() + sharedAct.Len()
		if score == 0 {
			continue
		}
		results = append(results, MatchResult{
			Profile:          c,
			MatchScore:       score,
			SharedInterests:  shared,
			SharedActivities: sharedAct,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})
	return results
}
