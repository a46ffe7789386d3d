package extract

// Rules is the policy table the extractor classifies lines against. Keyword
// lists are matched case-insensitively; entries should be lower case.
type Rules struct {
	// KeywordPrefixes are matched as "<prefix>:" at the start of a line.
	KeywordPrefixes []string
	// Categories maps a keyword prefix to the category reported for it.
	Categories map[string]string
	// ActionVerbs are imperative first words ("fix the build").
	ActionVerbs []string
	// LeadIns are soft imperative openers stripped before the verb check.
	LeadIns []string
	// MandatoryPhrases mark a line as an obligation wherever they appear.
	MandatoryPhrases []string
	// UrgencyCues are due-date or urgency substrings.
	UrgencyCues []string
	// PriorityMarkers are the tokens recognised inside square brackets.
	PriorityMarkers []string
	// MinQuestionLength is the length a line ending in '?' must exceed.
	MinQuestionLength int
}

// DefaultRules returns the superset of keywords seen across note-taking
// conventions: code annotations, meeting minutes and checklists.
func DefaultRules() Rules {
	return Rules{
		KeywordPrefixes: []string{
			"todo", "action", "fixme", "note", "bug", "hack", "xxx",
			"optimize", "refactor", "task", "follow up", "next",
		},
		Categories: map[string]string{
			"todo":      "todo",
			"task":      "todo",
			"action":    "todo",
			"follow up": "todo",
			"next":      "todo",
			"bug":       "bug",
			"fixme":     "bug",
			"optimize":  "optimization",
			"hack":      "technical-debt",
			"xxx":       "technical-debt",
			"refactor":  "technical-debt",
			"note":      "documentation",
		},
		ActionVerbs: []string{
			"add", "fix", "update", "remove", "delete", "create", "implement",
			"refactor", "improve", "test", "verify", "check", "review",
			"investigate", "research", "document", "write", "deploy",
			"configure", "schedule", "ship", "send", "plan", "draft", "monitor",
			"cleanup", "follow", "prepare", "design", "optimize",
		},
		LeadIns: []string{
			"please, ", "please ", "kindly ", "let's ", "lets ", "we need to ", "we should ",
		},
		MandatoryPhrases: []string{
			"need to", "must ", "should ", "remember to", "don't forget",
			"make sure", "have to", "got to",
		},
		UrgencyCues: []string{" due ", " by ", " asap", "action item"},
		PriorityMarkers: []string{
			"CRITICAL", "URGENT", "HIGH", "MEDIUM", "LOW", "P1", "P2", "P3", "P4", "P5",
		},
		MinQuestionLength: 10,
	}
}
