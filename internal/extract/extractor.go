// Package extract finds task-like lines in free-form notes.
//
// Classification is heuristic: a line is an action item when it carries a
// list or checkbox marker, a keyword prefix such as "TODO:", urgent
// punctuation, an imperative verb or obligation phrase, an assignee prefix,
// or a due-date cue. When no line qualifies the text is re-read sentence by
// sentence and sentences opening with an action verb are kept.
package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Rule names which heuristic accepted an item.
type Rule string

const (
	RuleKeyword     Rule = "keyword"
	RuleCheckbox    Rule = "checkbox"
	RuleBullet      Rule = "bullet"
	RuleExclamation Rule = "exclamation"
	RuleQuestion    Rule = "question"
	RuleImperative  Rule = "imperative"
	RuleAssignee    Rule = "assignee"
	RuleUrgency     Rule = "urgency"
	RuleSentence    Rule = "sentence"
)

var (
	bulletRe    = regexp.MustCompile(`^(?:[-*•]|\d+\.)(?:\s+|$)`)
	checkboxRe  = regexp.MustCompile(`^\[[ xX]?\](?:\s+|$)`)
	assigneeRe  = regexp.MustCompile(`^@?[\w-]+:\s+`)
	firstWordRe = regexp.MustCompile(`[A-Za-z']+`)
	mentionRe   = regexp.MustCompile(`(?:^|\s)@([\w-]+)`)
)

// Item is an action item with the metadata found on its line. Nil fields were
// not present.
type Item struct {
	Text     string  `json:"text"`
	Priority *string `json:"priority,omitempty"`
	Assignee *string `json:"assignee,omitempty"`
	Category *string `json:"category,omitempty"`
	Rule     Rule    `json:"-"`
}

// Extractor classifies text against a fixed Rules table. It holds no mutable
// state and is safe for concurrent use.
type Extractor struct {
	rules      Rules
	verbs      map[string]struct{}
	prefixes   []string // longest first so "follow up" wins over shorter overlaps
	priorityRe *regexp.Regexp
}

// New compiles rules into an Extractor.
func New(rules Rules) *Extractor {
	e := &Extractor{
		rules: rules,
		verbs: make(map[string]struct{}, len(rules.ActionVerbs)),
	}
	for _, v := range rules.ActionVerbs {
		e.verbs[strings.ToLower(v)] = struct{}{}
	}

	e.prefixes = make([]string, len(rules.KeywordPrefixes))
	for i, p := range rules.KeywordPrefixes {
		e.prefixes[i] = strings.ToLower(p)
	}
	sort.SliceStable(e.prefixes, func(i, j int) bool {
		return len(e.prefixes[i]) > len(e.prefixes[j])
	})

	if len(rules.PriorityMarkers) > 0 {
		quoted := make([]string, len(rules.PriorityMarkers))
		for i, m := range rules.PriorityMarkers {
			quoted[i] = regexp.QuoteMeta(m)
		}
		e.priorityRe = regexp.MustCompile(`(?i)\[(` + strings.Join(quoted, "|") + `)\]`)
	}
	return e
}

var defaultExtractor = New(DefaultRules())

// Extract returns the action items in text using DefaultRules.
func Extract(text string) []string { return defaultExtractor.Extract(text) }

// ExtractDetailed is Extract with per-item metadata, using DefaultRules.
func ExtractDetailed(text string) []Item { return defaultExtractor.ExtractDetailed(text) }

// Extract returns the action items in text, deduplicated case-insensitively
// in first-seen order. It never fails; blank text yields an empty slice.
func (e *Extractor) Extract(text string) []string {
	items := e.scan(text)
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Text
	}
	return out
}

// ExtractDetailed returns the same items as Extract along with priority,
// assignee and category where the line carries them.
func (e *Extractor) ExtractDetailed(text string) []Item {
	items := e.scan(text)
	for i := range items {
		e.annotate(&items[i])
	}
	return items
}

// Annotate derives metadata for a single, already-accepted item text. It is
// used for items produced outside the line classifier, such as model output.
func (e *Extractor) Annotate(text string) Item {
	it := Item{Text: strings.TrimSpace(text)}
	e.annotate(&it)
	return it
}

func (e *Extractor) scan(text string) []Item {
	var seen dedup
	items := []Item{}

	for _, line := range strings.Split(text, "\n") {
		if it, ok := e.classifyLine(line); ok && seen.add(it.Text) {
			items = append(items, it)
		}
	}
	if len(items) > 0 {
		return items
	}

	for _, s := range splitSentences(text) {
		if e.isVerb(firstWordRe.FindString(s)) && seen.add(s) {
			items = append(items, Item{Text: s, Rule: RuleSentence})
		}
	}
	return items
}

// classifyLine applies the line rules. The returned text has list and
// checkbox markers stripped; keyword prefixes are kept.
func (e *Extractor) classifyLine(line string) (Item, bool) {
	candidate := strings.TrimSpace(line)
	if candidate == "" {
		return Item{}, false
	}

	text := candidate
	bulleted := false
	if loc := bulletRe.FindStringIndex(text); loc != nil {
		bulleted = true
		text = strings.TrimSpace(text[loc[1]:])
	}
	checkbox := false
	if loc := checkboxRe.FindStringIndex(text); loc != nil {
		checkbox = true
		text = strings.TrimSpace(text[loc[1]:])
	}
	if text == "" {
		return Item{}, false
	}

	lower := strings.ToLower(text)
	var rule Rule
	switch {
	case e.keywordPrefix(lower) != "":
		rule = RuleKeyword
	case checkbox:
		rule = RuleCheckbox
	case bulleted:
		rule = RuleBullet
	case strings.HasSuffix(text, "!"):
		rule = RuleExclamation
	case strings.HasSuffix(text, "?") && utf8.RuneCountInString(text) > e.rules.MinQuestionLength:
		rule = RuleQuestion
	case e.isImperative(lower):
		rule = RuleImperative
	case assigneeRe.MatchString(text):
		rule = RuleAssignee
	case containsAny(lower, e.rules.UrgencyCues):
		rule = RuleUrgency
	default:
		return Item{}, false
	}
	return Item{Text: text, Rule: rule}, true
}

// keywordPrefix returns the matched prefix of lower, or "".
func (e *Extractor) keywordPrefix(lower string) string {
	for _, p := range e.prefixes {
		if strings.HasPrefix(lower, p+":") {
			return p
		}
	}
	return ""
}

func (e *Extractor) isImperative(lower string) bool {
	if containsAny(lower, e.rules.MandatoryPhrases) {
		return true
	}
	candidate := lower
	// A leading "[HIGH]" style marker does not hide the verb behind it.
	if e.priorityRe != nil {
		if loc := e.priorityRe.FindStringIndex(candidate); loc != nil && loc[0] == 0 {
			candidate = strings.TrimSpace(candidate[loc[1]:])
		}
	}
	for _, lead := range e.rules.LeadIns {
		if strings.HasPrefix(candidate, lead) {
			candidate = strings.TrimSpace(candidate[len(lead):])
			break
		}
	}
	first, _, _ := strings.Cut(candidate, " ")
	return e.isVerb(strings.Trim(first, "():,;.!?"))
}

func (e *Extractor) isVerb(word string) bool {
	if word == "" {
		return false
	}
	_, ok := e.verbs[strings.ToLower(word)]
	return ok
}

func (e *Extractor) annotate(it *Item) {
	if e.priorityRe != nil {
		if m := e.priorityRe.FindStringSubmatch(it.Text); m != nil {
			p := strings.ToUpper(m[1])
			it.Priority = &p
		}
	}
	if m := mentionRe.FindStringSubmatch(it.Text); m != nil {
		a := m[1]
		it.Assignee = &a
	}
	if p := e.keywordPrefix(strings.ToLower(it.Text)); p != "" {
		if c, ok := e.rules.Categories[p]; ok {
			it.Category = &c
		}
	}
}

// splitSentences breaks text after '.', '!' or '?' when followed by
// whitespace. Empty sentences are dropped.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	var out []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		switch runes[i] {
		case '.', '!', '?':
			if isSpace(runes[i+1]) {
				if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// dedup tracks emitted items by their lower-cased text.
type dedup map[string]struct{}

func (d *dedup) add(text string) bool {
	if *d == nil {
		*d = make(dedup)
	}
	key := strings.ToLower(text)
	if _, ok := (*d)[key]; ok {
		return false
	}
	(*d)[key] = struct{}{}
	return true
}
