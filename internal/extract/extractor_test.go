package extract

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtract_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n\n", "\t \r\n"} {
		got := Extract(in)
		if got == nil || len(got) != 0 {
			t.Errorf("Extract(%q) = %v, want empty non-nil slice", in, got)
		}
	}
}

func TestExtract_BulletsAndNumberedItems(t *testing.T) {
	text := "- TODO: write tests\n* implement API endpoint\n1. Write docs\nJust a note."

	got := Extract(text)
	want := []string{"TODO: write tests", "implement API endpoint", "Write docs"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_KeywordPrefixesRetained(t *testing.T) {
	text := strings.Join([]string{
		"FIXME: memory leak in parser",
		"BUG: off-by-one error",
		"HACK: temporary workaround",
		"NOTE: update documentation",
		"XXX: needs refactoring",
		"OPTIMIZE: slow query here",
		"REFACTOR: extract this method",
		"Follow up: ping vendor",
		"task: rotate keys",
	}, "\n")

	got := Extract(text)
	if len(got) != 9 {
		t.Fatalf("len = %d, want 9: %v", len(got), got)
	}
	for _, want := range []string{"FIXME: memory leak in parser", "Follow up: ping vendor", "task: rotate keys"} {
		if !slices.Contains(got, want) {
			t.Errorf("missing %q in %v", want, got)
		}
	}
}

func TestExtract_DuplicatesCollapseCaseInsensitively(t *testing.T) {
	text := "TODO: fix the bug\nsomething else\ntodo: FIX THE BUG\nTODO: fix the bug"

	got := Extract(text)
	if diff := cmp.Diff([]string{"TODO: fix the bug"}, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_Checkboxes(t *testing.T) {
	text := "[ ] Unchecked task\n[x] Completed task\n[X] Another completed task\n[] Empty checkbox\n- [ ] Set up database\nRegular text"

	got := Extract(text)
	want := []string{"Unchecked task", "Completed task", "Another completed task", "Empty checkbox", "Set up database"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_Punctuation(t *testing.T) {
	text := "Deploy this now!\nCritical bug fix needed!\nRegular sentence.\nWhy?\nShould we refactor this module?\nWhat about the edge cases?"

	got := Extract(text)
	want := []string{"Deploy this now!", "Critical bug fix needed!", "Should we refactor this module?", "What about the edge cases?"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_ImperativesAndObligations(t *testing.T) {
	text := strings.Join([]string{
		"Need to update dependencies",
		"Must fix the failing test",
		"Remember to update changelog",
		"Don't forget to deploy",
		"Have to review the PR",
		"Make sure tests pass",
		"Add error handling",
		"Please review the design",
		"Let's ship the beta",
		"We should document the API",
		"Regular sentence here",
		"This is not an action",
	}, "\n")

	got := Extract(text)
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10: %v", len(got), got)
	}
	for _, excluded := range []string{"Regular sentence here", "This is not an action"} {
		if slices.Contains(got, excluded) {
			t.Errorf("%q should not be extracted", excluded)
		}
	}
}

func TestExtract_AssigneeAndUrgency(t *testing.T) {
	text := "alice: book the room\n@bob: send slides\nReport is due Friday\nWrap up asap\nplain words"

	got := Extract(text)
	want := []string{"alice: book the room", "@bob: send slides", "Report is due Friday", "Wrap up asap"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_SentenceFallback(t *testing.T) {
	text := "Long call today. Fix the login bug. Whatever. Then lunch!? ok"

	got := Extract(text)
	want := []string{"Fix the login bug."}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_NoActionItems(t *testing.T) {
	text := "This is just a regular note.\nIt contains some information.\nNothing else."

	if got := Extract(text); len(got) != 0 {
		t.Errorf("Extract = %v, want empty", got)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	text := "- TODO: a\nFix b\nplain\nShip it!"
	if diff := cmp.Diff(Extract(text), Extract(text)); diff != "" {
		t.Errorf("repeated calls differ:\n%s", diff)
	}
}

func strp(s string) *string { return &s }

func TestExtractDetailed_Metadata(t *testing.T) {
	text := strings.Join([]string{
		"TODO: [HIGH] @alice fix critical bug",
		"BUG: [urgent] @bob memory leak in parser",
		"Need to [P1] deploy hotfix",
		"OPTIMIZE: slow database query",
		"HACK: temporary solution",
		"NOTE: update API docs",
		"Update the docs",
	}, "\n")

	got := ExtractDetailed(text)
	want := []Item{
		{Text: "TODO: [HIGH] @alice fix critical bug", Priority: strp("HIGH"), Assignee: strp("alice"), Category: strp("todo")},
		{Text: "BUG: [urgent] @bob memory leak in parser", Priority: strp("URGENT"), Assignee: strp("bob"), Category: strp("bug")},
		{Text: "Need to [P1] deploy hotfix", Priority: strp("P1")},
		{Text: "OPTIMIZE: slow database query", Category: strp("optimization")},
		{Text: "HACK: temporary solution", Category: strp("technical-debt")},
		{Text: "NOTE: update API docs", Category: strp("documentation")},
		{Text: "Update the docs"},
	}
	if diff := cmp.Diff(want, got, cmp.FilterPath(func(p cmp.Path) bool {
		return p.Last().String() == ".Rule"
	}, cmp.Ignore())); diff != "" {
		t.Errorf("ExtractDetailed mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractDetailed_LeadingPriorityMarker(t *testing.T) {
	text := "lunch was fine\n[HIGH] ship it now\n[low] the weather is nice"

	got := ExtractDetailed(text)
	want := []Item{{Text: "[HIGH] ship it now", Priority: strp("HIGH"), Rule: RuleImperative}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExtractDetailed mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractDetailed_MatchesBasic(t *testing.T) {
	text := "- TODO: a\n[ ] b task\nShip it!\nnothing here"

	basic := Extract(text)
	detailed := ExtractDetailed(text)
	if len(basic) != len(detailed) {
		t.Fatalf("basic has %d items, detailed has %d", len(basic), len(detailed))
	}
	for i := range basic {
		if basic[i] != detailed[i].Text {
			t.Errorf("item %d: basic %q, detailed %q", i, basic[i], detailed[i].Text)
		}
	}
}

func TestItem_JSONOmitsAbsentFields(t *testing.T) {
	b, err := json.Marshal(Item{Text: "Update the docs", Rule: RuleImperative})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `{"text":"Update the docs"}` {
		t.Errorf("Marshal = %s", b)
	}
}

func TestNew_CustomRules(t *testing.T) {
	rules := DefaultRules()
	rules.ActionVerbs = []string{"water"}
	rules.MandatoryPhrases = nil
	e := New(rules)

	got := e.Extract("Water the plants\nFix the sink")
	if diff := cmp.Diff([]string{"Water the plants"}, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestAnnotate(t *testing.T) {
	e := New(DefaultRules())
	it := e.Annotate("  fixme: [LOW] ask @carol  ")

	if it.Text != "fixme: [LOW] ask @carol" {
		t.Errorf("Text = %q", it.Text)
	}
	if it.Priority == nil || *it.Priority != "LOW" {
		t.Errorf("Priority = %v, want LOW", it.Priority)
	}
	if it.Assignee == nil || *it.Assignee != "carol" {
		t.Errorf("Assignee = %v, want carol", it.Assignee)
	}
	if it.Category == nil || *it.Category != "bug" {
		t.Errorf("Category = %v, want bug", it.Category)
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One. Two!  Three? four.five end")
	want := []string{"One.", "Two!", "Three?", "four.five end"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("splitSentences mismatch (-want +got):\n%s", diff)
	}
}
