package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.mu.Lock()
		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})
		ts.mu.Unlock()

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"note not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

func (ts *testServer) last(t *testing.T) recordedRequest {
	t.Helper()
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.requests) == 0 {
		t.Fatal("no requests recorded")
	}
	return ts.requests[len(ts.requests)-1]
}

func (r recordedRequest) body(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(r.Body), &m); err != nil {
		t.Fatalf("body parse error: %v (%q)", err, r.Body)
	}
	return m
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes the CLI against ts and returns what was written to stdout.
func run(t *testing.T, ts *testServer, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	prevOut, prevClient, prevColor := stdout, newAPIClient, noColor
	stdout = &out
	if ts != nil {
		newAPIClient = func() (*apiClient, error) { return ts.client(), nil }
	}
	t.Cleanup(func() {
		stdout, newAPIClient, noColor = prevOut, prevClient, prevColor
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})

	noColor = true
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestClient_Call(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /extract": `{"items":["Fix the bug"]}`,
	})

	var resp struct {
		Items []string `json:"items"`
	}
	err := ts.client().call(t.Context(), http.MethodPost, "/extract", map[string]any{"text": "- Fix the bug"}, &resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"Fix the bug"}, resp.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}

	r := ts.last(t)
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}
	if r.body(t)["text"] != "- Fix the bug" {
		t.Errorf("body.text = %v", r.body(t)["text"])
	}
}

func TestDecodeJSON_ErrorEnvelope(t *testing.T) {
	ts := newTestServer(t, nil)

	err := ts.client().call(t.Context(), http.MethodGet, "/notes/missing", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if got, want := err.Error(), "server returned 404: note not found"; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
}

func TestDecodeJSON_PlainErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := &apiClient{baseURL: srv.URL, token: "t", httpClient: srv.Client()}
	err := c.call(t.Context(), http.MethodGet, "/", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "502: upstream down") {
		t.Errorf("error = %v, want 502 with body", err)
	}
}

func TestExtractCommand_MissingInput(t *testing.T) {
	_, err := run(t, nil, "extract")
	if err == nil {
		t.Fatal("expected error for missing input")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want it to mention 'required'", err.Error())
	}
}

func TestExtractCommand_Text(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /extract": `{"items":["Fix the login bug","Update docs"]}`,
	})

	out, err := run(t, ts, "extract", "--text", "- Fix the login bug\nTODO: Update docs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "- Fix the login bug\n- Update docs\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
	body := ts.last(t).body(t)
	if body["detailed"] != false {
		t.Errorf("body.detailed = %v, want false", body["detailed"])
	}
}

func TestExtractCommand_FileDetailed(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /extract": `{"items":[{"text":"Ship it","priority":"HIGH","assignee":"sam","category":"action"}]}`,
	})
	path := filepath.Join(t.TempDir(), "minutes.md")
	if err := os.WriteFile(path, []byte("- Ship it [HIGH] @sam"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, ts, "extract", "--file", path, "--detailed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"assignee": "sam"`) {
		t.Errorf("output missing assignee:\n%s", out)
	}
	body := ts.last(t).body(t)
	if body["text"] != "- Ship it [HIGH] @sam" || body["detailed"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestNotesAdd_Content(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /notes": `{"id":"n-1","title":"Standup","job_id":"j-1"}`,
	})

	if _, err := run(t, ts, "notes", "add", "--title", "Standup", "--content", "- Review PR", "--extract"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := ts.last(t)
	if r.Path != "/notes?extract=true" {
		t.Errorf("path = %q, want /notes?extract=true", r.Path)
	}
	want := map[string]any{"title": "Standup", "content": "- Review PR"}
	if diff := cmp.Diff(want, r.body(t)); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestNotesAdd_PDFFile(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /notes/import": `{"id":"n-2","title":"agenda.pdf"}`,
	})
	path := filepath.Join(t.TempDir(), "agenda.pdf")
	raw := []byte("%PDF-1.4 fake")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, ts, "notes", "add", "--file", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := ts.last(t).body(t)
	if body["type"] != "pdf" {
		t.Errorf("type = %v, want pdf", body["type"])
	}
	if body["title"] != "agenda.pdf" {
		t.Errorf("title = %v, want agenda.pdf", body["title"])
	}
	if body["content"] != base64.StdEncoding.EncodeToString(raw) {
		t.Errorf("content is not the base64 file body")
	}
}

func TestNotesAdd_URL(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /notes/import": `{"id":"n-3"}`,
	})

	if _, err := run(t, ts, "notes", "add", "--url", "https://example.com/retro"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := ts.last(t).body(t)
	if body["type"] != "url" || body["url"] != "https://example.com/retro" {
		t.Errorf("body = %v", body)
	}
}

func TestNotesAdd_MissingArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no source", []string{"notes", "add"}, "required"},
		{"content without title", []string{"notes", "add", "--content", "x"}, "--title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, nil, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestNotesShow(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /notes/n-1": `{"id":"n-1","title":"Standup","content":"- Review PR",
			"action_items":[{"id":"a-1","description":"Review PR","completed":false,"priority":null}]}`,
	})

	out, err := run(t, ts, "notes", "show", "n-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "[ ] Review PR  a-1") {
		t.Errorf("output missing item line:\n%s", out)
	}
}

func TestNotesShow_RequiresID(t *testing.T) {
	if _, err := run(t, nil, "notes", "show"); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestItemsList_Filters(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /action-items": `[{"id":"a-1","description":"Call Bob","completed":false,"assignee":"bob"}]`,
	})

	out, err := run(t, ts, "items", "list", "--open", "--note", "n-1", "--limit", "5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := ts.last(t).Path, "/action-items?completed=false&limit=5&note_id=n-1"; got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
	if !strings.Contains(out, "Call Bob (@bob)") {
		t.Errorf("output = %q", out)
	}
}

func TestItemsList_ConflictingFlags(t *testing.T) {
	_, err := run(t, nil, "items", "list", "--open", "--done")
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("error = %v, want mutually exclusive", err)
	}
}

func TestItemsAddAndComplete(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /action-items":             `{"id":"a-9","description":"Book venue"}`,
		"PUT /action-items/a-9/complete": `{"id":"a-9","description":"Book venue","completed":true}`,
	})

	if _, err := run(t, ts, "items", "add", "Book", "venue", "--priority", "P1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	want := map[string]any{"description": "Book venue", "priority": "P1"}
	if diff := cmp.Diff(want, ts.last(t).body(t)); diff != "" {
		t.Errorf("add body mismatch (-want +got):\n%s", diff)
	}

	if _, err := run(t, ts, "items", "complete", "a-9"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if r := ts.last(t); r.Method != http.MethodPut || r.Path != "/action-items/a-9/complete" {
		t.Errorf("request = %s %s", r.Method, r.Path)
	}
}

func TestItemsComplete_NotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	_, err := run(t, ts, "items", "complete", "nope")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %v, want 404", err)
	}
}

func TestProfilesAdd(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /profiles": `{"id":"p-1","name":"Ada"}`,
	})

	_, err := run(t, ts, "profiles", "add", "--name", "Ada", "--city", "Berlin",
		"--interests", "chess, hiking,,", "--activities", "climbing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := ts.last(t).body(t)
	if diff := cmp.Diff([]any{"chess", "hiking"}, body["interests"]); diff != "" {
		t.Errorf("interests mismatch (-want +got):\n%s", diff)
	}
	if body["availability"] != nil {
		t.Errorf("availability = %v, want null", body["availability"])
	}
}

func TestProfilesAdd_RequiresName(t *testing.T) {
	_, err := run(t, nil, "profiles", "add")
	if err == nil || !strings.Contains(err.Error(), "--name") {
		t.Errorf("error = %v, want --name required", err)
	}
}

func TestMatchesCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /profiles/p-1/matches": `[{"id":"p-2","name":"Grace","match_score":3,
			"shared_interests":["chess"],"shared_activities":["hiking"]}]`,
	})

	out, err := run(t, ts, "matches", "p-1", "--limit", "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ts.last(t).Path; got != "/profiles/p-1/matches?limit=3" {
		t.Errorf("path = %q", got)
	}
	if want := " 3  Grace  p-2  chess, hiking\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestConnectCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /connections": `{"id":"c-1","status":"pending"}`,
	})

	if _, err := run(t, ts, "connect", "p-1", "p-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{"sender_id": "p-1", "receiver_id": "p-2"}
	if diff := cmp.Diff(want, ts.last(t).body(t)); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestConnectCommand_RequiresTwoArgs(t *testing.T) {
	if _, err := run(t, nil, "connect", "p-1"); err == nil {
		t.Fatal("expected error for missing receiver")
	}
}

func TestItemLine(t *testing.T) {
	noColor = true
	defer func() { noColor = false }()

	tests := []struct {
		name string
		item actionItem
		want string
	}{
		{"plain", actionItem{ID: "a-1", Description: "Call Bob"}, "[ ] Call Bob  a-1"},
		{"done", actionItem{ID: "a-2", Description: "Ship", Completed: true}, "[x] Ship  a-2"},
		{
			"metadata",
			actionItem{ID: "a-3", Description: "Fix bug", Priority: "HIGH", Assignee: "alice", Category: "bug"},
			"[ ] Fix bug (HIGH, @alice, bug)  a-3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := itemLine(tt.item); got != tt.want {
				t.Errorf("itemLine = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNoColorFlag(t *testing.T) {
	noColor = false
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()

	rootCmd.SetArgs([]string{"--no-color", "extract"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error")
	}
	if !noColor {
		t.Error("--no-color did not disable color")
	}
	if got := colorize(colorRed, "x"); got != "x" {
		t.Errorf("colorize = %q, want plain text", got)
	}
}

func TestNoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	defer func() { noColor = false }()
	noColor = false

	rootCmd.SetArgs([]string{"extract"})
	defer rootCmd.SetArgs(nil)
	rootCmd.Execute()

	if !noColor {
		t.Error("NO_COLOR did not disable color")
	}
}

func TestSplitList(t *testing.T) {
	if diff := cmp.Diff([]string{"a", "b"}, splitList(" a, ,b ")); diff != "" {
		t.Errorf("splitList mismatch (-want +got):\n%s", diff)
	}
	if got := splitList("  "); got != nil {
		t.Errorf("splitList(blank) = %v, want nil", got)
	}
}
