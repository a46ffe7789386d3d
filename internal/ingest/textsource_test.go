package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kalambet/followup/internal/extract"
)

func TestFromHTML(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"inline", `<p>Hello <b>world</b></p>`, "Hello world"},
		{"script dropped", `<p>keep</p><script>var x = "drop";</script><style>p{}</style>`, "keep"},
		{"br splits", `<div>one<br>two</div>`, "one\ntwo"},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromHTML(strings.NewReader(tt.html))
			if err != nil {
				t.Fatalf("FromHTML: %v", err)
			}
			if got != tt.want {
				t.Errorf("FromHTML = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromHTML_ListItemsExtract(t *testing.T) {
	page := `<html><head><title>Standup</title></head><body>
		<h1>Notes</h1>
		<p>We talked about the roadmap.</p>
		<ul><li>Fix the flaky test</li><li>Ship the beta</li></ul>
	</body></html>`

	text, err := FromHTML(strings.NewReader(page))
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	got := extract.Extract(text)
	want := []string{"Fix the flaky test", "Ship the beta"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s\ntext:\n%s", diff, text)
	}
}

func TestFromPDF_InvalidData(t *testing.T) {
	if _, err := FromPDF([]byte("definitely not a pdf")); err == nil {
		t.Fatal("expected error for non-PDF input")
	}
}

func TestFetchURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<p>TODO: call <i>Bob</i></p><script>alert(1)</script>`))
	})
	mux.HandleFunc("/notes.md", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/markdown")
		w.Write([]byte("# Title\n- [ ] Buy milk\n"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()

	got, err := FetchURL(ctx, srv.Client(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("FetchURL html: %v", err)
	}
	if got != "TODO: call Bob" {
		t.Errorf("html text = %q", got)
	}

	got, err = FetchURL(ctx, srv.Client(), srv.URL+"/notes.md")
	if err != nil {
		t.Fatalf("FetchURL markdown: %v", err)
	}
	if got != "# Title\n- [ ] Buy milk" {
		t.Errorf("markdown text = %q", got)
	}

	_, err = FetchURL(ctx, srv.Client(), srv.URL+"/missing")
	if err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("missing page error = %v, want HTTP 404", err)
	}
}

func TestFetchURL_TooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(strings.Repeat("a", MaxImportBytes+1)))
	}))
	defer srv.Close()

	_, err := FetchURL(context.Background(), srv.Client(), srv.URL)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

func TestReadLimited(t *testing.T) {
	b, err := readLimited(strings.NewReader(strings.Repeat("a", MaxImportBytes)))
	if err != nil || len(b) != MaxImportBytes {
		t.Errorf("exact-limit read = %d bytes, %v", len(b), err)
	}
	if _, err := readLimited(strings.NewReader(strings.Repeat("a", MaxImportBytes+1))); !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversize read err = %v, want ErrTooLarge", err)
	}
}
