package friends

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kalambet/followup/internal/storage"
)

var ctx = context.Background()

func newTestService(t *testing.T) (*Service, *storage.Store) {
	t.Helper()
	st, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewService(st), st
}

func addProfile(t *testing.T, st *storage.Store, name string, interests, activities []string) storage.Profile {
	t.Helper()
	p, err := st.CreateProfile(ctx, storage.Profile{Name: name, Interests: interests, Activities: activities})
	if err != nil {
		t.Fatalf("CreateProfile(%s): %v", name, err)
	}
	return p
}

func TestMatches_RanksAndExcludesSubject(t *testing.T) {
	svc, st := newTestService(t)

	me := addProfile(t, st, "me", []string{"music", "art"}, []string{"hiking"})
	one := addProfile(t, st, "one-shared", []string{"music"}, nil)
	addProfile(t, st, "none", []string{"golf"}, []string{"chess"})
	three := addProfile(t, st, "three-shared", []string{"music", "art"}, []string{"hiking"})
	tie := addProfile(t, st, "one-shared-later", nil, []string{"hiking"})

	got, err := svc.Matches(ctx, me.ID)
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}

	var ids []string
	var scores []int
	for _, m := range got {
		ids = append(ids, m.ID)
		scores = append(scores, m.MatchScore)
	}
	if diff := cmp.Diff([]string{three.ID, one.ID, tie.ID}, ids); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{3, 1, 1}, scores); diff != "" {
		t.Errorf("scores mismatch (-want +got):\n%s", diff)
	}
	if got[0].Name != "three-shared" {
		t.Errorf("match profile not populated: %+v", got[0].Profile)
	}
	if diff := cmp.Diff([]string{"art", "music"}, got[0].SharedInterests.Sorted()); diff != "" {
		t.Errorf("shared interests mismatch (-want +got):\n%s", diff)
	}
}

func TestMatches_UnknownProfile(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Matches(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestMatches_NoTags(t *testing.T) {
	svc, st := newTestService(t)

	me := addProfile(t, st, "me", nil, nil)
	addProfile(t, st, "other", []string{"music"}, nil)

	got, err := svc.Matches(ctx, me.ID)
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Matches = %#v, want empty non-nil", got)
	}
}

func TestConnect_Validation(t *testing.T) {
	svc, st := newTestService(t)

	a := addProfile(t, st, "a", nil, nil)
	b := addProfile(t, st, "b", nil, nil)

	tests := []struct {
		name     string
		sender   string
		receiver string
		want     error
	}{
		{"missing sender", "", b.ID, ErrInvalid},
		{"missing receiver", a.ID, "", ErrInvalid},
		{"self", a.ID, a.ID, ErrInvalid},
		{"unknown receiver", a.ID, "ghost", storage.ErrNotFound},
		{"unknown sender", "ghost", b.ID, storage.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Connect(ctx, tt.sender, tt.receiver); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := svc.Connect(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := svc.Connect(ctx, a.ID, b.ID); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate: error = %v, want ErrConflict", err)
	}
}

func TestRespond(t *testing.T) {
	svc, st := newTestService(t)

	a := addProfile(t, st, "a", nil, nil)
	b := addProfile(t, st, "b", nil, nil)
	c, err := svc.Connect(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if _, err := svc.Respond(ctx, c.ID, "pending"); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad status: error = %v, want ErrInvalid", err)
	}
	if _, err := svc.Respond(ctx, "nope", storage.StatusAccepted); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown: error = %v, want ErrNotFound", err)
	}

	got, err := svc.Respond(ctx, c.ID, storage.StatusDeclined)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if got.Status != storage.StatusDeclined {
		t.Errorf("Status = %q, want declined", got.Status)
	}
	if _, err := svc.Respond(ctx, c.ID, storage.StatusAccepted); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second response: error = %v, want ErrInvalidTransition", err)
	}
}

func TestFriends(t *testing.T) {
	svc, st := newTestService(t)

	a := addProfile(t, st, "a", nil, nil)
	b := addProfile(t, st, "b", nil, nil)
	c := addProfile(t, st, "c", nil, nil)
	d := addProfile(t, st, "d", nil, nil)

	ab, _ := svc.Connect(ctx, a.ID, b.ID)
	ca, _ := svc.Connect(ctx, c.ID, a.ID)
	ad, _ := svc.Connect(ctx, a.ID, d.ID)
	svc.Respond(ctx, ab.ID, storage.StatusAccepted)
	svc.Respond(ctx, ca.ID, storage.StatusAccepted)
	svc.Respond(ctx, ad.ID, storage.StatusDeclined)

	friends, err := svc.Friends(ctx, a.ID)
	if err != nil {
		t.Fatalf("Friends: %v", err)
	}
	names := map[string]bool{}
	for _, f := range friends {
		names[f.Name] = true
	}
	if diff := cmp.Diff(map[string]bool{"b": true, "c": true}, names); diff != "" {
		t.Errorf("friends mismatch (-want +got):\n%s", diff)
	}

	bf, _ := svc.Friends(ctx, b.ID)
	if len(bf) != 1 || bf[0].ID != a.ID {
		t.Errorf("b's friends = %+v, want [a]", bf)
	}
	if _, err := svc.Friends(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown: error = %v, want ErrNotFound", err)
	}
}
