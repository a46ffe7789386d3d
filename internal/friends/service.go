// Package friends ranks potential friends and manages connection requests
// between profiles.
package friends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kalambet/followup/internal/matching"
	"github.com/kalambet/followup/internal/storage"
)

var (
	// ErrInvalid marks a request that is malformed regardless of stored state.
	ErrInvalid = errors.New("invalid request")
	// ErrInvalidTransition is returned when responding to a connection that
	// is no longer pending.
	ErrInvalidTransition = errors.New("connection is not pending")
)

// Store defines the storage operations the Service needs.
// Implemented by storage.Store.
type Store interface {
	GetProfile(ctx context.Context, id string) (storage.Profile, error)
	ListProfiles(ctx context.Context, f storage.ProfileFilter) ([]storage.Profile, error)
	CreateConnection(ctx context.Context, senderID, receiverID string) (storage.Connection, error)
	GetConnection(ctx context.Context, id string) (storage.Connection, error)
	SetConnectionStatus(ctx context.Context, id, from, to string) (storage.Connection, error)
	ListAcceptedConnections(ctx context.Context, profileID string) ([]storage.Connection, error)
}

// Match is a ranked candidate with the tags it shares with the subject.
type Match struct {
	storage.Profile
	MatchScore       int             `json:"match_score"`
	SharedInterests  matching.TagSet `json:"shared_interests"`
	SharedActivities matching.TagSet `json:"shared_activities"`
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store) *Service {
	return &Service{store: store, logger: slog.Default()}
}

// Matches ranks every other profile by shared interests and activities.
func (s *Service) Matches(ctx context.Context, profileID string) ([]Match, error) {
	subject, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("loading profile %s: %w", profileID, err)
	}
	all, err := s.store.ListProfiles(ctx, storage.ProfileFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}

	byID := make(map[string]storage.Profile, len(all))
	candidates := make([]matching.Profile, 0, len(all))
	for _, p := range all {
		if p.ID == subject.ID {
			continue
		}
		byID[p.ID] = p
		candidates = append(candidates, toMatchingProfile(p))
	}

	ranked := matching.RankMatches(toMatchingProfile(subject), candidates)
	out := make([]Match, len(ranked))
	for i, r := range ranked {
		out[i] = Match{
			Profile:          byID[r.Profile.ID],
			MatchScore:       r.MatchScore,
			SharedInterests:  r.SharedInterests,
			SharedActivities: r.SharedActivities,
		}
	}
	s.logger.Debug("ranked matches", "profile_id", profileID, "candidates", len(candidates), "matches", len(out))
	return out, nil
}

// Connect sends a connection request from sender to receiver.
func (s *Service) Connect(ctx context.Context, senderID, receiverID string) (storage.Connection, error) {
	if senderID == "" || receiverID == "" {
		return storage.Connection{}, fmt.Errorf("sender_id and receiver_id are required: %w", ErrInvalid)
	}
	if senderID == receiverID {
		return storage.Connection{}, fmt.Errorf("cannot connect a profile to itself: %w", ErrInvalid)
	}
	for _, id := range []string{senderID, receiverID} {
		if _, err := s.store.GetProfile(ctx, id); err != nil {
			return storage.Connection{}, fmt.Errorf("loading profile %s: %w", id, err)
		}
	}
	c, err := s.store.CreateConnection(ctx, senderID, receiverID)
	if err != nil {
		return storage.Connection{}, err
	}
	s.logger.Info("connection requested", "connection_id", c.ID, "sender_id", senderID, "receiver_id", receiverID)
	return c, nil
}

// Respond accepts or declines a pending connection.
func (s *Service) Respond(ctx context.Context, connectionID, status string) (storage.Connection, error) {
	if status != storage.StatusAccepted && status != storage.StatusDeclined {
		return storage.Connection{}, fmt.Errorf("status must be %q or %q: %w", storage.StatusAccepted, storage.StatusDeclined, ErrInvalid)
	}
	cur, err := s.store.GetConnection(ctx, connectionID)
	if err != nil {
		return storage.Connection{}, err
	}
	if cur.Status != storage.StatusPending {
		return storage.Connection{}, fmt.Errorf("connection %s is %s: %w", connectionID, cur.Status, ErrInvalidTransition)
	}
	c, err := s.store.SetConnectionStatus(ctx, connectionID, storage.StatusPending, status)
	if errors.Is(err, storage.ErrNotFound) {
		// Answered concurrently between the read and the write.
		return storage.Connection{}, fmt.Errorf("connection %s: %w", connectionID, ErrInvalidTransition)
	}
	if err != nil {
		return storage.Connection{}, err
	}
	s.logger.Info("connection answered", "connection_id", c.ID, "status", status)
	return c, nil
}

// Friends returns the profiles on the other side of accepted connections.
func (s *Service) Friends(ctx context.Context, profileID string) ([]storage.Profile, error) {
	if _, err := s.store.GetProfile(ctx, profileID); err != nil {
		return nil, fmt.Errorf("loading profile %s: %w", profileID, err)
	}
	conns, err := s.store.ListAcceptedConnections(ctx, profileID)
	if err != nil {
		return nil, err
	}

	friends := []storage.Profile{}
	for _, c := range conns {
		other := c.ReceiverID
		if other == profileID {
			other = c.SenderID
		}
		p, err := s.store.GetProfile(ctx, other)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		friends = append(friends, p)
	}
	return friends, nil
}

func toMatchingProfile(p storage.Profile) matching.Profile {
	return matching.Profile{
		ID:         p.ID,
		Interests:  matching.NewTagSet(p.Interests...),
		Activities: matching.NewTagSet(p.Activities...),
	}
}
