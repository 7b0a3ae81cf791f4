package services

import (
	"context"

	"creatorfin/internal/amqp"
	"creatorfin/internal/core"
	"creatorfin/internal/youtube"
)

// YouTubeService fronts the token manager and syncer, adding cache
// invalidation and ledger events around their writes.
type YouTubeService struct {
	tokens      *youtube.TokenManager
	syncer      *youtube.Syncer
	invalidator TotalsInvalidator
	events      amqp.Publisher
}

func NewYouTubeService(tokens *youtube.TokenManager, syncer *youtube.Syncer, invalidator TotalsInvalidator, events amqp.Publisher) *YouTubeService {
	return &YouTubeService{
		tokens:      tokens,
		syncer:      syncer,
		invalidator: invalidator,
		events:      events,
	}
}

func (s *YouTubeService) AuthURL(userID string) (string, error) {
	return s.tokens.AuthURL(userID)
}

func (s *YouTubeService) HandleCallback(ctx context.Context, code, state string) (string, error) {
	userID, err := s.tokens.HandleCallback(ctx, code, state)
	if err != nil {
		return userID, err
	}
	publish(ctx, s.events, amqp.EventAccountConnected, userID, 1)
	return userID, nil
}

func (s *YouTubeService) Connect(ctx context.Context, userID, accessToken, refreshToken string, identity *core.AccountIdentity) error {
	if err := s.tokens.Connect(ctx, userID, accessToken, refreshToken, identity); err != nil {
		return err
	}
	publish(ctx, s.events, amqp.EventAccountConnected, userID, 1)
	return nil
}

// Sync ingests the trailing window. Years touched by inserted rows have
// their cached totals dropped, including when the sync failed part way.
func (s *YouTubeService) Sync(ctx context.Context, userID string) (youtube.SyncResult, error) {
	res, err := s.syncer.Sync(ctx, userID)
	if res.Synced > 0 {
		if s.invalidator != nil {
			s.invalidator.Invalidate(ctx, userID, res.From.Year(), res.To.Year())
		}
		publish(ctx, s.events, amqp.EventEarningsSynced, userID, res.Synced, res.From.Year(), res.To.Year())
	}
	return res, err
}

func (s *YouTubeService) Status(ctx context.Context, userID string) (youtube.Status, error) {
	if userID == "" {
		return youtube.Status{}, core.ErrUnauthenticated
	}
	return s.tokens.Status(ctx, userID)
}

func (s *YouTubeService) Disconnect(ctx context.Context, userID string) error {
	return s.tokens.Disconnect(ctx, userID)
}
