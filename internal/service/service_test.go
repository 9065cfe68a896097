package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"atelier/internal/notifications"
	"atelier/internal/repository"
	"atelier/internal/testutil"

	"gorm.io/gorm"
)

var testFee = Fee{AmountCents: 500, Currency: "USD"}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (p *recordingPublisher) PublishEvent(_ context.Context, evt notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db         *gorm.DB
	store      *repository.Store
	pub        *recordingPublisher
	posts      *PostService
	payments   *PaymentService
	moderation *ModerationService
	votes      *VoteService
	comments   *CommentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	store := repository.NewStore(db)
	pub := &recordingPublisher{}
	return &fixture{
		db:         db,
		store:      store,
		pub:        pub,
		posts:      NewPostService(store, pub, testFee, 48*time.Hour),
		payments:   NewPaymentService(store, pub, testFee, 5*time.Second),
		moderation: NewModerationService(store, pub),
		votes:      NewVoteService(store, pub),
		comments:   NewCommentService(store, pub),
	}
}
