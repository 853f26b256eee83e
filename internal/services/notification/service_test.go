package notification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "estatehub/internal/errors"
	"estatehub/internal/models"
	"estatehub/internal/repositories"
	"estatehub/internal/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu    sync.Mutex
	items []*models.Notification
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, n *models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, n)
	return p.err
}

// flakyStore fails the first failures notification writes.
type flakyStore struct {
	*memory.Store
	failures int32
	calls    int32
}

func (s *flakyStore) Notifications() repositories.NotificationRepository {
	return &flakyNotifications{NotificationRepository: s.Store.Notifications(), s: s}
}

type flakyNotifications struct {
	repositories.NotificationRepository
	s *flakyStore
}

func (f *flakyNotifications) Create(ctx context.Context, n *models.Notification) error {
	if atomic.AddInt32(&f.s.calls, 1) <= f.s.failures {
		return errors.New("connection reset")
	}
	return f.NotificationRepository.Create(ctx, n)
}

func TestDispatcher_PersistsAndPublishes(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	d := NewDispatcher(store, pub, Config{Workers: 2}, nil, nil)
	d.Start(context.Background())

	for i := 0; i < 5; i++ {
		d.Send(context.Background(), Input{UserID: 7, Title: "Credits added", Type: models.NotificationCreditsAdded})
	}
	d.Stop()

	page, err := d.List(context.Background(), 7, false, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	assert.Len(t, pub.items, 5)
}

func TestDispatcher_RetriesPersistence(t *testing.T) {
	store := &flakyStore{Store: memory.New(), failures: 2}
	d := NewDispatcher(store, nil, Config{Workers: 1, RetryBackoff: time.Millisecond}, nil, nil)
	d.Start(context.Background())

	d.Send(context.Background(), Input{UserID: 1, Title: "Hello"})
	d.Stop()

	assert.EqualValues(t, 3, atomic.LoadInt32(&store.calls))
	items, total, err := store.Store.Notifications().ListByUser(context.Background(), 1, false, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Hello", items[0].Title)
}

func TestDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	store := &flakyStore{Store: memory.New(), failures: 10}
	pub := &recordingPublisher{}
	d := NewDispatcher(store, pub, Config{Workers: 1, MaxAttempts: 3, RetryBackoff: time.Millisecond}, nil, nil)
	d.Start(context.Background())

	d.Send(context.Background(), Input{UserID: 1, Title: "Hello"})
	d.Stop()

	assert.EqualValues(t, 3, atomic.LoadInt32(&store.calls))
	assert.Empty(t, pub.items)
}

func TestDispatcher_SendNeverBlocks(t *testing.T) {
	d := NewDispatcher(memory.New(), nil, Config{QueueSize: 1, Workers: 1}, nil, nil)

	// Not started: the queue holds one item and the rest are dropped.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Send(context.Background(), Input{UserID: 1, Title: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a full queue")
	}

	d.Stop()
	d.Send(context.Background(), Input{UserID: 1, Title: "after stop"})
}

func TestDispatcher_PublishFailureKeepsNotification(t *testing.T) {
	store := memory.New()
	d := NewDispatcher(store, &recordingPublisher{err: errors.New("no subscribers")}, Config{}, nil, nil)
	d.Start(context.Background())
	d.Send(context.Background(), Input{UserID: 2, Title: "Unlocked"})
	d.Stop()

	page, err := d.List(context.Background(), 2, true, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func TestDispatcher_MarkRead(t *testing.T) {
	store := memory.New()
	n := &models.Notification{UserID: 3, Title: "t"}
	require.NoError(t, store.Notifications().Create(context.Background(), n))
	d := NewDispatcher(store, nil, Config{}, nil, nil)

	assert.ErrorIs(t, d.MarkRead(context.Background(), 4, n.ID), apperrors.ErrNotificationNotFound)
	require.NoError(t, d.MarkRead(context.Background(), 3, n.ID))

	page, err := d.List(context.Background(), 3, true, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, page.Total)
}
