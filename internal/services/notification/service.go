package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "estatehub/internal/errors"
	"estatehub/internal/models"
	"estatehub/internal/repositories"

	"go.uber.org/zap"
)

// Input is a notification to deliver to one user.
type Input struct {
	UserID   uint
	Title    string
	Message  string
	Type     string
	Metadata map[string]interface{}
}

// Publisher pushes a persisted notification to connected clients.
type Publisher interface {
	Publish(ctx context.Context, n *models.Notification) error
}

type Config struct {
	QueueSize    int
	Workers      int
	MaxAttempts  int
	RetryBackoff time.Duration
}

type Page struct {
	Items []models.Notification `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

// Dispatcher queues notifications and delivers them from a worker pool so
// that callers on the money path never wait on, or fail because of, delivery.
type Dispatcher struct {
	store     repositories.Store
	publisher Publisher
	config    Config
	metrics   MetricsCollector
	logger    *zap.Logger

	mu     sync.RWMutex
	queue  chan Input
	closed bool
	wg     sync.WaitGroup
	once   sync.Once
}

func NewDispatcher(store repositories.Store, publisher Publisher, config Config, metrics MetricsCollector, logger *zap.Logger) *Dispatcher {
	if store == nil {
		panic("store is required")
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 200 * time.Millisecond
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		store:     store,
		publisher: publisher,
		config:    config,
		metrics:   metrics,
		logger:    logger,
		queue:     make(chan Input, config.QueueSize),
	}
}

// Start launches the workers. They run until Stop closes the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	d.once.Do(func() {
		for i := 0; i < d.config.Workers; i++ {
			d.wg.Add(1)
			go d.worker(ctx)
		}
	})
}

// Stop refuses new notifications and waits for the queue to drain.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

// Send enqueues in. It never blocks: when the queue is full or the
// dispatcher is stopped the notification is dropped and logged.
func (d *Dispatcher) Send(_ context.Context, in Input) {
	if in.UserID == 0 {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(in, "dispatcher stopped")
		return
	}
	select {
	case d.queue <- in:
		d.metrics.RecordEnqueued(in.Type)
	default:
		d.drop(in, "queue full")
	}
}

func (d *Dispatcher) drop(in Input, reason string) {
	d.metrics.RecordDropped(in.Type)
	d.logger.Warn("notification dropped",
		zap.Uint("user_id", in.UserID),
		zap.String("type", in.Type),
		zap.String("reason", reason))
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for in := range d.queue {
		d.deliver(ctx, in)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, in Input) {
	n := &models.Notification{
		UserID:   in.UserID,
		Title:    in.Title,
		Message:  in.Message,
		Type:     in.Type,
		Metadata: models.JSON(in.Metadata),
	}

	if err := d.persist(ctx, n); err != nil {
		d.metrics.RecordDelivery(in.Type, "persist_failed")
		d.logger.Error("failed to persist notification",
			zap.Uint("user_id", in.UserID),
			zap.String("type", in.Type),
			zap.Error(err))
		return
	}

	if d.publisher == nil {
		d.metrics.RecordDelivery(in.Type, "stored")
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := d.publisher.Publish(pubCtx, n); err != nil {
		d.metrics.RecordDelivery(in.Type, "publish_failed")
		d.logger.Debug("realtime publish failed",
			zap.Uint("notification_id", n.ID),
			zap.Error(err))
		return
	}
	d.metrics.RecordDelivery(in.Type, "delivered")
}

// persist retries with linear backoff. Attempts outlive ctx cancellation so
// the queue can drain during shutdown; only the backoff waits are cut short.
func (d *Dispatcher) persist(ctx context.Context, n *models.Notification) error {
	var err error
	for attempt := 1; attempt <= d.config.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		err = d.store.Notifications().Create(attemptCtx, n)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == d.config.MaxAttempts {
			break
		}
		select {
		case <-time.After(time.Duration(attempt) * d.config.RetryBackoff):
		case <-ctx.Done():
		}
	}
	return fmt.Errorf("after %d attempts: %w", d.config.MaxAttempts, err)
}

func (d *Dispatcher) List(ctx context.Context, userID uint, unreadOnly bool, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	items, total, err := d.store.Notifications().ListByUser(ctx, userID, unreadOnly, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return &Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (d *Dispatcher) MarkRead(ctx context.Context, userID, id uint) error {
	if err := d.store.Notifications().MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return apperrors.ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}
