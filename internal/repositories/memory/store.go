// Package memory is an in-process implementation of repositories.Store.
// Transactions are serialised and undo only their own writes on error, which
// gives the same single-writer guarantees the postgres store gets from row
// locks.
package memory

import (
	"context"
	"sync"

	"estatehub/internal/models"
	"estatehub/internal/repositories"
)

type state struct {
	txMu sync.Mutex // one transaction at a time
	mu   sync.RWMutex

	users         map[uint]models.User
	properties    map[uint]models.Property
	interests     map[uint]models.Interest
	bundles       map[uint]models.CreditBundle
	transactions  map[uint]models.Transaction
	notifications map[uint]models.Notification

	nextID uint
}

// Store implements repositories.Store. log is set on the Store handed to a
// transaction callback.
type Store struct {
	s   *state
	log *undoLog
}

var _ repositories.Store = (*Store)(nil)

func New() *Store {
	return &Store{s: &state{
		users:         map[uint]models.User{},
		properties:    map[uint]models.Property{},
		interests:     map[uint]models.Interest{},
		bundles:       map[uint]models.CreditBundle{},
		transactions:  map[uint]models.Transaction{},
		notifications: map[uint]models.Notification{},
	}}
}

func (m *Store) Users() repositories.UserRepository                 { return &userRepo{m.s, m.log} }
func (m *Store) Properties() repositories.PropertyRepository        { return &propertyRepo{m.s, m.log} }
func (m *Store) Interests() repositories.InterestRepository         { return &interestRepo{m.s, m.log} }
func (m *Store) Bundles() repositories.BundleRepository             { return &bundleRepo{m.s, m.log} }
func (m *Store) Ledger() repositories.LedgerRepository              { return &ledgerRepo{m.s, m.log} }
func (m *Store) Notifications() repositories.NotificationRepository { return &notificationRepo{m.s, m.log} }

func (m *Store) ExecuteInTransaction(ctx context.Context, fn func(repositories.Store) error) error {
	if m.log != nil {
		return fn(m)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	log := &undoLog{}
	if err := fn(&Store{s: m.s, log: log}); err != nil {
		log.rollback(m.s)
		return err
	}
	return nil
}

func (s *state) id() uint {
	s.nextID++
	return s.nextID
}

// undoLog holds the inverse of every write made inside one transaction.
// Writes made outside it are not recorded and survive a rollback. IDs are not
// reused, as with a database sequence.
type undoLog struct {
	ops []func()
}

// remember records the current value of m[id] so rollback can restore it.
// Must be called with mu held, before the write.
func remember[V any](l *undoLog, m map[uint]V, id uint) {
	if l == nil {
		return
	}
	prev, existed := m[id]
	l.ops = append(l.ops, func() {
		if existed {
			m[id] = prev
		} else {
			delete(m, id)
		}
	})
}

func (l *undoLog) rollback(s *state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(l.ops) - 1; i >= 0; i-- {
		l.ops[i]()
	}
	l.ops = nil
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
