package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"estatehub/internal/models"
	"estatehub/internal/repositories"
)

type propertyRepo struct {
	s   *state
	log *undoLog
}

func (r *propertyRepo) Create(_ context.Context, p *models.Property) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	p.ID = r.s.id()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Status == "" {
		p.Status = models.PropertyStatusActive
	}
	remember(r.log, r.s.properties, p.ID)
	r.s.properties[p.ID] = *p
	return nil
}

func (r *propertyRepo) GetByID(_ context.Context, id uint) (*models.Property, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.properties[id]
	if !ok {
		return nil, repositories.ErrPropertyNotFound
	}
	return &p, nil
}

func (r *propertyRepo) List(_ context.Context, f repositories.PropertyFilter) ([]models.Property, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.Property
	for _, p := range r.s.properties {
		if f.AgentID != 0 && p.AgentID != f.AgentID {
			continue
		}
		if f.Location != "" && !strings.Contains(strings.ToLower(p.Location), strings.ToLower(f.Location)) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, f.Limit, f.Offset), int64(len(out)), nil
}

type interestRepo struct {
	s   *state
	log *undoLog
}

func (r *interestRepo) Create(_ context.Context, in *models.Interest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.interests {
		if existing.PropertyID == in.PropertyID && existing.SeekerID == in.SeekerID {
			return repositories.ErrDuplicateInterest
		}
	}
	now := time.Now()
	in.ID = r.s.id()
	in.CreatedAt, in.UpdatedAt = now, now
	if in.Status == "" {
		in.Status = models.InterestStatusPending
	}
	stored := *in
	stored.Property, stored.Seeker = nil, nil
	remember(r.log, r.s.interests, in.ID)
	r.s.interests[in.ID] = stored
	return nil
}

// withRelations must be called with mu held.
func (r *interestRepo) withRelations(in models.Interest) models.Interest {
	if p, ok := r.s.properties[in.PropertyID]; ok {
		in.Property = &p
	}
	if u, ok := r.s.users[in.SeekerID]; ok {
		in.Seeker = &u
	}
	return in
}

func (r *interestRepo) GetByID(_ context.Context, id uint) (*models.Interest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	in, ok := r.s.interests[id]
	if !ok {
		return nil, repositories.ErrInterestNotFound
	}
	in = r.withRelations(in)
	return &in, nil
}

func (r *interestRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.Interest, error) {
	in, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Property == nil {
		return nil, repositories.ErrPropertyNotFound
	}
	return in, nil
}

func (r *interestRepo) MarkUnlocked(_ context.Context, id uint, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	in, ok := r.s.interests[id]
	if !ok {
		return repositories.ErrInterestNotFound
	}
	in.Unlocked = true
	in.Status = models.InterestStatusContacted
	in.UnlockedAt = &at
	in.UpdatedAt = at
	remember(r.log, r.s.interests, id)
	r.s.interests[id] = in
	return nil
}

func (r *interestRepo) ListByAgent(_ context.Context, agentID uint) ([]models.Interest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.Interest
	for _, in := range r.s.interests {
		if p, ok := r.s.properties[in.PropertyID]; ok && p.AgentID == agentID {
			out = append(out, r.withRelations(in))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *interestRepo) ListBySeeker(_ context.Context, seekerID uint) ([]models.Interest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.Interest
	for _, in := range r.s.interests {
		if in.SeekerID == seekerID {
			in = r.withRelations(in)
			in.Seeker = nil
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
