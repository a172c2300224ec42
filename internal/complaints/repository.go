package complaints

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for complaint storage
type Repository interface {
	Create(ctx context.Context, c *Complaint) (*Complaint, error)
	GetByTicket(ctx context.Context, ticket string) (*Complaint, error)
	FindByPhoneOrTicket(ctx context.Context, query string) (*Complaint, error)
	UpdateStatus(ctx context.Context, ticket, status string) (*Complaint, error)
	List(ctx context.Context, filter ListFilter) ([]*Complaint, error)
}

// InMemoryRepository keeps complaints in a map keyed by ticket number.
type InMemoryRepository struct {
	mu         sync.RWMutex
	complaints map[string]*Complaint
	now        func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		complaints: make(map[string]*Complaint),
		now:        time.Now,
	}
}

var _ Repository = (*InMemoryRepository)(nil)

// Create stores a copy of c.
func (r *InMemoryRepository) Create(ctx context.Context, c *Complaint) (*Complaint, error) {
	if strings.TrimSpace(c.TicketNumber) == "" {
		return nil, ErrMissingTicket
	}
	stored := *c
	stored.ID = uuid.New().String()
	if stored.Status == "" {
		stored.Status = StatusRegistered
	}
	stored.CreatedAt = r.now().UTC()
	stored.UpdatedAt = stored.CreatedAt

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.complaints[stored.TicketNumber]; exists {
		return nil, ErrDuplicateTicket
	}
	r.complaints[stored.TicketNumber] = &stored
	out := stored
	return &out, nil
}

// GetByTicket retrieves a complaint by ticket number.
func (r *InMemoryRepository) GetByTicket(ctx context.Context, ticket string) (*Complaint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.complaints[strings.ToUpper(strings.TrimSpace(ticket))]
	if !ok {
		return nil, ErrComplaintNotFound
	}
	out := *c
	return &out, nil
}

// FindByPhoneOrTicket resolves a ticket number, or the most recent
// complaint filed with a matching phone number.
func (r *InMemoryRepository) FindByPhoneOrTicket(ctx context.Context, query string) (*Complaint, error) {
	if isTicketQuery(query) {
		return r.GetByTicket(ctx, query)
	}
	key := phoneKey(query)
	if key == "" {
		return nil, ErrComplaintNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *Complaint
	for _, c := range r.complaints {
		if phoneKey(c.Phone) != key {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, ErrComplaintNotFound
	}
	out := *latest
	return &out, nil
}

// UpdateStatus sets the complaint's status. Last write wins.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, ticket, status string) (*Complaint, error) {
	status, err := NormalizeStatus(status)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.complaints[strings.ToUpper(strings.TrimSpace(ticket))]
	if !ok {
		return nil, ErrComplaintNotFound
	}
	c.Status = status
	c.UpdatedAt = r.now().UTC()
	out := *c
	return &out, nil
}

// List returns complaints newest first.
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Complaint, error) {
	r.mu.RLock()
	all := make([]*Complaint, 0, len(r.complaints))
	for _, c := range r.complaints {
		if filter.Status != "" && !strings.EqualFold(c.Status, filter.Status) {
			continue
		}
		cp := *c
		all = append(all, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if filter.Offset >= len(all) {
		return []*Complaint{}, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && len(all) > filter.Limit {
		all = all[:filter.Limit]
	}
	return all, nil
}
