// Package memory implements the repository interfaces on in-process maps. It
// backs the service when no Postgres DSN is configured and is the fixture
// store for service and handler tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/repair-desk/internal/domain"
	"github.com/spec-kit/repair-desk/internal/repository"
)

// ErrDuplicateEmail mirrors the staff_members email unique constraint.
var ErrDuplicateEmail = errors.New("staff email already exists")

// Store holds every table behind a single lock.
type Store struct {
	mu        sync.RWMutex
	now       func() time.Time
	tickets   map[string]domain.Ticket
	engineers map[string]domain.Engineer
	staff     map[string]domain.StaffMember
	costs     []domain.MaintenanceCost
	history   []domain.TicketHistory
	// insertion order, newest last; breaks created_at ties
	ticketOrder   []string
	engineerOrder []string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:       time.Now,
		tickets:   make(map[string]domain.Ticket),
		engineers: make(map[string]domain.Engineer),
		staff:     make(map[string]domain.StaffMember),
	}
}

// Tickets returns a TicketRepository view.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Engineers returns an EngineerRepository view.
func (s *Store) Engineers() repository.EngineerRepository { return engineerRepo{s} }

// Costs returns a CostRepository view.
func (s *Store) Costs() repository.CostRepository { return costRepo{s} }

// Staff returns a StaffRepository view.
func (s *Store) Staff() repository.StaffRepository { return staffRepo{s} }

// History returns a TicketHistoryRepository view.
func (s *Store) History() repository.TicketHistoryRepository { return historyRepo{s} }

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket.ID = uuid.NewString()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = r.s.now()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	r.s.tickets[ticket.ID] = *ticket
	r.s.ticketOrder = append(r.s.ticketOrder, ticket.ID)
	return nil
}

func (r ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if ticket.AssignedEngineerID != nil {
		if _, ok := r.s.engineers[*ticket.AssignedEngineerID]; !ok {
			return errors.New("assigned engineer does not exist")
		}
	}
	ticket.Ref = existing.Ref
	ticket.CreatedAt = existing.CreatedAt
	ticket.UpdatedAt = r.s.now()
	stored := *ticket
	stored.EngineerName = nil
	r.s.tickets[ticket.ID] = stored
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	r.s.joinEngineer(&ticket)
	return &ticket, nil
}

func (r ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.Ticket
	for i := len(r.s.ticketOrder) - 1; i >= 0; i-- {
		ticket := r.s.tickets[r.s.ticketOrder[i]]
		if !matchesFilter(ticket, filter) {
			continue
		}
		r.s.joinEngineer(&ticket)
		result = append(result, ticket)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	limit := filter.Limit
	switch {
	case limit == 0:
		limit = repository.DefaultListLimit
	case limit < 0:
		limit = len(result)
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return nil, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

func (r ticketRepo) ListRepairedCosts(_ context.Context, from, to *time.Time) ([]domain.RepairedTicketCost, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	totals := make(map[string]float64)
	for _, item := range r.s.costs {
		totals[item.TicketID] += item.LineTotal()
	}

	var result []domain.RepairedTicketCost
	for i := len(r.s.ticketOrder) - 1; i >= 0; i-- {
		ticket := r.s.tickets[r.s.ticketOrder[i]]
		if ticket.Status != domain.TicketStatusRepaired || ticket.AssignedEngineerID == nil {
			continue
		}
		if from != nil && ticket.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && !ticket.CreatedAt.Before(*to) {
			continue
		}
		engineer, ok := r.s.engineers[*ticket.AssignedEngineerID]
		if !ok || totals[ticket.ID] <= 0 {
			continue
		}
		result = append(result, domain.RepairedTicketCost{
			TicketID:       ticket.ID,
			EngineerID:     engineer.ID,
			EngineerName:   engineer.Name,
			CommissionRate: engineer.CommissionRate,
			CreatedAt:      ticket.CreatedAt,
			TotalCost:      totals[ticket.ID],
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) joinEngineer(ticket *domain.Ticket) {
	ticket.EngineerName = nil
	if ticket.AssignedEngineerID == nil {
		return
	}
	if engineer, ok := s.engineers[*ticket.AssignedEngineerID]; ok {
		name := engineer.Name
		ticket.EngineerName = &name
	}
}

func matchesFilter(ticket domain.Ticket, filter repository.TicketFilter) bool {
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
		return false
	}
	if filter.EngineerID != nil && (ticket.AssignedEngineerID == nil || *ticket.AssignedEngineerID != *filter.EngineerID) {
		return false
	}
	if filter.CustomerEmail != nil {
		if ticket.CustomerEmail == nil || !strings.EqualFold(*ticket.CustomerEmail, strings.TrimSpace(*filter.CustomerEmail)) {
			return false
		}
	}
	if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && !ticket.CreatedAt.Before(*filter.CreatedTo) {
		return false
	}
	if filter.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		if term != "" &&
			!strings.Contains(strings.ToLower(ticket.Ref), term) &&
			!strings.Contains(strings.ToLower(ticket.CustomerName), term) &&
			!strings.Contains(ticket.CustomerPhone, term) &&
			!strings.Contains(strings.ToLower(ticket.DeviceType), term) {
			return false
		}
	}
	return true
}

func containsStatus(list []domain.TicketStatus, v domain.TicketStatus) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, v domain.TicketPriority) bool {
	for _, p := range list {
		if p == v {
			return true
		}
	}
	return false
}

type engineerRepo struct{ s *Store }

func (r engineerRepo) Create(_ context.Context, engineer *domain.Engineer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	engineer.ID = uuid.NewString()
	engineer.CreatedAt = r.s.now()
	engineer.UpdatedAt = engineer.CreatedAt
	r.s.engineers[engineer.ID] = *engineer
	r.s.engineerOrder = append(r.s.engineerOrder, engineer.ID)
	return nil
}

func (r engineerRepo) Update(_ context.Context, engineer *domain.Engineer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.engineers[engineer.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	engineer.CreatedAt = existing.CreatedAt
	engineer.UpdatedAt = r.s.now()
	r.s.engineers[engineer.ID] = *engineer
	return nil
}

func (r engineerRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.engineers[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.engineers, id)
	r.s.engineerOrder = removeID(r.s.engineerOrder, id)
	for key, ticket := range r.s.tickets {
		if ticket.AssignedEngineerID != nil && *ticket.AssignedEngineerID == id {
			ticket.AssignedEngineerID = nil
			r.s.tickets[key] = ticket
		}
	}
	return nil
}

func (r engineerRepo) GetByID(_ context.Context, id string) (*domain.Engineer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	engineer, ok := r.s.engineers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &engineer, nil
}

func (r engineerRepo) List(_ context.Context, order repository.EngineerOrder) ([]domain.Engineer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make([]domain.Engineer, 0, len(r.s.engineers))
	for i := len(r.s.engineerOrder) - 1; i >= 0; i-- {
		result = append(result, r.s.engineers[r.s.engineerOrder[i]])
	}
	sort.SliceStable(result, func(i, j int) bool {
		if order == repository.EngineerOrderName {
			return result[i].Name < result[j].Name
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

type costRepo struct{ s *Store }

func (r costRepo) Create(_ context.Context, item *domain.MaintenanceCost) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[item.TicketID]; !ok {
		return errors.New("ticket does not exist")
	}
	item.ID = uuid.NewString()
	item.CreatedAt = r.s.now()
	r.s.costs = append(r.s.costs, *item)
	return nil
}

func (r costRepo) Delete(_ context.Context, ticketID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, item := range r.s.costs {
		if item.ID == id && item.TicketID == ticketID {
			r.s.costs = append(r.s.costs[:i], r.s.costs[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r costRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.MaintenanceCost, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.MaintenanceCost
	for _, item := range r.s.costs {
		if item.TicketID == ticketID {
			result = append(result, item)
		}
	}
	return result, nil
}

type staffRepo struct{ s *Store }

func (r staffRepo) Create(_ context.Context, staff *domain.StaffMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.staff {
		if strings.EqualFold(existing.Email, staff.Email) {
			return ErrDuplicateEmail
		}
	}
	staff.ID = uuid.NewString()
	staff.CreatedAt = r.s.now()
	staff.UpdatedAt = staff.CreatedAt
	r.s.staff[staff.ID] = *staff
	return nil
}

func (r staffRepo) Update(_ context.Context, staff *domain.StaffMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.staff[staff.ID]; !ok {
		return pgx.ErrNoRows
	}
	staff.UpdatedAt = r.s.now()
	r.s.staff[staff.ID] = *staff
	return nil
}

func (r staffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	staff, ok := r.s.staff[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &staff, nil
}

func (r staffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, staff := range r.s.staff {
		if strings.EqualFold(staff.Email, email) {
			found := staff
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r staffRepo) List(_ context.Context) ([]domain.StaffMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make([]domain.StaffMember, 0, len(r.s.staff))
	for _, staff := range r.s.staff {
		result = append(result, staff)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

type historyRepo struct{ s *Store }

func (r historyRepo) Create(_ context.Context, history *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	history.ID = uuid.NewString()
	history.CreatedAt = r.s.now()
	r.s.history = append(r.s.history, *history)
	return nil
}

func (r historyRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.TicketHistory
	for _, entry := range r.s.history {
		if entry.TicketID != ticketID {
			continue
		}
		entry.ChangedByName = nil
		if entry.ChangedByID != nil {
			if staff, ok := r.s.staff[*entry.ChangedByID]; ok {
				name := staff.Name
				entry.ChangedByName = &name
			}
		}
		result = append(result, entry)
	}
	return result, nil
}
