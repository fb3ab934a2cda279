package memory

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repair-desk/internal/domain"
	"github.com/spec-kit/repair-desk/internal/repository"
)

func strPtr(s string) *string { return &s }

func seedTicket(t *testing.T, store *Store, ref string, createdAt time.Time) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		Ref:              ref,
		CustomerName:     "Mona " + ref,
		CustomerPhone:    "01000000000",
		CustomerEmail:    strPtr("mona@example.com"),
		CustomerAddress:  "Cairo",
		DeviceType:       "laser",
		FaultDescription: "no power",
		Priority:         domain.TicketPriorityNormal,
		Status:           domain.TicketStatusOpen,
		CreatedAt:        createdAt,
	}
	require.NoError(t, store.Tickets().Create(context.Background(), ticket))
	return ticket
}

func TestTickets_ListNewestFirstWithFilters(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	first := seedTicket(t, store, "MT-1", base)
	second := seedTicket(t, store, "MT-2", base.Add(time.Hour))
	second.Priority = domain.TicketPriorityUrgent
	require.NoError(t, store.Tickets().Update(ctx, second))

	all, err := store.Tickets().List(ctx, repository.TicketFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	urgent, err := store.Tickets().List(ctx, repository.TicketFilter{Priorities: []domain.TicketPriority{domain.TicketPriorityUrgent}})
	require.NoError(t, err)
	require.Len(t, urgent, 1)
	assert.Equal(t, "MT-2", urgent[0].Ref)

	search, err := store.Tickets().List(ctx, repository.TicketFilter{SearchTerm: strPtr("mt-1")})
	require.NoError(t, err)
	require.Len(t, search, 1)

	paged, err := store.Tickets().List(ctx, repository.TicketFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, first.ID, paged[0].ID)
}

func TestEngineers_DeleteUnassignsTickets(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	engineer := &domain.Engineer{Name: "Karim", CommissionRate: 10}
	require.NoError(t, store.Engineers().Create(ctx, engineer))

	ticket := seedTicket(t, store, "MT-9", time.Now())
	ticket.AssignedEngineerID = &engineer.ID
	require.NoError(t, store.Tickets().Update(ctx, ticket))

	loaded, err := store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.EngineerName)
	assert.Equal(t, "Karim", *loaded.EngineerName)

	require.NoError(t, store.Engineers().Delete(ctx, engineer.ID))
	loaded, err = store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.AssignedEngineerID)
	assert.Nil(t, loaded.EngineerName)

	assert.ErrorIs(t, store.Engineers().Delete(ctx, engineer.ID), pgx.ErrNoRows)
}

func TestCosts_DeleteScopedToTicket(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	a := seedTicket(t, store, "MT-A", time.Now())
	b := seedTicket(t, store, "MT-B", time.Now())

	item := &domain.MaintenanceCost{TicketID: a.ID, Description: "fan", Quantity: 1, UnitPrice: 50}
	require.NoError(t, store.Costs().Create(ctx, item))

	assert.ErrorIs(t, store.Costs().Delete(ctx, b.ID, item.ID), pgx.ErrNoRows)
	require.NoError(t, store.Costs().Delete(ctx, a.ID, item.ID))

	items, err := store.Costs().ListByTicket(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestTickets_ListRepairedCosts(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	engineer := &domain.Engineer{Name: "Hany", CommissionRate: 5}
	require.NoError(t, store.Engineers().Create(ctx, engineer))

	repaired := seedTicket(t, store, "MT-R", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
	repaired.Status = domain.TicketStatusRepaired
	repaired.AssignedEngineerID = &engineer.ID
	require.NoError(t, store.Tickets().Update(ctx, repaired))
	require.NoError(t, store.Costs().Create(ctx, &domain.MaintenanceCost{TicketID: repaired.ID, Description: "board", Quantity: 2, UnitPrice: 100}))

	free := seedTicket(t, store, "MT-F", time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC))
	free.Status = domain.TicketStatusRepaired
	free.AssignedEngineerID = &engineer.ID
	require.NoError(t, store.Tickets().Update(ctx, free))

	open := seedTicket(t, store, "MT-O", time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.Costs().Create(ctx, &domain.MaintenanceCost{TicketID: open.ID, Description: "x", Quantity: 1, UnitPrice: 10}))

	rows, err := store.Tickets().ListRepairedCosts(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, repaired.ID, rows[0].TicketID)
	assert.Equal(t, 200.0, rows[0].TotalCost)
	assert.Equal(t, "Hany", rows[0].EngineerName)

	to := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rows, err = store.Tickets().ListRepairedCosts(ctx, nil, &to)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStaff_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Staff().Create(ctx, &domain.StaffMember{Name: "A", Email: "a@shop.test", Role: domain.StaffRoleAdmin, Active: true}))
	err := store.Staff().Create(ctx, &domain.StaffMember{Name: "B", Email: "A@shop.test", Role: domain.StaffRoleStaff})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	found, err := store.Staff().GetByEmail(ctx, "A@SHOP.TEST")
	require.NoError(t, err)
	assert.Equal(t, "A", found.Name)
}
