package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/spec-kit/repair-desk/internal/domain"
)

func TestMonthlyTotals_GroupsAndSorts(t *testing.T) {
	cairo, err := time.LoadLocation("Africa/Cairo")
	require.NoError(t, err)

	rows := []domain.RepairedTicketCost{
		{TicketID: "1", EngineerID: "e1", EngineerName: "Omar", CommissionRate: 10, CreatedAt: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), TotalCost: 100},
		{TicketID: "2", EngineerID: "e1", EngineerName: "Omar", CommissionRate: 10, CreatedAt: time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC), TotalCost: 50.5},
		{TicketID: "3", EngineerID: "e2", EngineerName: "Ahmed", CommissionRate: 12.5, CreatedAt: time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC), TotalCost: 200},
		// 23:30 UTC on Feb 29 is already March 1 in Cairo.
		{TicketID: "4", EngineerID: "e2", EngineerName: "Ahmed", CommissionRate: 12.5, CreatedAt: time.Date(2024, 2, 29, 23, 30, 0, 0, time.UTC), TotalCost: 40},
		{TicketID: "5", EngineerID: "e2", EngineerName: "Ahmed", CommissionRate: 12.5, CreatedAt: time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC), TotalCost: 80},
		{TicketID: "6", EngineerID: "e3", EngineerName: "Zero", CommissionRate: 10, CreatedAt: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC), TotalCost: 0},
		{TicketID: "7", EngineerID: "", EngineerName: "", CommissionRate: 10, CreatedAt: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC), TotalCost: 10},
	}

	totals := MonthlyTotals(rows, cairo, "en")
	require.Len(t, totals, 3)

	assert.Equal(t, "2024-03", totals[0].Month)
	assert.Equal(t, "Ahmed", totals[0].EngineerName)
	assert.Equal(t, 240.0, totals[0].TotalCost)
	assert.Equal(t, 2, totals[0].TicketCount)
	assert.Equal(t, 30.0, totals[0].Commission)
	assert.Equal(t, "March 2024", totals[0].MonthLabel)

	assert.Equal(t, "2024-03", totals[1].Month)
	assert.Equal(t, "Omar", totals[1].EngineerName)
	assert.Equal(t, 150.5, totals[1].TotalCost)
	assert.Equal(t, 15.05, totals[1].Commission)

	assert.Equal(t, "2024-02", totals[2].Month)
	assert.Equal(t, 80.0, totals[2].TotalCost)
	assert.Equal(t, 1, totals[2].TicketCount)
}

func TestMonthlyTotals_Empty(t *testing.T) {
	assert.Empty(t, MonthlyTotals(nil, nil, "ar-EG"))
}

func TestMonthLabel(t *testing.T) {
	assert.Equal(t, "مارس 2024", MonthLabel(2024, time.March, language.MustParse("ar-EG")))
	assert.Equal(t, "December 2023", MonthLabel(2023, time.December, language.English))
}

func TestMonthRange(t *testing.T) {
	from, to, err := MonthRange("2024-01", "2024-03", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *from)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), *to)

	from, to, err = MonthRange("", "", time.UTC)
	require.NoError(t, err)
	assert.Nil(t, from)
	assert.Nil(t, to)

	_, _, err = MonthRange("March", "", time.UTC)
	assert.Error(t, err)
}

func TestPrinter_Money(t *testing.T) {
	p := NewPrinter("en", "EGP", time.UTC)
	assert.Equal(t, "1,234.50 EGP", p.Money(1234.5))
	assert.Equal(t, "0.00", NewPrinter("en", "", time.UTC).Money(0))
}

func TestPrinter_RenderTicket(t *testing.T) {
	engineer := "Karim"
	notes := "replaced <script>alert(1)</script> fuse"
	ticket := &domain.Ticket{
		Ref:              "MT-ABCD1234",
		CustomerName:     "Mona *Bold*",
		CustomerPhone:    "01000000000",
		CustomerAddress:  "Giza",
		DeviceType:       "Washer",
		FaultDescription: "Leaks water",
		Priority:         domain.TicketPriorityUrgent,
		Status:           domain.TicketStatusRepaired,
		EngineerName:     &engineer,
		RepairNotes:      &notes,
		CreatedAt:        time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	costs := []domain.MaintenanceCost{
		{Description: "Pump", Quantity: 1, UnitPrice: 1200},
		{Description: "Labour", Quantity: 2, UnitPrice: 17.25},
	}

	out, err := NewPrinter("en", "EGP", time.UTC).RenderTicket(ticket, costs)
	require.NoError(t, err)

	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, `dir="ltr"`)
	assert.Contains(t, out, "MT-ABCD1234")
	assert.Contains(t, out, "Mona *Bold*")
	assert.NotContains(t, out, "<em>Bold</em>")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "1,234.50 EGP")
	assert.Contains(t, out, "Karim")
	assert.Contains(t, out, "تم الإصلاح")

	arabic, err := NewPrinter("ar-EG", "EGP", time.UTC).RenderTicket(ticket, nil)
	require.NoError(t, err)
	assert.Contains(t, arabic, `dir="rtl"`)
	assert.Contains(t, arabic, "لا توجد تكاليف مسجلة.")
}
