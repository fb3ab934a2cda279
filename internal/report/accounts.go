package report

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/spec-kit/repair-desk/internal/domain"
)

var arabicMonths = [...]string{
	"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو",
	"يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر",
}

// MonthlyTotals groups repaired tickets by engineer and calendar month in loc.
// Rows without an engineer or with a non-positive cost are skipped. The result
// is ordered by month descending, then engineer name in locale collation order.
func MonthlyTotals(rows []domain.RepairedTicketCost, loc *time.Location, locale string) []domain.EngineerMonthlyTotal {
	if loc == nil {
		loc = time.UTC
	}
	tag := parseLocale(locale)

	type groupKey struct{ engineerID, month string }
	groups := make(map[groupKey]*domain.EngineerMonthlyTotal)
	order := make([]groupKey, 0)

	for _, row := range rows {
		if row.EngineerID == "" || row.TotalCost <= 0 {
			continue
		}
		local := row.CreatedAt.In(loc)
		key := groupKey{engineerID: row.EngineerID, month: local.Format("2006-01")}
		total, ok := groups[key]
		if !ok {
			total = &domain.EngineerMonthlyTotal{
				EngineerID:     row.EngineerID,
				EngineerName:   row.EngineerName,
				Month:          key.month,
				MonthLabel:     MonthLabel(local.Year(), local.Month(), tag),
				CommissionRate: row.CommissionRate,
			}
			groups[key] = total
			order = append(order, key)
		}
		total.TotalCost += row.TotalCost
		total.TicketCount++
	}

	result := make([]domain.EngineerMonthlyTotal, 0, len(order))
	for _, key := range order {
		total := groups[key]
		total.TotalCost = domain.RoundMoney(total.TotalCost)
		total.Commission = Commission(total.TotalCost, total.CommissionRate)
		result = append(result, *total)
	}

	collator := collate.New(tag, collate.IgnoreCase)
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Month != result[j].Month {
			return result[i].Month > result[j].Month
		}
		return collator.CompareString(result[i].EngineerName, result[j].EngineerName) < 0
	})
	return result
}

// Commission returns total * rate / 100 rounded to cents.
func Commission(total, rate float64) float64 {
	return domain.RoundMoney(total * rate / 100)
}

// MonthLabel renders a display month such as "مارس 2024" or "March 2024".
func MonthLabel(year int, month time.Month, tag language.Tag) string {
	base, _ := tag.Base()
	if base.String() == "ar" {
		return arabicMonths[month-1] + " " + strconv.Itoa(year)
	}
	return month.String() + " " + strconv.Itoa(year)
}

// MonthRange converts optional YYYY-MM bounds into a half-open [from, to) range
// in loc. Either bound may be empty.
func MonthRange(from, to string, loc *time.Location) (*time.Time, *time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	var start, end *time.Time
	if strings.TrimSpace(from) != "" {
		parsed, err := time.ParseInLocation("2006-01", strings.TrimSpace(from), loc)
		if err != nil {
			return nil, nil, err
		}
		start = &parsed
	}
	if strings.TrimSpace(to) != "" {
		parsed, err := time.ParseInLocation("2006-01", strings.TrimSpace(to), loc)
		if err != nil {
			return nil, nil, err
		}
		next := parsed.AddDate(0, 1, 0)
		end = &next
	}
	return start, end, nil
}

func parseLocale(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	return tag
}
