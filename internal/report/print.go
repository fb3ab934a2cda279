package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/spec-kit/repair-desk/internal/domain"
)

// Printer renders printable ticket reports.
type Printer struct {
	md       goldmark.Markdown
	policy   *bluemonday.Policy
	numbers  *message.Printer
	tag      language.Tag
	currency string
	loc      *time.Location
}

// NewPrinter builds a printer for the given locale, currency code and time zone.
func NewPrinter(locale, currency string, loc *time.Location) *Printer {
	if loc == nil {
		loc = time.UTC
	}
	tag := parseLocale(locale)

	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			gmhtml.WithXHTML(),
		),
	)

	policy := bluemonday.UGCPolicy()

	return &Printer{
		md:       md,
		policy:   policy,
		numbers:  message.NewPrinter(tag),
		tag:      tag,
		currency: currency,
		loc:      loc,
	}
}

// Money formats an amount with locale digit grouping and two decimals.
func (p *Printer) Money(v float64) string {
	formatted := p.numbers.Sprint(number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	if p.currency == "" {
		return formatted
	}
	return formatted + " " + p.currency
}

// RenderTicket returns a standalone HTML document describing the ticket, its
// report notes and its cost lines.
func (p *Printer) RenderTicket(ticket *domain.Ticket, costs []domain.MaintenanceCost) (string, error) {
	var md strings.Builder

	fmt.Fprintf(&md, "# تقرير صيانة %s\n\n", escapeMarkdown(ticket.Ref))
	fmt.Fprintf(&md, "**التاريخ:** %s  \n", ticket.CreatedAt.In(p.loc).Format("2006-01-02 15:04"))
	fmt.Fprintf(&md, "**الحالة:** %s  \n", ticket.Status.Label())
	fmt.Fprintf(&md, "**الأولوية:** %s\n\n", priorityLabel(ticket.Priority))

	md.WriteString("## بيانات العميل\n\n")
	fmt.Fprintf(&md, "- **الاسم:** %s\n", escapeMarkdown(ticket.CustomerName))
	fmt.Fprintf(&md, "- **الهاتف:** %s\n", escapeMarkdown(ticket.CustomerPhone))
	if ticket.CustomerEmail != nil && *ticket.CustomerEmail != "" {
		fmt.Fprintf(&md, "- **البريد الإلكتروني:** %s\n", escapeMarkdown(*ticket.CustomerEmail))
	}
	fmt.Fprintf(&md, "- **العنوان:** %s\n\n", escapeMarkdown(ticket.CustomerAddress))

	md.WriteString("## بيانات الجهاز\n\n")
	fmt.Fprintf(&md, "- **نوع الجهاز:** %s\n", escapeMarkdown(ticket.DeviceType))
	if ticket.SerialNumber != nil && *ticket.SerialNumber != "" {
		fmt.Fprintf(&md, "- **الرقم التسلسلي:** %s\n", escapeMarkdown(*ticket.SerialNumber))
	}
	engineer := "غير معين"
	if ticket.EngineerName != nil && *ticket.EngineerName != "" {
		engineer = *ticket.EngineerName
	}
	fmt.Fprintf(&md, "- **المهندس:** %s\n\n", escapeMarkdown(engineer))

	md.WriteString("## وصف العطل\n\n")
	md.WriteString(escapeMarkdown(ticket.FaultDescription))
	md.WriteString("\n\n")

	writeNotes(&md, "الفحص الفني", ticket.TechnicalInspectionNotes)
	writeNotes(&md, "ملاحظات الإصلاح", ticket.RepairNotes)
	writeNotes(&md, "ملاحظات التسليم", ticket.HandoverNotes)

	md.WriteString("## تكاليف الصيانة\n\n")
	if len(costs) == 0 {
		md.WriteString("لا توجد تكاليف مسجلة.\n\n")
	} else {
		md.WriteString("| البيان | الكمية | سعر الوحدة | الإجمالي |\n")
		md.WriteString("| --- | ---: | ---: | ---: |\n")
		for _, item := range costs {
			fmt.Fprintf(&md, "| %s | %s | %s | %s |\n",
				escapeMarkdown(item.Description),
				p.numbers.Sprint(number.Decimal(item.Quantity, number.MaxFractionDigits(2))),
				p.Money(item.UnitPrice),
				p.Money(domain.RoundMoney(item.LineTotal())),
			)
		}
		md.WriteString("\n")
	}
	fmt.Fprintf(&md, "**إجمالي التكلفة:** %s\n", p.Money(domain.TotalCost(costs)))

	var body bytes.Buffer
	if err := p.md.Convert([]byte(md.String()), &body); err != nil {
		return "", fmt.Errorf("failed to render ticket report: %w", err)
	}

	return p.document(ticket.Ref, p.policy.Sanitize(body.String())), nil
}

func (p *Printer) document(title, body string) string {
	dir := "ltr"
	if base, _ := p.tag.Base(); base.String() == "ar" {
		dir = "rtl"
	}
	var doc strings.Builder
	doc.WriteString("<!DOCTYPE html>\n")
	fmt.Fprintf(&doc, "<html lang=%q dir=%q>\n<head>\n<meta charset=\"utf-8\">\n", p.tag.String(), dir)
	fmt.Fprintf(&doc, "<title>%s</title>\n", html.EscapeString(title))
	doc.WriteString("<style>body{font-family:sans-serif;margin:2em}table{border-collapse:collapse;width:100%}td,th{border:1px solid #999;padding:4px 8px}@media print{body{margin:0}}</style>\n")
	doc.WriteString("</head>\n<body>\n")
	doc.WriteString(body)
	doc.WriteString("</body>\n</html>\n")
	return doc.String()
}

func writeNotes(md *strings.Builder, heading string, notes *string) {
	if notes == nil || strings.TrimSpace(*notes) == "" {
		return
	}
	fmt.Fprintf(md, "## %s\n\n%s\n\n", heading, escapeMarkdown(*notes))
}

func priorityLabel(p domain.TicketPriority) string {
	if p == domain.TicketPriorityUrgent {
		return "عاجل"
	}
	return "عادي"
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"#", `\#`,
	"|", `\|`,
	"<", "&lt;",
	">", "&gt;",
)

// escapeMarkdown neutralizes markdown and HTML syntax in free text.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(strings.TrimSpace(s))
}
