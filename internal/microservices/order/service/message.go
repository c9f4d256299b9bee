package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"cafeteria-storefront/internal/domain"
)

type MessageInput struct {
	CustomerName    string
	IsTakeaway      bool
	PickupTime      string
	Summary         string
	DiscountPercent int
	Total           decimal.Decimal
	Currency        string
}

// FormatSummary renders one "{qty}x {name} ({notes})" line per cart entry.
// The notes segment is omitted when empty.
func FormatSummary(lines []domain.CartLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		s := fmt.Sprintf("%dx %s", l.Quantity, l.Name)
		if n := strings.TrimSpace(l.Notes); n != "" {
			s += " (" + n + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}

func OrderType(isTakeaway bool) string {
	if isTakeaway {
		return "Takeaway"
	}
	return "Dine-in"
}

// FormatMessage builds the staff message in Telegram's legacy Markdown.
// Customer-supplied text is escaped so it cannot break the markup.
func FormatMessage(in MessageInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*New Order from %s*\n", escapeMarkdown(in.CustomerName))
	fmt.Fprintf(&b, "Order Type: %s\n", OrderType(in.IsTakeaway))
	fmt.Fprintf(&b, "Pickup Time: %s\n", escapeMarkdown(in.PickupTime))
	b.WriteString("\n*Order Details:*\n")
	b.WriteString(escapeMarkdown(in.Summary))
	b.WriteString("\n")
	if in.DiscountPercent > 0 {
		fmt.Fprintf(&b, "\nDiscount: %d%%", in.DiscountPercent)
	}
	fmt.Fprintf(&b, "\n*Total: %s%s*", in.Currency, in.Total.StringFixed(2))
	return b.String()
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

func escapeMarkdown(s string) string { return markdownEscaper.Replace(s) }
