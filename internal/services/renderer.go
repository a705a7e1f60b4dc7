package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"invoicedesk/internal/domain"
)

// TemplateContext supplies the values for the fixed placeholder set. All
// fields are optional; an absent value renders as an empty string.
type TemplateContext struct {
	ClientName    string
	InvoiceNumber string
	Amount        float64
	Currency      domain.Currency
	Month         time.Month
	Year          int
	Now           time.Time
	VATNumber     string
	ClientAddress string
}

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// templateVars maps each supported placeholder to a pure formatter. A single
// map keeps substitutions order-independent: one pass over the text, no
// chained replaces that could expand each other's output.
var templateVars = map[string]func(TemplateContext) string{
	"clientName":    func(c TemplateContext) string { return c.ClientName },
	"invoiceNumber": func(c TemplateContext) string { return c.InvoiceNumber },
	"invoiceAmount": func(c TemplateContext) string { return FormatAmount(c.Amount, c.Currency) },
	"month": func(c TemplateContext) string {
		if c.Month == 0 {
			return ""
		}
		return c.Month.String()
	},
	"year": func(c TemplateContext) string {
		if c.Year == 0 {
			return ""
		}
		return strconv.Itoa(c.Year)
	},
	"monthYear": func(c TemplateContext) string {
		if c.Month == 0 || c.Year == 0 {
			return ""
		}
		return c.Month.String() + " " + strconv.Itoa(c.Year)
	},
	"currentDate": func(c TemplateContext) string {
		if c.Now.IsZero() {
			return ""
		}
		return c.Now.Format("2 January 2006")
	},
	"vatNumber":     func(c TemplateContext) string { return c.VATNumber },
	"clientAddress": func(c TemplateContext) string { return c.ClientAddress },
}

// RenderTemplate substitutes the fixed {{name}} token set into the subject
// and body. Unknown tokens render as empty strings, never as the literal
// token and never as an error. Rendering is pure.
func RenderTemplate(tmpl *domain.EmailTemplate, tctx TemplateContext) (subject, body string) {
	return renderText(tmpl.Subject, tctx), renderText(tmpl.Body, tctx)
}

func renderText(text string, tctx TemplateContext) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(token string) string {
		name := token[2 : len(token)-2]
		if format, ok := templateVars[name]; ok {
			return format(tctx)
		}
		return ""
	})
}

// FormatAmount renders a monetary amount with the currency's symbol and
// digit grouping: GBP as £1,234.56, EUR (and anything else) as €1.234,56.
func FormatAmount(v float64, cur domain.Currency) string {
	neg := v < 0
	if neg {
		v = -v
	}
	fixed := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	symbol, groupSep, decimalSep := "€", ".", ","
	if cur == domain.CurrencyGBP {
		symbol, groupSep, decimalSep = "£", ",", "."
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(symbol)
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(groupSep)
		}
		b.WriteRune(digit)
	}
	b.WriteString(decimalSep)
	b.WriteString(fracPart)
	return b.String()
}
