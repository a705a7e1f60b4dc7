package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"invoicedesk/internal/domain"
)

func TestRenderTemplate(t *testing.T) {
	tctx := TemplateContext{
		ClientName:    "Acme Ltd",
		InvoiceNumber: "2025-004",
		Amount:        1234.5,
		Currency:      domain.CurrencyGBP,
		Month:         time.March,
		Year:          2025,
		Now:           time.Date(2025, time.April, 2, 10, 0, 0, 0, time.UTC),
		VATNumber:     "GB123456789",
		ClientAddress: "1 High Street, London",
	}

	tests := []struct {
		name     string
		subject  string
		body     string
		wantSubj string
		wantBody string
	}{
		{
			name:     "substitutes all supported tokens",
			subject:  "Invoice {{invoiceNumber}} for {{monthYear}}",
			body:     "Dear {{clientName}},\nAmount due: {{invoiceAmount}}.\nSent {{currentDate}}.",
			wantSubj: "Invoice 2025-004 for March 2025",
			wantBody: "Dear Acme Ltd,\nAmount due: £1,234.50.\nSent 2 April 2025.",
		},
		{
			name:     "month and year tokens",
			subject:  "{{month}} {{year}}",
			body:     "VAT {{vatNumber}} at {{clientAddress}}",
			wantSubj: "March 2025",
			wantBody: "VAT GB123456789 at 1 High Street, London",
		},
		{
			name:     "unknown token renders empty, not literal",
			subject:  "Hello {{nope}}!",
			body:     "before {{alsoNope}} after",
			wantSubj: "Hello !",
			wantBody: "before  after",
		},
		{
			name:     "text without tokens is untouched",
			subject:  "Plain subject",
			body:     "No braces here, just {single} ones.",
			wantSubj: "Plain subject",
			wantBody: "No braces here, just {single} ones.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := &domain.EmailTemplate{Subject: tt.subject, Body: tt.body}
			subj, body := RenderTemplate(tmpl, tctx)
			assert.Equal(t, tt.wantSubj, subj)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestRenderTemplateZeroContext(t *testing.T) {
	tmpl := &domain.EmailTemplate{
		Subject: "{{clientName}}{{month}}{{year}}{{monthYear}}{{currentDate}}",
		Body:    "x{{vatNumber}}y",
	}
	subj, body := RenderTemplate(tmpl, TemplateContext{})
	assert.Equal(t, "", subj)
	assert.Equal(t, "xy", body)
}

func TestRenderTemplateValuesAreNotReExpanded(t *testing.T) {
	// A substituted value that itself looks like a token must come through
	// literally: substitution is a single pass.
	tmpl := &domain.EmailTemplate{Subject: "Dear {{clientName}}", Body: ""}
	subj, _ := RenderTemplate(tmpl, TemplateContext{ClientName: "{{invoiceAmount}}"})
	assert.Equal(t, "Dear {{invoiceAmount}}", subj)
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		cur  domain.Currency
		want string
	}{
		{"gbp grouping", 1234.5, domain.CurrencyGBP, "£1,234.50"},
		{"gbp small", 7, domain.CurrencyGBP, "£7.00"},
		{"gbp millions", 1234567.89, domain.CurrencyGBP, "£1,234,567.89"},
		{"eur grouping", 1234.5, domain.CurrencyEUR, "€1.234,50"},
		{"eur small", 0.99, domain.CurrencyEUR, "€0,99"},
		{"negative", -42.1, domain.CurrencyGBP, "-£42.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(tt.v, tt.cur))
		})
	}
}
