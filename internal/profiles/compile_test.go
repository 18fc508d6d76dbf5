package profiles

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/record"
	"github.com/joseph-ayodele/invoice-extractor/internal/rules"
)

const sbText = `SB Precision Tools
Plot 7, MIDC Bhosari, Pune
GSTIN: 27AAACS1234K1Z2
To
Irillic Pvt Ltd
Invoice No. SB-2041
Date: 12.03.2024
Payment Terms: 30 days

1 Machined bracket 84879000 20 1,250.00 25,000.00
2 Spacer ring 73182990 100 40.00 4,000.00
CGST 9% 2,610.00
SGST 9% 2,610.00
TOTAL 34220.00
`

func extractWith(t *testing.T, name, text string) *record.Record {
	t.Helper()
	reg, err := Load("", nil)
	require.NoError(t, err)
	p, ok := reg.Get(name)
	require.True(t, ok)

	rec, errs := rules.NewEngine(nil).Extract(rules.NewDocument(text), p.Nodes)
	require.Empty(t, errs)
	return rec
}

func lookup(t *testing.T, rec *record.Record, path string) any {
	t.Helper()
	v, err := record.Lookup(rec, path)
	require.NoError(t, err, path)
	return v
}

func TestSbProfile(t *testing.T) {
	rec := extractWith(t, "sb", sbText)

	keys := []string{}
	for p := rec.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{
		"supplier_details", "buyer_details", "invoice_details", "line_items",
		"tax_summary", "totals", "amount_chargeable_in_words", "bank_details",
	}, keys)

	assert.Equal(t, "", lookup(t, rec, "supplier_details.name"))
	assert.Equal(t, "SB Precision Tools, Plot 7, MIDC Bhosari, Pune", lookup(t, rec, "supplier_details.address"))
	assert.Equal(t, "27AAACS1234K1Z2", lookup(t, rec, "supplier_details.gstin_uin"))
	assert.Equal(t, "Irillic Pvt Ltd", lookup(t, rec, "buyer_details.name"))
	assert.Equal(t, "SB-2041", lookup(t, rec, "invoice_details.Invoice No"))
	assert.Equal(t, "12.03.2024", lookup(t, rec, "invoice_details.Invoice Date"))
	assert.Equal(t, "30 days", lookup(t, rec, "invoice_details.Payment Terms"))

	assert.Equal(t, "Machined bracket", lookup(t, rec, "line_items[0].Description"))
	assert.Equal(t, int64(20), lookup(t, rec, "line_items[0].Quantity"))
	assert.Equal(t, json.Number("1250.0"), lookup(t, rec, "line_items[0].Unit Price"))
	assert.Equal(t, json.Number("4000.0"), lookup(t, rec, "line_items[1].Amount"))

	assert.Equal(t, "2,610.00", lookup(t, rec, "tax_summary.CGST 9%"))
	assert.Equal(t, "", lookup(t, rec, "tax_summary.IGST 18%"))
	assert.Equal(t, json.Number("29000.0"), lookup(t, rec, "totals.Total Amount (before tax)"))
	assert.Equal(t, json.Number("2610.0"), lookup(t, rec, "totals.CGST"))
	assert.Equal(t, json.Number("0.0"), lookup(t, rec, "totals.IGST"))
	assert.Equal(t, json.Number("34220.0"), lookup(t, rec, "totals.Total Invoice Value"))

	assert.Equal(t, "N/A", lookup(t, rec, "bank_details.Bank Name"))
}

func TestSbProfile_BuyerAddressAndEmptyItems(t *testing.T) {
	text := `SB Precision Tools
Plot 7, MIDC Bhosari, Pune
To
Acme
Plot 4 Peenya Invoice No. 77
Bangalore Date 01.02.2024
GSTIN: 29AABCA1234B1Z5
Karnataka
Date of Supply: 01.02.2024
Bank Name:
`
	rec := extractWith(t, "sb", text)

	assert.Equal(t, "Acme", lookup(t, rec, "buyer_details.name"))
	assert.Equal(t, "Plot 4 Peenya, Bangalore, Karnataka", lookup(t, rec, "buyer_details.address"))
	assert.Equal(t, []any{}, lookup(t, rec, "line_items"))
	assert.Equal(t, int64(0), lookup(t, rec, "totals.Total Amount (before tax)"))
	assert.Equal(t, "N/A", lookup(t, rec, "bank_details.Bank Name"))
	assert.Equal(t, "N/A", lookup(t, rec, "bank_details.A/c No"))
}

func TestCompileRegexShorthandUsesProfileFlags(t *testing.T) {
	p, err := ParseBytes([]byte(`
name: flags
regex_flags: im
record:
  - key: invoice
    regex: '^invoice no\s*(\S+)'
  - key: strict
    rule: {kind: regex, pattern: '^invoice no\s*(\S+)', flags: "-"}
`))
	require.NoError(t, err)
	pc, err := rules.NewPatternCache(8)
	require.NoError(t, err)
	nodes, err := Compile(p, pc)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	rec, errs := rules.NewEngine(nil).Extract(rules.NewDocument("Tax Invoice\nINVOICE NO 77\n"), nodes)
	require.Empty(t, errs)
	v, _ := rec.Get("invoice")
	assert.Equal(t, "77", v)
	v, _ = rec.Get("strict")
	assert.Equal(t, "", v)
}

func TestCompileSkipBlankDefault(t *testing.T) {
	p, err := ParseBytes([]byte(`
name: lines
lines:
  skip_blank: true
record:
  - key: second
    rule: {kind: fixed_offset, start: 1}
  - key: second_raw
    rule: {kind: fixed_offset, start: 1, skip_blank: false}
`))
	require.NoError(t, err)
	nodes, err := Compile(p, nil)
	require.NoError(t, err)

	rec, _ := rules.NewEngine(nil).Extract(rules.NewDocument("first\n\nsecond\n"), nodes)
	v, _ := rec.Get("second")
	assert.Equal(t, "second", v)
	v, _ = rec.Get("second_raw")
	assert.Equal(t, "", v)
}

func TestCompileAliases(t *testing.T) {
	p, err := ParseBytes([]byte(`
name: alias
record:
  - key: invoice_details
    rule:
      kind: label_next_line
      labels: ["Dated", "BRINDAVAN13102"]
      aliases:
        - {from: BRINDAVAN13102, to: Invoice No}
`))
	require.NoError(t, err)
	nodes, err := Compile(p, nil)
	require.NoError(t, err)

	rec, errs := rules.NewEngine(nil).Extract(rules.NewDocument("BRINDAVAN13102\nBR/88\nDated\n1-Apr-24\n"), nodes)
	require.Empty(t, errs)
	assert.Equal(t, "BR/88", lookup(t, rec, "invoice_details.Invoice No"))
	assert.Equal(t, "1-Apr-24", lookup(t, rec, "invoice_details.Dated"))
}

func TestCompileFirstOf(t *testing.T) {
	p, err := ParseBytes([]byte(`
name: coalesce
record:
  - key: branch
    rule:
      kind: first_of
      rules:
        - {kind: regex, pattern: 'Branch\s*:\s*(.+)'}
        - {kind: regex, pattern: 'Branch\s*:\s*(.+?)[ \t]*$(?s:.*?)IFSC\s*:\s*(\S+)', template: '{1}, {2}'}
        - {kind: literal, value: unknown}
`))
	require.NoError(t, err)
	nodes, err := Compile(p, nil)
	require.NoError(t, err)

	rec, errs := rules.NewEngine(nil).Extract(rules.NewDocument("IFSC : KKBK0008067\n"), nodes)
	require.Empty(t, errs)
	v, _ := rec.Get("branch")
	assert.Equal(t, "unknown", v)

	rec, _ = rules.NewEngine(nil).Extract(rules.NewDocument("Branch : Koramangala\nIFSC : KKBK0008067\n"), nodes)
	v, _ = rec.Get("branch")
	assert.Equal(t, "Koramangala", v)

	bad, err := ParseBytes([]byte(`
name: coalesce
record:
  - key: branch
    rule:
      kind: first_of
      rules:
        - {kind: lookup}
`))
	require.NoError(t, err)
	_, err = Compile(bad, nil)
	require.ErrorContains(t, err, "rules[0]")
}

func TestShape(t *testing.T) {
	reg, err := Load("", nil)
	require.NoError(t, err)
	p, ok := reg.Get("sb")
	require.True(t, ok)

	shape := p.Shape()
	assert.Equal(t, "", lookup(t, shape, "supplier_details.address"))
	assert.Equal(t, []any{}, lookup(t, shape, "line_items"))
	assert.Equal(t, json.Number("0.0"), lookup(t, shape, "totals.Total Invoice Value"))
	assert.Equal(t, "N/A", lookup(t, shape, "bank_details.Bank Name"))
}
