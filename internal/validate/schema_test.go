package validate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/record"
)

func shapeRecord() *record.Record {
	supplier := record.New()
	supplier.Set("name", "")
	supplier.Set("gstin_uin", "")
	invoice := record.New()
	shape := record.New()
	shape.Set("supplier_details", supplier)
	shape.Set("invoice_details", invoice)
	shape.Set("line_items", []any{})
	shape.Set("total", json.Number("0.0"))
	return shape
}

func TestCheckShape(t *testing.T) {
	m, err := BuildSchema([]string{"supplier_details.name", "invoice_details.Invoice No"}, shapeRecord())
	require.NoError(t, err)
	schema, err := CompileSchema(m)
	require.NoError(t, err)

	good := decode(t, `{
		"supplier_details": {"name": "Acme Traders", "gstin_uin": ""},
		"invoice_details": {"Invoice No": "INV-100", "Dated": "01-01-2024"},
		"line_items": [{"Sl No": "1"}],
		"total": 1180.0
	}`)
	assert.NoError(t, CheckShape(schema, good))

	blank := decode(t, `{
		"supplier_details": {"name": "", "gstin_uin": ""},
		"invoice_details": {},
		"line_items": [],
		"total": 0
	}`)
	err = CheckShape(schema, blank)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/supplier_details/name")
	assert.Contains(t, err.Error(), "/invoice_details")

	wrongType := decode(t, `{
		"supplier_details": {"name": "Acme Traders", "gstin_uin": ""},
		"invoice_details": {"Invoice No": "INV-100"},
		"line_items": "none",
		"total": 0
	}`)
	err = CheckShape(schema, wrongType)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/line_items")
}

func TestBuildSchemaWithoutShape(t *testing.T) {
	m, err := BuildSchema([]string{"line_items"}, nil)
	require.NoError(t, err)
	schema, err := CompileSchema(m)
	require.NoError(t, err)

	assert.NoError(t, CheckShape(schema, decode(t, `{"line_items": [{"a": "b"}]}`)))
	assert.Error(t, CheckShape(schema, decode(t, `{"line_items": []}`)))
	assert.Error(t, CheckShape(schema, decode(t, `{}`)))
}

func TestBuildSchemaRejectsIndexedPaths(t *testing.T) {
	_, err := BuildSchema([]string{"line_items[0].Amount"}, nil)
	assert.Error(t, err)

	_, err = BuildSchema([]string{"line_items.Amount"}, shapeRecord())
	assert.Error(t, err)
}
