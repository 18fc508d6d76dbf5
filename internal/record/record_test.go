package record

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Record {
	buyer := New()
	buyer.Set("name", "Acme Traders")
	buyer.Set("gstin", "27ABCDE1234F1Z5")

	item := New()
	item.Set("sl_no", int64(1))
	item.Set("amount", Number(1234))

	rec := New()
	rec.Set("invoice_no", "INV-001")
	rec.Set("buyer", buyer)
	rec.Set("items", []any{item})
	rec.Set("notes", []any{})
	return rec
}

func TestEncode_OrderAndIndent(t *testing.T) {
	out, err := Marshal(sample())
	require.NoError(t, err)

	want := `{
    "invoice_no": "INV-001",
    "buyer": {
        "name": "Acme Traders",
        "gstin": "27ABCDE1234F1Z5"
    },
    "items": [
        {
            "sl_no": 1,
            "amount": 1234.0
        }
    ],
    "notes": []
}
`
	assert.Equal(t, want, string(out))
}

func TestEncode_KeepsMarkupCharacters(t *testing.T) {
	rec := New()
	rec.Set("name", "A & B <Traders>")
	rec.Set("terms", []any{"x > y"})

	out, err := Marshal(rec)
	require.NoError(t, err)

	want := `{
    "name": "A & B <Traders>",
    "terms": [
        "x > y"
    ]
}
`
	assert.Equal(t, want, string(out))
}

func TestDecode_PreservesOrder(t *testing.T) {
	out, err := Marshal(sample())
	require.NoError(t, err)

	rec, err := Decode(strings.NewReader(string(out)))
	require.NoError(t, err)

	var keys []string
	for p := rec.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"invoice_no", "buyer", "items", "notes"}, keys)

	again, err := Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(again))
}

func TestDecode_RejectsNonObject(t *testing.T) {
	_, err := Decode(strings.NewReader(`[1, 2]`))
	require.Error(t, err)

	_, err = Decode(strings.NewReader(`{"a": `))
	require.Error(t, err)
}

func TestLookup(t *testing.T) {
	rec := sample()

	v, err := Lookup(rec, "buyer.gstin")
	require.NoError(t, err)
	assert.Equal(t, "27ABCDE1234F1Z5", v)

	v, err = Lookup(rec, "items[0].amount")
	require.NoError(t, err)
	assert.Equal(t, json.Number("1234.0"), v)

	_, err = Lookup(rec, "items[3].amount")
	require.ErrorIs(t, err, ErrNoPath)

	_, err = Lookup(rec, "seller.name")
	require.ErrorIs(t, err, ErrNoPath)

	_, err = Lookup(rec, "items[x]")
	require.Error(t, err)
}

func TestFormatFloat(t *testing.T) {
	tests := map[float64]string{
		1234:      "1234.0",
		1234.5:    "1234.5",
		0.1:       "0.1",
		-3:        "-3.0",
		1234567:   "1234567.0",
		1e16:      "1e+16",
		0.00001:   "1e-05",
		118000.25: "118000.25",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatFloat(in), "%v", in)
	}
}

func TestPlain(t *testing.T) {
	plain := Plain(sample()).(map[string]any)
	items := plain["items"].([]any)
	assert.Equal(t, json.Number("1"), items[0].(map[string]any)["sl_no"])
	assert.Equal(t, "Acme Traders", plain["buyer"].(map[string]any)["name"])
}
