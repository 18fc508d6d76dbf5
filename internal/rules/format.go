package rules

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joseph-ayodele/invoice-extractor/internal/record"
)

// Value formats for numeric columns and derived values.
const (
	FormatString  = "string"  // the text as captured
	FormatInt     = "int"     // integer JSON number
	FormatFloat   = "float"   // float JSON number printed with a decimal point
	FormatGrouped = "grouped" // "1,234.50"
	FormatFixed   = "fixed"   // "1234.50"
)

var formats = []string{"", FormatString, FormatInt, FormatFloat, FormatGrouped, FormatFixed}

func validFormat(f string) error {
	for _, v := range formats {
		if f == v {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q", f)
}

var grouped = message.NewPrinter(language.English)

// parseAmount reads an amount that may carry digit grouping commas.
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return f, nil
}

func parseCount(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return n, nil
}

// formatNumber renders f in one of the numeric formats.
func formatNumber(f float64, format string) any {
	switch format {
	case FormatInt:
		return int64(f)
	case FormatGrouped:
		return grouped.Sprintf("%.2f", f)
	case FormatFixed:
		return strconv.FormatFloat(f, 'f', 2, 64)
	default:
		return record.Number(f)
	}
}

// convert applies format to a captured string.
func convert(s, format string) (any, error) {
	switch format {
	case FormatInt:
		return parseCount(s)
	case FormatFloat, FormatGrouped, FormatFixed:
		f, err := parseAmount(s)
		if err != nil {
			return nil, err
		}
		return formatNumber(f, format), nil
	default:
		return s, nil
	}
}
