package extract

import (
	"regexp"
	"strings"
)

var (
	reDate    = regexp.MustCompile(`\b\d{1,2}[-./]\d{1,2}[-./]\d{2,4}\b|\b\d{1,2}-[a-z]{3}-\d{2,4}\b`)
	reAmount  = regexp.MustCompile(`\b\d{1,3}(,\d{2,3})*\.\d{2}\b`)
	reTaxID   = regexp.MustCompile(`\b\d{2}[a-z]{5}\d{4}[a-z][a-z\d]z[a-z\d]\b`) // GSTIN
	reInvoice = regexp.MustCompile(`\b(tax )?invoice\b`)
)

// naive heuristic confidence that the extracted text is a usable invoice
func heuristicConfidence(txt string) float32 {
	// each recognisable invoice artifact adds to a small base score
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if reDate.MatchString(txtL) {
		score += 0.2
	}
	if reAmount.MatchString(txtL) {
		score += 0.15
	}
	if reTaxID.MatchString(txtL) {
		score += 0.15
	}
	if reInvoice.MatchString(txtL) {
		score += 0.1
	}
	if len(strings.TrimSpace(txt)) > 200 {
		score += 0.1
	} // enough content
	if strings.TrimSpace(txt) == "" {
		return 0
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
