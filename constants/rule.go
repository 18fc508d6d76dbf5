package constants

// RuleKind names one extraction strategy in a vendor profile.
type RuleKind string

const (
	RuleRegex       RuleKind = "regex"
	RuleLabelNext   RuleKind = "label_next_line"
	RuleFixedOffset RuleKind = "fixed_offset"
	RuleRows        RuleKind = "rows"
	RuleDerived     RuleKind = "derived"
	RuleLiteral     RuleKind = "literal"
	RuleFirstOf     RuleKind = "first_of"
)

var allRuleKinds = []RuleKind{
	RuleRegex,
	RuleLabelNext,
	RuleFixedOffset,
	RuleRows,
	RuleDerived,
	RuleLiteral,
	RuleFirstOf,
}

// IsRuleKind reports whether s names a supported rule kind.
func IsRuleKind(s string) bool {
	for _, k := range allRuleKinds {
		if string(k) == s {
			return true
		}
	}
	return false
}

// GenericVendor is the profile used when neither the filename nor the content selects one.
const GenericVendor = "generic"
