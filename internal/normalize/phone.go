package normalize

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// PhoneRule rewrites one dialing prefix to its canonical international form.
type PhoneRule struct {
	Prefix      string
	Replacement string
}

// DefaultPhoneRules covers the misdialed international prefixes that show up
// in imweb order exports.
func DefaultPhoneRules() []PhoneRule {
	return []PhoneRule{
		{Prefix: "0049", Replacement: "+49"},
		{Prefix: "001", Replacement: "+1"},
		{Prefix: "0086", Replacement: "+86"},
		{Prefix: "0033", Replacement: "+33"},
		{Prefix: "0044", Replacement: "+44"},
		{Prefix: "0081", Replacement: "+81"},
	}
}

// GermanShopPhoneRules extends the defaults with the bare country-code forms
// common in German WooCommerce exports.
func GermanShopPhoneRules() []PhoneRule {
	return append(DefaultPhoneRules(),
		PhoneRule{Prefix: "821", Replacement: "+82"},
		PhoneRule{Prefix: "491", Replacement: "+49"},
	)
}

var koreanMobilePrefixes = []string{"010", "011", "016", "017", "018", "019"}

// strippedZeroPrefixes are Korean mobile prefixes with the leading zero lost,
// which some storefront forms produce.
var strippedZeroPrefixes = []string{"10", "11", "16", "17", "18", "19"}

// PhoneNormalizer canonicalizes phone numbers. Korean mobile numbers pass
// through (restoring a dropped leading zero), known dialing prefixes are
// rewritten via the rule table, and any other digit-leading value is treated
// as an international number missing its plus sign.
type PhoneNormalizer struct {
	rules []PhoneRule
}

// NewPhoneNormalizer builds a normalizer from the given rules. Rules are
// matched longest prefix first so overlapping entries stay unambiguous.
func NewPhoneNormalizer(rules []PhoneRule) *PhoneNormalizer {
	ordered := make([]PhoneRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Prefix) > len(ordered[j].Prefix)
	})
	return &PhoneNormalizer{rules: ordered}
}

// Normalize applies the first matching rule. The result is a fixed point:
// normalizing an already-normalized number returns it unchanged.
func (n *PhoneNormalizer) Normalize(phone string) string {
	s := strings.TrimSpace(phone)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "+") {
		return s
	}
	for _, p := range koreanMobilePrefixes {
		if strings.HasPrefix(s, p) {
			return s
		}
	}
	if len(s) == 10 {
		for _, p := range strippedZeroPrefixes {
			if strings.HasPrefix(s, p) {
				return "0" + s
			}
		}
	}
	for _, r := range n.rules {
		if strings.HasPrefix(s, r.Prefix) {
			return r.Replacement + s[len(r.Prefix):]
		}
	}
	if first, _ := utf8.DecodeRuneInString(s); unicode.IsDigit(first) {
		return "+" + s
	}
	return s
}
