package phone

import (
	"regexp"
	"strings"
)

// Azerbaijani mobile operator prefixes valid after the 994 country
// code. A candidate with any other prefix is discarded.
const operatorCodes = `(?:10|50|51|55|70|77|99)`

var (
	// "+994 70 585 08 08" and "070 585 08 08": digit groups written
	// 3-2-2 with tolerant internal whitespace.
	reSpaced = regexp.MustCompile(`\b(?:\+?994\s*` + operatorCodes + `|0\s*` + operatorCodes + `)\s*\d{3}\s*\d{2}\s*\d{2}\b`)

	// "0705850808", "+994705850808", "994705850808": unbroken runs.
	// Word-boundary anchors keep numbers glued inside longer digit
	// runs from matching.
	reCompact = regexp.MustCompile(`\b(?:\+?994` + operatorCodes + `\d{7}|0` + operatorCodes + `\d{7})\b`)

	reLocal     = regexp.MustCompile(`^0` + operatorCodes + `\d{7}$`)
	reCanonical = regexp.MustCompile(`^994` + operatorCodes + `\d{7}$`)

	reNonDigitPlus = regexp.MustCompile(`[^\d+]`)
)

// Normalize reduces a raw candidate to the canonical 12-digit
// 994-prefixed MSISDN. The boolean reports whether the candidate was a
// valid number; malformed candidates are not errors, just non-matches.
func Normalize(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	s := reNonDigitPlus.ReplaceAllString(raw, "")
	s = strings.TrimPrefix(s, "+")
	if reLocal.MatchString(s) {
		s = "994" + s[1:]
	}
	if !reCanonical.MatchString(s) {
		return "", false
	}
	return s, true
}

// IsCanonical reports whether s already is a canonical MSISDN.
func IsCanonical(s string) bool {
	return reCanonical.MatchString(s)
}

// ExtractAll scans free-form text for mobile numbers in spaced or
// compact form and returns the normalized set, first-seen order,
// duplicates collapsed.
func ExtractAll(text string) []string {
	if text == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var found []string
	for _, re := range []*regexp.Regexp{reSpaced, reCompact} {
		for _, match := range re.FindAllString(text, -1) {
			n, ok := Normalize(match)
			if !ok {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			found = append(found, n)
		}
	}
	return found
}

// FormatInternational renders a canonical MSISDN for the outbound
// transport boundary. The plus prefix exists only here.
func FormatInternational(msisdn string) string {
	if msisdn == "" || strings.HasPrefix(msisdn, "+") {
		return msisdn
	}
	return "+" + msisdn
}
