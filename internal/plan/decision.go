// Package plan decides how a client's renewal plan is handled: keep the
// current plan when it costs nothing with an approved carrier, otherwise
// search the marketplace for a replacement zero-premium plan.
package plan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Decision is the outcome of the premium/carrier gate.
type Decision string

const (
	// EnrollDirect keeps the client's current plan.
	EnrollDirect Decision = "enroll_direct"
	// SearchAlternative sends the client through the plan-change search.
	SearchAlternative Decision = "search_alternative"
)

// ErrNoZeroPremium is returned when the filtered plan list holds no plan with
// a genuine (non-struck) $0.00 premium.
var ErrNoZeroPremium = errors.New("no zero-premium plan in filtered results")

// Decide applies the direct-enroll gate: a client keeps their plan only when
// the renewal premium is exactly zero and the carrier is on the approved
// list. Every other combination goes to the alternative search, including a
// zero premium with an unapproved carrier.
func Decide(premiumCents int64, carrier string, approved []string) Decision {
	if premiumCents == 0 && MatchesApproved(carrier, approved) {
		return EnrollDirect
	}
	return SearchAlternative
}

// MatchesApproved reports whether carrier matches any entry on the approved
// list. Matching is case-insensitive substring in both directions, so the
// entry "molina" matches the displayed "Molina Healthcare of Florida" and the
// entry "Oscar Health" matches a terse "Oscar" cell.
func MatchesApproved(carrier string, approved []string) bool {
	c := strings.ToLower(strings.TrimSpace(carrier))
	if c == "" {
		return false
	}
	for _, a := range approved {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if strings.Contains(c, a) || strings.Contains(a, c) {
			return true
		}
	}
	return false
}

// ParsePremium converts a displayed premium like "$0.00", "$1,234.56" or
// "12.50" to cents. Anything that does not parse to a dollar amount is an
// error; premiums are money and a misread must not silently become zero.
func ParsePremium(text string) (int64, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty premium text %q", text)
	}

	whole := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("malformed premium %q", text)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	if strings.ContainsAny(whole, "+-") {
		return 0, fmt.Errorf("malformed premium %q", text)
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed premium %q", text)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed premium %q", text)
	}
	return w*100 + f, nil
}
