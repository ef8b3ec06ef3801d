// Package keyword matches inbound message text against configured keyword
// rules.
package keyword

import (
	"strings"

	"github.com/edupulse/campus-messaging/internal/domain"
)

// Match returns the first active rule whose keyword is contained in the
// inbound text, or nil when nothing matches. Matching is case-sensitive
// exact-substring containment and rules are evaluated in the order given
// (callers pass them in creation order). First-match-wins keeps overlapping
// keywords like "#preço" and "preço" from producing multiple responses.
//
// A nil result is not an error; the caller simply takes no action.
func Match(inboundText string, rules []domain.KeywordRule) *domain.KeywordRule {
	for i := range rules {
		if !rules[i].Active {
			continue
		}
		if rules[i].Keyword == "" {
			continue
		}
		if strings.Contains(inboundText, rules[i].Keyword) {
			return &rules[i]
		}
	}
	return nil
}
