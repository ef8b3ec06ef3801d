// Package audience computes target recipient sets from the student
// population. All computation here is pure: the engine takes the population
// snapshot and the criteria as arguments and never reads ambient state.
package audience

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/edupulse/campus-messaging/internal/domain"
)

// "all" in a selector field means no restriction, same as leaving it empty.
const SelectorAll = "all"

// Names are compared with a pt-BR collator so accented names sort where an
// operator expects them, not by byte order.
var nameCollator = collate.New(language.BrazilianPortuguese)

// Compute returns the audience for the given criteria, in canonical order.
//
// The pipeline is applied in a fixed order: (1) drop invalid phones,
// (2) name/phone substring search, (3) classroom, (4) derived payment
// status, (5) enrollment date range, (6) staff-member set, (7) stable
// sort by name. Payment status is derived against now on every call.
func Compute(population []domain.Recipient, criteria domain.FilterCriteria, now time.Time) []domain.Recipient {
	result := make([]domain.Recipient, 0, len(population))

	search := strings.ToLower(strings.TrimSpace(criteria.Search))
	classroom := selector(criteria.Classroom)
	payment := selector(criteria.PaymentStatus)

	for _, r := range population {
		if !r.HasValidPhone() {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Name), search) &&
			!strings.Contains(r.Phone, search) {
			continue
		}
		if classroom != "" && r.ClassroomID != classroom {
			continue
		}
		if payment != "" && string(domain.PaymentStatusAt(r.Invoices, now)) != payment {
			continue
		}
		if !enrolledInRange(r.EnrolledAt, criteria.EnrolledFrom, criteria.EnrolledTo) {
			continue
		}
		if !matchesStaff(r.StaffID, criteria.StaffIDs) {
			continue
		}
		result = append(result, r)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return nameCollator.CompareString(result[i].Name, result[j].Name) < 0
	})

	return result
}

func selector(v string) string {
	if v == SelectorAll {
		return ""
	}
	return v
}

// The end bound is date-only: a recipient enrolled at any time on the end
// date is in range.
func enrolledInRange(enrolled time.Time, from, to *time.Time) bool {
	if from != nil && enrolled.Before(*from) {
		return false
	}
	if to != nil {
		end := endOfDay(*to)
		if enrolled.After(end) {
			return false
		}
	}
	return true
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// StaffIDs are OR within the category: assigned to any listed staff member.
func matchesStaff(staffID *int64, wanted []int64) bool {
	if len(wanted) == 0 {
		return true
	}
	if staffID == nil {
		return false
	}
	for _, id := range wanted {
		if *staffID == id {
			return true
		}
	}
	return false
}
