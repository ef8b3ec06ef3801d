package audience

import (
	"sort"

	"github.com/edupulse/campus-messaging/internal/domain"
)

// Selection tracks which recipients of a filtered audience are picked for a
// bulk send. It deliberately does not validate ids against the current
// filtered set: SetIDs exists so a caller can restore a previous selection
// before re-validating on its own terms.
type Selection struct {
	ids map[int64]struct{}
}

func NewSelection() *Selection {
	return &Selection{ids: make(map[int64]struct{})}
}

// SelectAll marks every recipient of the audience as selected. Idempotent.
func (s *Selection) SelectAll(aud []domain.Recipient) {
	for _, r := range aud {
		s.ids[r.ID] = struct{}{}
	}
}

// Clear empties the selection. Idempotent.
func (s *Selection) Clear() {
	s.ids = make(map[int64]struct{})
}

// Toggle flips the presence of a single id (symmetric difference).
func (s *Selection) Toggle(id int64) {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}
}

// SetIDs replaces the selection with the given id list, unvalidated.
func (s *Selection) SetIDs(ids []int64) {
	s.ids = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

func (s *Selection) Has(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Count() int {
	return len(s.ids)
}

// IDs returns the selected ids in ascending order.
func (s *Selection) IDs() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Pick returns the members of the audience present in the selection,
// preserving audience order.
func (s *Selection) Pick(aud []domain.Recipient) []domain.Recipient {
	out := make([]domain.Recipient, 0, len(s.ids))
	for _, r := range aud {
		if s.Has(r.ID) {
			out = append(out, r)
		}
	}
	return out
}
