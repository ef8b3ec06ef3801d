package audience

import (
	"testing"

	"github.com/edupulse/campus-messaging/internal/domain"
)

func TestSelection_SelectAllIsIdempotent(t *testing.T) {
	aud := []domain.Recipient{{ID: 1}, {ID: 2}, {ID: 3}}

	s := NewSelection()
	s.SelectAll(aud)
	s.SelectAll(aud)

	if s.Count() != 3 {
		t.Errorf("expected 3 selected after double SelectAll, got %d", s.Count())
	}
}

func TestSelection_ToggleIsSymmetric(t *testing.T) {
	s := NewSelection()

	s.Toggle(5)
	if !s.Has(5) {
		t.Fatalf("expected 5 selected after first toggle")
	}

	s.Toggle(5)
	if s.Has(5) {
		t.Fatalf("expected 5 deselected after second toggle")
	}
	if s.Count() != 0 {
		t.Errorf("expected empty selection, got %d", s.Count())
	}
}

func TestSelection_ClearIsIdempotent(t *testing.T) {
	s := NewSelection()
	s.SetIDs([]int64{1, 2})

	s.Clear()
	s.Clear()

	if s.Count() != 0 {
		t.Errorf("expected empty selection after Clear, got %d", s.Count())
	}
}

func TestSelection_SetIDsDoesNotValidate(t *testing.T) {
	s := NewSelection()

	// Ids outside any current audience are accepted as-is.
	s.SetIDs([]int64{42, 99})

	if !s.Has(42) || !s.Has(99) {
		t.Errorf("expected unvalidated ids to be stored, got %v", s.IDs())
	}
}

func TestSelection_PickPreservesAudienceOrder(t *testing.T) {
	aud := []domain.Recipient{
		{ID: 3, Name: "Ana"},
		{ID: 1, Name: "Bruno"},
		{ID: 2, Name: "Carla"},
	}

	s := NewSelection()
	s.SetIDs([]int64{2, 3})

	picked := s.Pick(aud)
	if len(picked) != 2 {
		t.Fatalf("expected 2 picked, got %d", len(picked))
	}
	if picked[0].ID != 3 || picked[1].ID != 2 {
		t.Errorf("expected audience order [3, 2], got [%d, %d]", picked[0].ID, picked[1].ID)
	}

	// Selected ids absent from the audience are simply not returned.
	s.SetIDs([]int64{99})
	if got := s.Pick(aud); len(got) != 0 {
		t.Errorf("expected no picks for unknown id, got %d", len(got))
	}
}
