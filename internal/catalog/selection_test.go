package catalog

import (
	"testing"
	"time"
)

func TestSelection_Toggle(t *testing.T) {
	s := NewSelection()
	s2 := s.Toggle(7)

	if s.Has(7) {
		t.Error("Toggle mutated the original selection")
	}
	if !s2.Has(7) || s2.Len() != 1 {
		t.Errorf("after Toggle(7): %v", s2.IDs())
	}
	if s3 := s2.Toggle(7); s3.Len() != 0 {
		t.Errorf("second Toggle(7) should clear, got %v", s3.IDs())
	}
}

func TestSelection_ToggleAllSelectsOnlyVisiblePage(t *testing.T) {
	var products []Product
	for i := int64(1); i <= 30; i++ {
		category := "Odd"
		if i%2 == 0 {
			category = "Even"
		}
		products = append(products, Product{ID: i, Category: category, CreatedAt: baseTime.Add(-time.Duration(i) * time.Hour)})
	}

	// 15 "Even" products, page size 12: page 1 shows 12 of them.
	view := BuildView(products, Query{Category: "Even", PageSize: 12, Page: 1})
	if view.TotalCount != 15 || len(view.Items) != 12 {
		t.Fatalf("unexpected view: count=%d items=%d", view.TotalCount, len(view.Items))
	}

	sel := NewSelection().ToggleAll(view.Items)
	if sel.Len() != 12 {
		t.Fatalf("select-all picked %d ids, want 12 visible", sel.Len())
	}
	for _, p := range view.Items {
		if !sel.Has(p.ID) {
			t.Errorf("visible product %d not selected", p.ID)
		}
	}
	for _, p := range Filter(products, Query{Category: "Even"})[12:] {
		if sel.Has(p.ID) {
			t.Errorf("filtered-but-hidden product %d was selected", p.ID)
		}
	}

	cleared := sel.ToggleAll(view.Items)
	if cleared.Len() != 0 {
		t.Errorf("second select-all should clear the page, left %v", cleared.IDs())
	}
}

func TestSelection_ToggleAllPartialPage(t *testing.T) {
	visible := []Product{{ID: 1}, {ID: 2}, {ID: 3}}

	sel := NewSelection(2).ToggleAll(visible)
	if got := sel.IDs(); !equalIDs(got, []int64{1, 2, 3}) {
		t.Errorf("partial page select-all = %v, want [1 2 3]", got)
	}
}

func TestSelection_ToggleAllKeepsOtherPages(t *testing.T) {
	visible := []Product{{ID: 1}, {ID: 2}}

	sel := NewSelection(1, 2, 99).ToggleAll(visible)
	if got := sel.IDs(); !equalIDs(got, []int64{99}) {
		t.Errorf("deselecting the page should only drop its ids, got %v", got)
	}
}

func TestSelection_EmptyPage(t *testing.T) {
	sel := NewSelection(5).ToggleAll(nil)
	if sel.Len() != 0 {
		t.Errorf("select-all on an empty page should select nothing, got %v", sel.IDs())
	}
	if NewSelection().AllSelected(nil) {
		t.Error("empty page must not count as all selected")
	}
}
