package domain_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func ids(items []domain.ClothingItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func sum(items []domain.ClothingItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Price
	}
	return total
}

func TestCart_EmptyTotalIsZero(t *testing.T) {
	var cart domain.Cart
	if cart.Total() != 0 {
		t.Fatalf("expected 0, got %d", cart.Total())
	}
	if cart.Len() != 0 {
		t.Fatalf("expected empty cart, got %d lines", cart.Len())
	}
}

func TestCart_DuplicatesAndFirstMatchRemoval(t *testing.T) {
	a := item("1", 3500, domain.CategoryTop)
	b := item("2", 4200, domain.CategoryBottom)

	var cart domain.Cart
	cart.Add(a)
	cart.Add(b)
	cart.Add(a)

	if diff := cmp.Diff([]string{"1", "2", "1"}, ids(cart.Lines())); diff != "" {
		t.Fatalf("unexpected lines (-want +got):\n%s", diff)
	}
	if cart.Total() != 11200 {
		t.Fatalf("expected total 11200, got %d", cart.Total())
	}

	if !cart.Remove(a.ID) {
		t.Fatal("expected removal to succeed")
	}
	if diff := cmp.Diff([]string{"2", "1"}, ids(cart.Lines())); diff != "" {
		t.Fatalf("unexpected lines after remove (-want +got):\n%s", diff)
	}
	if cart.Total() != 7700 {
		t.Fatalf("expected total 7700, got %d", cart.Total())
	}
}

func TestCart_RemoveOneOfTwoDuplicates(t *testing.T) {
	a := item("1", 3500, domain.CategoryTop)

	var cart domain.Cart
	cart.Add(a)
	cart.Add(a)
	cart.Remove(a.ID)

	if cart.Len() != 1 {
		t.Fatalf("expected exactly one remaining line, got %d", cart.Len())
	}
}

func TestCart_RemoveMissingIsNoop(t *testing.T) {
	var cart domain.Cart
	cart.Add(item("1", 3500, domain.CategoryTop))
	cart.Add(item("2", 4200, domain.CategoryBottom))
	before := cart.Lines()

	if cart.Remove("404") {
		t.Fatal("remove of missing id must report false")
	}
	if diff := cmp.Diff(before, cart.Lines()); diff != "" {
		t.Fatalf("cart changed on missing id (-before +after):\n%s", diff)
	}
}

func TestCart_AddOutfit(t *testing.T) {
	var outfit domain.OutfitSelection
	outfit.Select(item("3", 8500, domain.CategoryShoes))
	outfit.Select(item("1", 3500, domain.CategoryTop))

	var cart domain.Cart
	cart.Add(item("6", 3800, domain.CategoryBottom))

	if added := cart.AddOutfit(outfit); added != 2 {
		t.Fatalf("expected 2 added lines, got %d", added)
	}
	if diff := cmp.Diff([]string{"6", "1", "3"}, ids(cart.Lines())); diff != "" {
		t.Fatalf("unexpected lines (-want +got):\n%s", diff)
	}
	if outfit.Len() != 2 {
		t.Fatal("transfer must not clear the outfit")
	}
}

func TestCart_AddEmptyOutfitIsNoop(t *testing.T) {
	var cart domain.Cart
	cart.Add(item("1", 3500, domain.CategoryTop))

	if added := cart.AddOutfit(domain.OutfitSelection{}); added != 0 {
		t.Fatalf("expected nothing added, got %d", added)
	}
	if cart.Len() != 1 {
		t.Fatalf("cart changed: %d lines", cart.Len())
	}
}

func TestCart_LinesReturnsCopy(t *testing.T) {
	var cart domain.Cart
	cart.Add(item("1", 3500, domain.CategoryTop))

	lines := cart.Lines()
	lines[0].Price = 1

	if cart.Total() != 3500 {
		t.Fatalf("cart mutated through Lines(): total=%d", cart.Total())
	}
}

func TestCart_RemoveDoesNotAliasClone(t *testing.T) {
	var cart domain.Cart
	cart.Add(item("1", 3500, domain.CategoryTop))
	cart.Add(item("2", 4200, domain.CategoryBottom))
	cart.Add(item("3", 8500, domain.CategoryShoes))

	clone := cart.Clone()
	clone.Remove("1")

	if diff := cmp.Diff([]string{"1", "2", "3"}, ids(cart.Lines())); diff != "" {
		t.Fatalf("original cart mutated (-want +got):\n%s", diff)
	}
}

// Модель корзины: срез, из которого удаляется первое совпадение.
func TestCart_RandomOperationsMatchModel(t *testing.T) {
	f := gofakeit.New(7)
	pool := make([]domain.ClothingItem, 6)
	for i := range pool {
		pool[i] = randomItem(f)
	}

	for run := 0; run < 50; run++ {
		var cart domain.Cart
		var model []domain.ClothingItem

		for step := 0; step < 40; step++ {
			it := pool[f.IntRange(0, len(pool)-1)]
			if f.Bool() {
				cart.Add(it)
				model = append(model, it)
				continue
			}

			removed := cart.Remove(it.ID)
			modelRemoved := false
			for i := range model {
				if model[i].ID == it.ID {
					model = append(model[:i], model[i+1:]...)
					modelRemoved = true
					break
				}
			}
			if removed != modelRemoved {
				t.Fatalf("run %d step %d: removed=%v, model=%v", run, step, removed, modelRemoved)
			}
		}

		if diff := cmp.Diff(ids(model), ids(cart.Lines())); diff != "" {
			t.Fatalf("run %d: lines diverged from model (-model +cart):\n%s", run, diff)
		}
		if cart.Total() != sum(model) {
			t.Fatalf("run %d: total %d, model %d", run, cart.Total(), sum(model))
		}
	}
}
