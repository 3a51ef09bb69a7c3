package domain

import "testing"

func TestClothingItem_Validate(t *testing.T) {
	tests := []struct {
		name     string
		item     ClothingItem
		errCount int
	}{
		{
			name:     "valid item",
			item:     ClothingItem{ID: "1", Name: "shirt", Price: 3500, Category: CategoryTop},
			errCount: 0,
		},
		{
			name:     "zero price is valid",
			item:     ClothingItem{ID: "1", Name: "gift", Price: 0, Category: CategoryAccessories},
			errCount: 0,
		},
		{
			name:     "missing id",
			item:     ClothingItem{Name: "shirt", Price: 1, Category: CategoryTop},
			errCount: 1,
		},
		{
			name:     "negative price",
			item:     ClothingItem{ID: "1", Name: "shirt", Price: -1, Category: CategoryTop},
			errCount: 1,
		},
		{
			name:     "all fields broken",
			item:     ClothingItem{Price: -1, Category: Category(9)},
			errCount: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.item.Validate()
			if len(errs) != tt.errCount {
				t.Fatalf("expected %d errors, got %d: %v", tt.errCount, len(errs), errs)
			}
		})
	}
}
