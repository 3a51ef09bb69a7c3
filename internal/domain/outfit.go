package domain

// OutfitSelection хранит не более одного товара на каждый слот манекена.
type OutfitSelection struct {
	slots [categoryCount]*ClothingItem
}

// Select кладёт товар в слот его категории, вытесняя прежнего владельца слота.
func (o *OutfitSelection) Select(item ClothingItem) {
	if !item.Category.Valid() {
		return
	}
	o.slots[item.Category] = &item
}

// Slot возвращает товар в слоте категории.
func (o OutfitSelection) Slot(c Category) (ClothingItem, bool) {
	if !c.Valid() || o.slots[c] == nil {
		return ClothingItem{}, false
	}
	return *o.slots[c], true
}

// Items возвращает занятые слоты в порядке Categories().
func (o OutfitSelection) Items() []ClothingItem {
	items := make([]ClothingItem, 0, categoryCount)
	for _, c := range Categories() {
		if item, ok := o.Slot(c); ok {
			items = append(items, item)
		}
	}
	return items
}

// Len возвращает количество занятых слотов.
func (o OutfitSelection) Len() int {
	n := 0
	for _, slot := range o.slots {
		if slot != nil {
			n++
		}
	}
	return n
}

// Empty сообщает, что ни один слот не занят.
func (o OutfitSelection) Empty() bool {
	return o.Len() == 0
}

// Clear освобождает все слоты.
func (o *OutfitSelection) Clear() {
	o.slots = [categoryCount]*ClothingItem{}
}

// Clone возвращает независимую копию выбора.
func (o OutfitSelection) Clone() OutfitSelection {
	var out OutfitSelection
	for i, slot := range o.slots {
		if slot != nil {
			item := *slot
			out.slots[i] = &item
		}
	}
	return out
}
