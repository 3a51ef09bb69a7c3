package domain

// Cart - упорядоченный список позиций; один и тот же товар может лежать несколько раз.
type Cart struct {
	lines []ClothingItem
}

// NewCart собирает корзину из сохранённых позиций (порядок сохраняется).
func NewCart(lines []ClothingItem) Cart {
	c := Cart{lines: make([]ClothingItem, len(lines))}
	copy(c.lines, lines)
	return c
}

// Add добавляет позицию в конец корзины.
func (c *Cart) Add(item ClothingItem) {
	c.lines = append(c.lines, item)
}

// AddOutfit переносит все занятые слоты образа в корзину в порядке Categories().
// Возвращает количество добавленных позиций; пустой образ ничего не меняет.
func (c *Cart) AddOutfit(o OutfitSelection) int {
	items := o.Items()
	c.lines = append(c.lines, items...)
	return len(items)
}

// Remove удаляет первую позицию с указанным id. Возвращает false, если такой позиции нет.
func (c *Cart) Remove(id string) bool {
	for i, line := range c.lines {
		if line.ID != id {
			continue
		}
		c.lines = append(c.lines[:i:i], c.lines[i+1:]...)
		return true
	}
	return false
}

// Total считает сумму цен по всем позициям на момент вызова.
func (c Cart) Total() int64 {
	var total int64
	for _, line := range c.lines {
		total += line.Price
	}
	return total
}

// Len возвращает количество позиций.
func (c Cart) Len() int {
	return len(c.lines)
}

// Lines возвращает копию позиций в порядке добавления.
func (c Cart) Lines() []ClothingItem {
	out := make([]ClothingItem, len(c.lines))
	copy(out, c.lines)
	return out
}

// Clone возвращает независимую копию корзины.
func (c Cart) Clone() Cart {
	return NewCart(c.lines)
}
