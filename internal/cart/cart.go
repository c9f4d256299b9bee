// Package cart keeps the per-session shopping cart. A Cart is not safe for
// concurrent use; the owning session serializes access.
package cart

import (
	"github.com/shopspring/decimal"

	"cafeteria-storefront/internal/domain"
)

// Gate reports whether the cafeteria accepts new items right now.
type Gate interface {
	IsOpen() bool
}

type Cart struct {
	gate  Gate
	lines []domain.CartLine
}

func New(gate Gate) *Cart {
	return &Cart{gate: gate}
}

// AddItem increments the line for item.ID or inserts it with quantity 1.
// It returns false, leaving the cart untouched, while the cafeteria is closed.
func (c *Cart) AddItem(item domain.MenuItem) bool {
	if c.gate != nil && !c.gate.IsOpen() {
		return false
	}
	if i := c.index(item.ID); i >= 0 {
		c.lines[i].Quantity++
		return true
	}
	c.lines = append(c.lines, domain.CartLine{MenuItem: item, Quantity: 1})
	return true
}

// UpdateQuantity sets the quantity exactly; qty <= 0 removes the line.
func (c *Cart) UpdateQuantity(id string, qty int) {
	if qty <= 0 {
		c.RemoveItem(id)
		return
	}
	if i := c.index(id); i >= 0 {
		c.lines[i].Quantity = qty
	}
}

func (c *Cart) UpdateNotes(id, notes string) {
	if i := c.index(id); i >= 0 {
		c.lines[i].Notes = notes
	}
}

func (c *Cart) RemoveItem(id string) {
	if i := c.index(id); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

func (c *Cart) Clear() { c.lines = nil }

// Deduct takes submitted quantities off the cart. Units added after the
// snapshot was taken stay; a line that drops to zero is removed.
func (c *Cart) Deduct(submitted []domain.CartLine) {
	for _, l := range submitted {
		i := c.index(l.ID)
		if i < 0 {
			continue
		}
		c.UpdateQuantity(l.ID, c.lines[i].Quantity-l.Quantity)
	}
}

func (c *Cart) Empty() bool { return len(c.lines) == 0 }

// Lines returns a copy of the cart in insertion order.
func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Subtotal() decimal.Decimal {
	return Subtotal(c.lines)
}

// Subtotal is sum(price*quantity) over lines.
func Subtotal(lines []domain.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.LineTotal())
	}
	return sum
}

func (c *Cart) index(id string) int {
	for i := range c.lines {
		if c.lines[i].ID == id {
			return i
		}
	}
	return -1
}
