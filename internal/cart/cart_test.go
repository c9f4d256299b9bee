package cart

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafeteria-storefront/internal/domain"
)

type gate struct{ open bool }

func (g *gate) IsOpen() bool { return g.open }

func item(id, price string) domain.MenuItem {
	return domain.MenuItem{ID: id, Name: id, Price: decimal.RequireFromString(price), Category: domain.CategoryLunch}
}

func TestAddItem(t *testing.T) {
	c := New(&gate{open: true})

	require.True(t, c.AddItem(item("pancakes", "4.00")))
	require.True(t, c.AddItem(item("pancakes", "4.00")))
	require.True(t, c.AddItem(item("coffee", "1.50")))

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "pancakes", lines[0].ID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "", lines[0].Notes)
	assert.Equal(t, 3, c.ItemCount())
	assert.True(t, c.Subtotal().Equal(decimal.RequireFromString("9.50")))
}

func TestAddItem_ClosedIsNoop(t *testing.T) {
	g := &gate{open: true}
	c := New(g)
	c.AddItem(item("pancakes", "4.00"))

	g.open = false
	assert.False(t, c.AddItem(item("pancakes", "4.00")))
	assert.False(t, c.AddItem(item("coffee", "1.50")))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestUpdateQuantityAndRemove(t *testing.T) {
	c := New(nil)
	c.AddItem(item("tea", "1.20"))

	c.UpdateQuantity("tea", 7)
	assert.Equal(t, 7, c.Lines()[0].Quantity)

	c.UpdateQuantity("tea", 0)
	assert.True(t, c.Empty())

	c.AddItem(item("tea", "1.20"))
	c.UpdateQuantity("tea", -3)
	assert.True(t, c.Empty())

	// removing an absent line is fine
	c.RemoveItem("tea")
	c.UpdateQuantity("ghost", 2)
	assert.True(t, c.Empty())
}

func TestUpdateNotes(t *testing.T) {
	c := New(nil)
	c.AddItem(item("beef-burger", "5.50"))
	c.UpdateNotes("beef-burger", "no onions <b>")
	assert.Equal(t, "no onions <b>", c.Lines()[0].Notes)
}

func TestDeduct(t *testing.T) {
	c := New(nil)
	c.AddItem(item("pancakes", "4.00"))
	c.AddItem(item("pancakes", "4.00"))
	c.AddItem(item("coffee", "1.50"))
	snapshot := c.Lines()

	// changes made while the snapshot was being submitted
	c.AddItem(item("pancakes", "4.00"))
	c.AddItem(item("tea", "1.20"))

	c.Deduct(snapshot)

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "pancakes", lines[0].ID)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, "tea", lines[1].ID)
	assert.True(t, c.Subtotal().Equal(decimal.RequireFromString("5.20")))

	// lines already gone are skipped
	c.Deduct(snapshot)
	assert.Equal(t, []string{"tea"}, []string{c.Lines()[0].ID})
}

func TestLinesIsSnapshot(t *testing.T) {
	c := New(nil)
	c.AddItem(item("water", "1.00"))
	lines := c.Lines()
	lines[0].Quantity = 99
	assert.Equal(t, 1, c.Lines()[0].Quantity)
}

// Random operation sequences never leave a line with quantity <= 0 and the
// subtotal always matches the lines.
func TestRandomSequences(t *testing.T) {
	menu := []domain.MenuItem{item("a", "1.10"), item("b", "2.25"), item("c", "0.00"), item("d", "7.99")}
	r := rand.New(rand.NewSource(42))
	g := &gate{open: true}

	for run := 0; run < 200; run++ {
		c := New(g)
		for step := 0; step < 50; step++ {
			it := menu[r.Intn(len(menu))]
			switch r.Intn(4) {
			case 0:
				g.open = r.Intn(5) != 0
				c.AddItem(it)
			case 1:
				c.UpdateQuantity(it.ID, r.Intn(7)-3)
			case 2:
				c.RemoveItem(it.ID)
			case 3:
				c.UpdateNotes(it.ID, "x")
			}
		}

		want := decimal.Zero
		seen := map[string]bool{}
		for _, l := range c.Lines() {
			require.GreaterOrEqual(t, l.Quantity, 1)
			require.False(t, seen[l.ID], "one line per id")
			seen[l.ID] = true
			want = want.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
		require.True(t, c.Subtotal().Equal(want))
	}
}
