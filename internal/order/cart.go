package order

// CartLine is one accumulated item in a conversation's cart.
type CartLine struct {
	ItemID         string `json:"itemId"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

// Cart is the in-progress order for one conversation. Lines are keyed by
// item ID: a repeated add increments the existing line instead of appending
// a duplicate. The cart does not deduplicate across distinct add calls, so
// submitting the same logical add twice intentionally doubles the quantity.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// Add merges (item, qty) into the cart.
func (c *Cart) Add(item MenuItem, qty int) {
	if qty < 1 {
		qty = 1
	}
	for i := range c.Lines {
		if c.Lines[i].ItemID == item.ID {
			c.Lines[i].Quantity += qty
			return
		}
	}
	c.Lines = append(c.Lines, CartLine{
		ItemID:         item.ID,
		Name:           item.Name,
		Quantity:       qty,
		UnitPriceCents: item.PriceCents,
	})
}

func (c *Cart) Empty() bool {
	return len(c.Lines) == 0
}

// SubtotalCents sums the cart at its recorded unit prices. Order submission
// recomputes the subtotal from the catalog instead of trusting this value.
func (c *Cart) SubtotalCents() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.UnitPriceCents * int64(l.Quantity)
	}
	return total
}
