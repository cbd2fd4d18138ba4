package order

import "fmt"

// MenuCatalog is per-chatbot configuration: read-mostly, mutated only by an
// external editor, treated as an immutable snapshot for a request's duration.
type MenuCatalog struct {
	Categories []Category `json:"categories" yaml:"categories"`
	MenuItems  []MenuItem `json:"menuItems" yaml:"menuItems"`
	Tables     []Table    `json:"tables" yaml:"tables"`
	Currency   string     `json:"currency" yaml:"currency"`
	// Translations maps language -> string key -> localized text.
	Translations map[string]map[string]string `json:"translations,omitempty" yaml:"translations,omitempty"`
}

type Category struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type MenuItem struct {
	ID          string `json:"id" yaml:"id"`
	CategoryID  string `json:"categoryId" yaml:"categoryId"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	PriceCents  int64  `json:"priceCents" yaml:"priceCents"`
	Available   bool   `json:"available" yaml:"available"`
	ImageURL    string `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
}

type Table struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Localize resolves a user-facing string through the catalog translations,
// falling back to the provided English text. It never returns an empty
// string for a non-empty fallback.
func (c *MenuCatalog) Localize(lang, key, fallback string) string {
	if c != nil && lang != "" {
		if table, ok := c.Translations[lang]; ok {
			if s, ok := table[key]; ok && s != "" {
				return s
			}
		}
	}
	return fallback
}

// ItemByID returns the catalog item with the given ID, or nil.
func (c *MenuCatalog) ItemByID(id string) *MenuItem {
	for i := range c.MenuItems {
		if c.MenuItems[i].ID == id {
			return &c.MenuItems[i]
		}
	}
	return nil
}

// TableByRef matches a table by ID or name, or returns nil.
func (c *MenuCatalog) TableByRef(ref string) *Table {
	for i := range c.Tables {
		if c.Tables[i].ID == ref || c.Tables[i].Name == ref {
			return &c.Tables[i]
		}
	}
	return nil
}

// FormatPrice renders a cent amount in the catalog currency.
func (c *MenuCatalog) FormatPrice(cents int64) string {
	currency := c.Currency
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}
