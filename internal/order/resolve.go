package order

import "strings"

// categorySynonyms maps common guest vocabulary onto canonical category
// terms. Both sides are compared in canonical form, so "starter" matches an
// "Appetizers" category.
var categorySynonyms = map[string]string{
	"starter":   "appetizer",
	"appetiser": "appetizer",
	"entree":    "main",
	"mains":     "main",
	"beverage":  "drink",
	"soda":      "drink",
	"sweet":     "dessert",
	"pudding":   "dessert",
}

// ResolveCategory finds a category by exact ID first, then by a name-based
// fallback chain: normalized case-insensitive match, singular/plural
// variants, the synonym table, and finally substring containment. The first
// match in that priority order wins; nil means not found, never a panic or
// error.
func (c *MenuCatalog) ResolveCategory(query string) *Category {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	for i := range c.Categories {
		if c.Categories[i].ID == query {
			return &c.Categories[i]
		}
	}

	q := normalize(query)
	for i := range c.Categories {
		if normalize(c.Categories[i].Name) == q {
			return &c.Categories[i]
		}
	}
	for i := range c.Categories {
		if singular(normalize(c.Categories[i].Name)) == singular(q) {
			return &c.Categories[i]
		}
	}
	for i := range c.Categories {
		if canonical(c.Categories[i].Name) == canonical(query) {
			return &c.Categories[i]
		}
	}
	for i := range c.Categories {
		name := normalize(c.Categories[i].Name)
		if strings.Contains(name, q) || strings.Contains(q, name) {
			return &c.Categories[i]
		}
	}
	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func singular(s string) string {
	switch {
	case strings.HasSuffix(s, "ies"):
		return strings.TrimSuffix(s, "ies") + "y"
	case strings.HasSuffix(s, "es") && !strings.HasSuffix(s, "ses"):
		return strings.TrimSuffix(s, "es")
	case strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss"):
		return strings.TrimSuffix(s, "s")
	}
	return s
}

func canonical(s string) string {
	n := singular(normalize(s))
	if c, ok := categorySynonyms[n]; ok {
		return c
	}
	return n
}
