package catalog

// Product is the inventory authority's answer for a product lookup. Exists is
// false when the catalog no longer knows the ID; such lines are dropped
// during revalidation.
type Product struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Stock  int    `json:"stock"`
	Exists bool   `json:"exists"`
}

// InStock reports whether the product can still be carted at all.
func (p *Product) InStock() bool {
	return p != nil && p.Exists && p.Stock > 0
}
