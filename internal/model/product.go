package model

import "time"

// Product is an allow-listed catalog entry. Orders may only reference
// active products and one of their declared options.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Options   []string  `json:"options"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"-"`
}

// HasOption reports whether name is one of the product's declared options.
func (p *Product) HasOption(name string) bool {
	for _, opt := range p.Options {
		if opt == name {
			return true
		}
	}
	return false
}
