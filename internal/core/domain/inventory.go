package domain

import "sort"

// Inventory maps an item name to its quantity. Stored quantities are always > 0.
type Inventory map[string]int

// ItemLine is one inventory entry as shown by the list command.
type ItemLine struct {
	Name     string
	Quantity int
}

// Quantity returns the current count of name, 0 when absent.
func (inv Inventory) Quantity(name string) int {
	return inv[name]
}

// Add increases the count of name. A result of zero or less removes the entry.
func (inv Inventory) Add(name string, count int) int {
	qty := inv[name] + count
	if qty <= 0 {
		delete(inv, name)
		return 0
	}
	inv[name] = qty
	return qty
}

// Take removes count units of name. It reports false and leaves the
// inventory untouched when fewer than count units are present.
func (inv Inventory) Take(name string, count int) bool {
	qty, ok := inv[name]
	if !ok || qty < count {
		return false
	}
	inv.Add(name, -count)
	return true
}

// Lines returns every entry sorted by name.
func (inv Inventory) Lines() []ItemLine {
	lines := make([]ItemLine, 0, len(inv))
	for name, qty := range inv {
		lines = append(lines, ItemLine{Name: name, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Name < lines[j].Name })
	return lines
}

func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for k, v := range inv {
		out[k] = v
	}
	return out
}
