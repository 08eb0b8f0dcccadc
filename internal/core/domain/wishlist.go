package domain

// Wishlist is an ordered set of item names.
type Wishlist []string

func (w Wishlist) Contains(item string) bool {
	for _, existing := range w {
		if existing == item {
			return true
		}
	}
	return false
}

// Add appends item unless it is already present.
func (w Wishlist) Add(item string) (Wishlist, bool) {
	if w.Contains(item) {
		return w, false
	}
	return append(w, item), true
}

// Remove drops item, keeping the order of the rest.
func (w Wishlist) Remove(item string) (Wishlist, bool) {
	for i, existing := range w {
		if existing == item {
			out := make(Wishlist, 0, len(w)-1)
			out = append(out, w[:i]...)
			return append(out, w[i+1:]...), true
		}
	}
	return w, false
}

func (w Wishlist) Clone() Wishlist {
	if w == nil {
		return nil
	}
	return append(Wishlist(nil), w...)
}
