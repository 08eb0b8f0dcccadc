package domain

// State is everything the bot persists.
type State struct {
	Inventory Inventory
	Currency  Currency
	Wishlist  Wishlist
}

// NewState returns the state used when nothing has been saved yet.
func NewState() State {
	return State{
		Inventory: Inventory{},
		Currency:  NewCurrency(),
	}
}

// Clone returns a deep copy so a mutation can be discarded if saving fails.
func (s State) Clone() State {
	out := State{
		Inventory: s.Inventory.Clone(),
		Currency:  s.Currency.Clone(),
		Wishlist:  s.Wishlist.Clone(),
	}
	if out.Inventory == nil {
		out.Inventory = Inventory{}
	}
	return out
}
