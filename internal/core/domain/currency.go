package domain

import "fmt"

// Denomination is the short code of a coin type as stored on disk.
type Denomination string

const (
	Copper   Denomination = "cp"
	Silver   Denomination = "sp"
	Electrum Denomination = "ep"
	Gold     Denomination = "gp"
	Platinum Denomination = "pp"
)

// Denominations lists the coin types from least to most valuable.
var Denominations = []Denomination{Copper, Silver, Electrum, Gold, Platinum}

var denominationNames = map[Denomination]string{
	Copper:   "Copper",
	Silver:   "Silver",
	Electrum: "Electrum",
	Gold:     "Gold",
	Platinum: "Platinum",
}

// Name returns the display name, e.g. "Gold".
func (d Denomination) Name() string {
	if name, ok := denominationNames[d]; ok {
		return name
	}
	return string(d)
}

func (d Denomination) Valid() bool {
	_, ok := denominationNames[d]
	return ok
}

// ParseDenomination accepts a short code ("gp").
func ParseDenomination(s string) (Denomination, error) {
	d := Denomination(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown denomination %q", s)
	}
	return d, nil
}

// Currency holds the guild purse. It always carries all five denominations
// and no amount is ever negative.
type Currency map[Denomination]int

// NewCurrency returns a purse with every denomination at zero.
func NewCurrency() Currency {
	c := make(Currency, len(Denominations))
	for _, d := range Denominations {
		c[d] = 0
	}
	return c
}

func (c Currency) Deposit(d Denomination, amount int) int {
	c[d] += amount
	return c[d]
}

// Withdraw subtracts amount from d, clamping the balance at zero.
func (c Currency) Withdraw(d Denomination, amount int) int {
	c[d] = max(0, c[d]-amount)
	return c[d]
}

func (c Currency) Clone() Currency {
	out := NewCurrency()
	for k, v := range c {
		out[k] = v
	}
	return out
}
