package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/rl1809/guild-bag/internal/core/domain"
)

// legacyWishlistKey is where older files kept the wishlist, inside the
// inventory object.
const legacyWishlistKey = "wishlist"

const documentSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"inventory": {
			"type": "object",
			"properties": {
				"wishlist": {
					"type": ["integer", "array"],
					"items": {"type": "string"}
				}
			},
			"additionalProperties": {"type": "integer"}
		},
		"wishlist": {
			"type": "array",
			"items": {"type": "string"}
		},
		"currency": {
			"type": "object",
			"properties": {
				"cp": {"type": "integer"},
				"sp": {"type": "integer"},
				"ep": {"type": "integer"},
				"gp": {"type": "integer"},
				"pp": {"type": "integer"}
			},
			"additionalProperties": false
		}
	}
}`

var schema = jsonschema.MustCompileString("guildbag-document.schema.json", documentSchema)

type document struct {
	Inventory map[string]int `json:"inventory"`
	Wishlist  []string       `json:"wishlist"`
	Currency  map[string]int `json:"currency"`
}

type rawDocument struct {
	Inventory map[string]json.RawMessage `json:"inventory"`
	Wishlist  []string                   `json:"wishlist"`
	Currency  map[string]int             `json:"currency"`
}

func encodeState(s domain.State) ([]byte, error) {
	doc := document{
		Inventory: make(map[string]int, len(s.Inventory)),
		Wishlist:  make([]string, 0, len(s.Wishlist)),
		Currency:  make(map[string]int, len(domain.Denominations)),
	}
	for name, qty := range s.Inventory {
		doc.Inventory[name] = qty
	}
	doc.Wishlist = append(doc.Wishlist, s.Wishlist...)
	for _, d := range domain.Denominations {
		doc.Currency[string(d)] = s.Currency[d]
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return data, nil
}

// decodeState validates and decodes a stored document. Quantities that are not
// positive are dropped and negative balances are clamped so the loaded state
// satisfies the domain invariants.
func decodeState(data []byte) (domain.State, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.NewState(), nil
	}

	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return domain.State{}, fmt.Errorf("parse state: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		return domain.State{}, fmt.Errorf("validate state: %w", err)
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.State{}, fmt.Errorf("decode state: %w", err)
	}

	s := domain.NewState()
	var legacy []string
	for name, value := range raw.Inventory {
		if name == legacyWishlistKey && bytes.HasPrefix(bytes.TrimSpace(value), []byte("[")) {
			if err := json.Unmarshal(value, &legacy); err != nil {
				return domain.State{}, fmt.Errorf("decode legacy wishlist: %w", err)
			}
			continue
		}
		var qty int
		if err := json.Unmarshal(value, &qty); err != nil {
			return domain.State{}, fmt.Errorf("decode quantity of %q: %w", name, err)
		}
		if qty > 0 {
			s.Inventory[name] = qty
		}
	}

	for _, item := range append(legacy, raw.Wishlist...) {
		s.Wishlist, _ = s.Wishlist.Add(item)
	}

	for _, d := range domain.Denominations {
		s.Currency[d] = max(0, raw.Currency[string(d)])
	}
	return s, nil
}
