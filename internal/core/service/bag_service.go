package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rl1809/guild-bag/internal/core/domain"
	"github.com/rl1809/guild-bag/internal/port"
)

const DefaultPageSize = 25

var (
	ErrInsufficientItems = errors.New("insufficient items")
	ErrEmptyBag          = errors.New("bag is empty")
	ErrInvalidPage       = errors.New("invalid page")
	ErrWishExists        = errors.New("already in the wish list")
	ErrWishMissing       = errors.New("not in the wish list")
	ErrNegativeAmount    = errors.New("amount must not be negative")
	ErrNonPositiveCount  = errors.New("count must be positive")
	ErrEmptyItemName     = errors.New("item name is empty")
	ErrQuantityOverflow  = errors.New("quantity would overflow")
)

// InvalidPageError carries the page bounds for the reply.
type InvalidPageError struct {
	Page       int
	TotalPages int
}

func (e *InvalidPageError) Error() string {
	return fmt.Sprintf("page %d outside 1..%d", e.Page, e.TotalPages)
}

func (e *InvalidPageError) Unwrap() error { return ErrInvalidPage }

// Page is one page of the inventory listing.
type Page struct {
	Number     int
	TotalPages int
	Items      []domain.ItemLine
}

// BagService owns the guild state. Every mutation is applied to a copy
// that replaces the live state only after the repository saved it.
type BagService struct {
	repo     port.StateRepository
	pageSize int

	mu    sync.Mutex
	state domain.State
}

// NewBagService loads the saved state from repo.
func NewBagService(ctx context.Context, repo port.StateRepository, pageSize int) (*BagService, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	s, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return &BagService{repo: repo, pageSize: pageSize, state: s.Clone()}, nil
}

func (s *BagService) mutate(ctx context.Context, fn func(st *domain.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	s.state = next
	return nil
}

// AddItem adds count units of item and returns the new quantity.
func (s *BagService) AddItem(ctx context.Context, item string, count int) (int, error) {
	if item == "" {
		return 0, ErrEmptyItemName
	}
	if count <= 0 {
		return 0, ErrNonPositiveCount
	}

	var qty int
	err := s.mutate(ctx, func(st *domain.State) error {
		if st.Inventory.Quantity(item) > math.MaxInt-count {
			return ErrQuantityOverflow
		}
		qty = st.Inventory.Add(item, count)
		return nil
	})
	return qty, err
}

// RemoveItem takes count units of item out of the bag. Nothing changes and
// nothing is saved when fewer than count units are present.
func (s *BagService) RemoveItem(ctx context.Context, item string, count int) (int, error) {
	if item == "" {
		return 0, ErrEmptyItemName
	}
	if count <= 0 {
		return 0, ErrNonPositiveCount
	}

	var qty int
	err := s.mutate(ctx, func(st *domain.State) error {
		if !st.Inventory.Take(item, count) {
			return ErrInsufficientItems
		}
		qty = st.Inventory.Quantity(item)
		return nil
	})
	return qty, err
}

// ListItems returns page (1-based) of the inventory sorted by item name.
func (s *BagService) ListItems(page int) (Page, error) {
	s.mu.Lock()
	lines := s.state.Inventory.Lines()
	s.mu.Unlock()

	if len(lines) == 0 {
		return Page{}, ErrEmptyBag
	}

	total := (len(lines) + s.pageSize - 1) / s.pageSize
	if page < 1 || page > total {
		return Page{}, &InvalidPageError{Page: page, TotalPages: total}
	}

	start := (page - 1) * s.pageSize
	end := min(start+s.pageSize, len(lines))
	return Page{Number: page, TotalPages: total, Items: lines[start:end]}, nil
}

func (s *BagService) Wishlist() domain.Wishlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Wishlist.Clone()
}

func (s *BagService) AddWish(ctx context.Context, item string) error {
	if item == "" {
		return ErrEmptyItemName
	}
	return s.mutate(ctx, func(st *domain.State) error {
		var added bool
		st.Wishlist, added = st.Wishlist.Add(item)
		if !added {
			return ErrWishExists
		}
		return nil
	})
}

func (s *BagService) RemoveWish(ctx context.Context, item string) error {
	if item == "" {
		return ErrEmptyItemName
	}
	return s.mutate(ctx, func(st *domain.State) error {
		var removed bool
		st.Wishlist, removed = st.Wishlist.Remove(item)
		if !removed {
			return ErrWishMissing
		}
		return nil
	})
}

// Deposit adds amount to denomination d and returns the new balance.
func (s *BagService) Deposit(ctx context.Context, d domain.Denomination, amount int) (int, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}
	if !d.Valid() {
		return 0, fmt.Errorf("deposit: unknown denomination %q", d)
	}

	var balance int
	err := s.mutate(ctx, func(st *domain.State) error {
		if st.Currency[d] > math.MaxInt-amount {
			return ErrQuantityOverflow
		}
		balance = st.Currency.Deposit(d, amount)
		return nil
	})
	return balance, err
}

// Withdraw subtracts amount from denomination d, clamping at zero.
func (s *BagService) Withdraw(ctx context.Context, d domain.Denomination, amount int) (int, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}
	if !d.Valid() {
		return 0, fmt.Errorf("withdraw: unknown denomination %q", d)
	}

	var balance int
	err := s.mutate(ctx, func(st *domain.State) error {
		balance = st.Currency.Withdraw(d, amount)
		return nil
	})
	return balance, err
}

func (s *BagService) Currency() domain.Currency {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Currency.Clone()
}

// Snapshot returns a copy of the whole state.
func (s *BagService) Snapshot() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Replace swaps in a whole new state, saving it first.
func (s *BagService) Replace(ctx context.Context, next domain.State) error {
	return s.mutate(ctx, func(st *domain.State) error {
		*st = next.Clone()
		return nil
	})
}
