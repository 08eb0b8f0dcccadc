package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/guild-bag/internal/core/domain"
)

// Mock StateRepository
type mockStateRepo struct {
	mu      sync.Mutex
	state   domain.State
	saves   int
	failErr error
}

func newMockStateRepo() *mockStateRepo {
	return &mockStateRepo{state: domain.NewState()}
}

func (m *mockStateRepo) Load(ctx context.Context) (domain.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone(), nil
}

func (m *mockStateRepo) Save(ctx context.Context, s domain.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.state = s.Clone()
	m.saves++
	return nil
}

func (m *mockStateRepo) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func newService(t *testing.T, repo *mockStateRepo) *BagService {
	t.Helper()
	svc, err := NewBagService(context.Background(), repo, 0)
	require.NoError(t, err)
	return svc
}

func TestAddItem_Accumulates(t *testing.T) {
	ctx := context.Background()
	repo := newMockStateRepo()
	svc := newService(t, repo)

	_, err := svc.AddItem(ctx, "Potion of Healing", 2)
	require.NoError(t, err)
	qty, err := svc.AddItem(ctx, "Potion of Healing", 3)
	require.NoError(t, err)

	assert.Equal(t, 5, qty)
	assert.Equal(t, 2, repo.saveCount(), "every add saves")
	assert.Equal(t, 5, repo.state.Inventory["Potion of Healing"])
}

func TestAddItem_RejectsNonPositive(t *testing.T) {
	repo := newMockStateRepo()
	svc := newService(t, repo)

	for _, count := range []int{0, -4} {
		_, err := svc.AddItem(context.Background(), "rope", count)
		assert.ErrorIs(t, err, ErrNonPositiveCount)
	}
	_, err := svc.AddItem(context.Background(), "", 1)
	assert.ErrorIs(t, err, ErrEmptyItemName)
	assert.Zero(t, repo.saveCount())
}

func TestRemoveItem_InsufficientLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := newMockStateRepo()
	svc := newService(t, repo)

	_, err := svc.AddItem(ctx, "torch", 2)
	require.NoError(t, err)

	_, err = svc.RemoveItem(ctx, "torch", 3)
	assert.ErrorIs(t, err, ErrInsufficientItems)
	_, err = svc.RemoveItem(ctx, "lantern", 1)
	assert.ErrorIs(t, err, ErrInsufficientItems)

	assert.Equal(t, 2, svc.Snapshot().Inventory["torch"])
	assert.Equal(t, 1, repo.saveCount(), "failed removes do not save")
}

func TestRemoveItem_ExactQuantityDeletes(t *testing.T) {
	ctx := context.Background()
	repo := newMockStateRepo()
	svc := newService(t, repo)

	_, err := svc.AddItem(ctx, "torch", 2)
	require.NoError(t, err)
	qty, err := svc.RemoveItem(ctx, "torch", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, qty)

	qty, err = svc.RemoveItem(ctx, "torch", 1)
	require.NoError(t, err)
	assert.Zero(t, qty)

	_, ok := svc.Snapshot().Inventory["torch"]
	assert.False(t, ok)
	_, ok = repo.state.Inventory["torch"]
	assert.False(t, ok, "deletion is persisted")
	assert.Equal(t, 3, repo.saveCount())
}

func TestListItems_Pagination(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, newMockStateRepo())

	for i := 0; i < 30; i++ {
		_, err := svc.AddItem(ctx, fmt.Sprintf("item-%02d", i), i+1)
		require.NoError(t, err)
	}

	page, err := svc.ListItems(1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 25)
	assert.Equal(t, "item-00", page.Items[0].Name)

	page, err = svc.ListItems(2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, domain.ItemLine{Name: "item-29", Quantity: 30}, page.Items[4])

	for _, bad := range []int{0, -1, 3} {
		_, err = svc.ListItems(bad)
		var pageErr *InvalidPageError
		require.ErrorAs(t, err, &pageErr)
		assert.Equal(t, 2, pageErr.TotalPages)
		assert.ErrorIs(t, err, ErrInvalidPage)
	}
}

func TestListItems_EmptyBagAnyPage(t *testing.T) {
	svc := newService(t, newMockStateRepo())

	for _, page := range []int{1, 0, 7} {
		_, err := svc.ListItems(page)
		assert.ErrorIs(t, err, ErrEmptyBag)
	}
}

func TestWishlist_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := newMockStateRepo()
	svc := newService(t, repo)

	require.NoError(t, svc.AddWish(ctx, "Vorpal Sword"))
	assert.ErrorIs(t, svc.AddWish(ctx, "Vorpal Sword"), ErrWishExists)
	assert.Equal(t, domain.Wishlist{"Vorpal Sword"}, svc.Wishlist())
	assert.Equal(t, 1, repo.saveCount())

	assert.ErrorIs(t, svc.RemoveWish(ctx, "Cloak"), ErrWishMissing)
	require.NoError(t, svc.RemoveWish(ctx, "Vorpal Sword"))
	assert.Empty(t, svc.Wishlist())
	assert.Equal(t, 2, repo.saveCount())
}

func TestWishlist_SeparateFromInventory(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, newMockStateRepo())

	require.NoError(t, svc.AddWish(ctx, "Cloak"))
	_, err := svc.AddItem(ctx, "wishlist", 1)
	require.NoError(t, err)

	page, err := svc.ListItems(1)
	require.NoError(t, err)
	assert.Equal(t, []domain.ItemLine{{Name: "wishlist", Quantity: 1}}, page.Items)
	assert.Equal(t, domain.Wishlist{"Cloak"}, svc.Wishlist())
}

func TestWithdraw_ClampsAtZero(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, newMockStateRepo())

	for _, d := range domain.Denominations {
		_, err := svc.Deposit(ctx, d, 10)
		require.NoError(t, err)

		balance, err := svc.Withdraw(ctx, d, 4)
		require.NoError(t, err)
		assert.Equal(t, 6, balance)

		balance, err = svc.Withdraw(ctx, d, 50)
		require.NoError(t, err)
		assert.Zero(t, balance)
		assert.Zero(t, svc.Currency()[d])
	}
}

func TestCurrency_RejectsNegative(t *testing.T) {
	repo := newMockStateRepo()
	svc := newService(t, repo)

	_, err := svc.Deposit(context.Background(), domain.Gold, -5)
	assert.ErrorIs(t, err, ErrNegativeAmount)
	_, err = svc.Withdraw(context.Background(), domain.Gold, -5)
	assert.ErrorIs(t, err, ErrNegativeAmount)
	_, err = svc.Deposit(context.Background(), domain.Denomination("xp"), 1)
	assert.Error(t, err)
	assert.Zero(t, repo.saveCount())
}

func TestAdd_RejectsOverflow(t *testing.T) {
	ctx := context.Background()
	repo := newMockStateRepo()
	svc := newService(t, repo)

	_, err := svc.AddItem(ctx, "rope", math.MaxInt)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "rope", 1)
	assert.ErrorIs(t, err, ErrQuantityOverflow)
	assert.Equal(t, math.MaxInt, svc.Snapshot().Inventory["rope"])

	_, err = svc.Deposit(ctx, domain.Gold, math.MaxInt)
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, domain.Gold, 1)
	assert.ErrorIs(t, err, ErrQuantityOverflow)
	assert.Equal(t, math.MaxInt, svc.Currency()[domain.Gold])

	// Zero still fits at the limit.
	_, err = svc.Deposit(ctx, domain.Gold, 0)
	assert.NoError(t, err)
	assert.Equal(t, 3, repo.saveCount())
}

func TestMutation_RollsBackWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	repo := newMockStateRepo()
	svc := newService(t, repo)

	_, err := svc.AddItem(ctx, "torch", 1)
	require.NoError(t, err)

	diskFull := errors.New("disk full")
	repo.failErr = diskFull

	_, err = svc.AddItem(ctx, "torch", 5)
	assert.ErrorIs(t, err, diskFull)
	_, err = svc.Deposit(ctx, domain.Gold, 5)
	assert.ErrorIs(t, err, diskFull)

	snap := svc.Snapshot()
	assert.Equal(t, 1, snap.Inventory["torch"])
	assert.Zero(t, snap.Currency[domain.Gold])
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	repo := newMockStateRepo()
	svc := newService(t, repo)

	next := domain.NewState()
	next.Inventory["map"] = 1
	next.Wishlist = domain.Wishlist{"compass"}
	require.NoError(t, svc.Replace(ctx, next))

	assert.Equal(t, next, svc.Snapshot())
	assert.Equal(t, next, repo.state)
}

func TestConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, newMockStateRepo())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddItem(ctx, "arrow", 1); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, svc.Snapshot().Inventory["arrow"])
}
