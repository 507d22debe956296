package cart

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mapStorage struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	saves   int
	loadErr error
	saveErr error
}

func newMapStorage() *mapStorage {
	return &mapStorage{blobs: make(map[string][]byte)}
}

func (m *mapStorage) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	b, ok := m.blobs[key]
	if !ok {
		return nil, ErrNoBlob
	}
	return b, nil
}

func (m *mapStorage) Save(_ context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.blobs[key] = append([]byte(nil), blob...)
	return nil
}

type recordingNotifier struct {
	added  []Item
	counts []int
}

func (n *recordingNotifier) ItemAdded(_ context.Context, item Item) {
	n.added = append(n.added, item)
}

func (n *recordingNotifier) CountChanged(_ context.Context, count int) {
	n.counts = append(n.counts, count)
}

// --- Helpers ---

const testKey = "bookie_cart:u1"

func book(id, price string) Item {
	return Item{
		ID:       id,
		Title:    "Book " + id,
		Creator:  "Author " + id,
		Price:    decimal.RequireFromString(price),
		Currency: "USD",
	}
}

// --- Tests ---

func TestKey(t *testing.T) {
	assert.Equal(t, "bookie_cart:u1", Key("u1"))
}

func TestStore_AddMergesQuantities(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMapStorage(), testKey, nil)

	_, err := s.AddItem(ctx, book("b1", "10.00"), 1)
	require.NoError(t, err)
	c, err := s.AddItem(ctx, book("b1", "10.00"), 2)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
}

func TestStore_AddRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	st := newMapStorage()
	s := NewStore(st, testKey, nil)

	_, err := s.AddItem(ctx, book("b1", "10.00"), 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = s.AddItem(ctx, book("", "10.00"), 1)
	require.ErrorIs(t, err, ErrInvalidItem)

	assert.Zero(t, st.saves)
}

func TestStore_QuantityIsBounded(t *testing.T) {
	ctx := context.Background()
	st := newMapStorage()
	s := NewStore(st, testKey, nil)

	_, err := s.AddItem(ctx, book("other", "1.00"), 2)
	require.NoError(t, err)
	_, err = s.AddItem(ctx, book("b1", "1.00"), MaxQuantity)
	require.NoError(t, err)
	saves := st.saves

	_, err = s.AddItem(ctx, book("b1", "1.00"), 1)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = s.AddItem(ctx, book("b2", "1.00"), math.MaxInt)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = s.UpdateQuantity(ctx, "other", MaxQuantity+1)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, saves, st.saves, "rejected mutations are not persisted")

	// Reloading keeps both lines intact.
	c, err := NewStore(st, testKey, nil).Cart(ctx)
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, MaxQuantity, c.Items[1].Quantity)
	assert.Equal(t, MaxQuantity+2, c.Count())
}

func TestStore_AddDefaultsCurrency(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMapStorage(), testKey, nil)

	it := book("b1", "3.00")
	it.Currency = ""
	c, err := s.AddItem(ctx, it, 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultCurrency, c.Items[0].Currency)
}

func TestStore_UpdateQuantity(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMapStorage(), testKey, nil)

	_, err := s.AddItem(ctx, book("b1", "10.00"), 1)
	require.NoError(t, err)

	c, err := s.UpdateQuantity(ctx, "b1", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Items[0].Quantity)

	c, err = s.UpdateQuantity(ctx, "missing", 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)

	c, err = s.UpdateQuantity(ctx, "b1", 0)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestStore_RemoveItem(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMapStorage(), testKey, nil)

	_, err := s.AddItem(ctx, book("b1", "10.00"), 1)
	require.NoError(t, err)
	_, err = s.AddItem(ctx, book("b2", "5.00"), 1)
	require.NoError(t, err)

	c, err := s.RemoveItem(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "b2", c.Items[0].ID)

	c, err = s.RemoveItem(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
}

func TestStore_Total(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMapStorage(), testKey, nil)

	total, err := s.Total(ctx)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	_, err = s.AddItem(ctx, book("b1", "12.50"), 2)
	require.NoError(t, err)
	_, err = s.AddItem(ctx, book("b2", "4.99"), 1)
	require.NoError(t, err)

	total, err = s.Total(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("29.99").Equal(total), total.String())
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	st := newMapStorage()

	first := NewStore(st, testKey, nil)
	_, err := first.AddItem(ctx, book("b1", "10.00"), 2)
	require.NoError(t, err)

	second := NewStore(st, testKey, nil)
	items, err := second.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b1", items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, decimal.RequireFromString("10.00").Equal(items[0].Price))
}

func TestStore_CorruptBlobResets(t *testing.T) {
	for name, blob := range map[string]string{
		"garbage":        "{not json",
		"duplicate ids":  `{"items":[{"id":"b1","quantity":1},{"id":"b1","quantity":1}]}`,
		"zero quantity":  `{"items":[{"id":"b1","quantity":0}]}`,
		"missing id":     `{"items":[{"quantity":1}]}`,
		"wrong envelope": `[1,2,3]`,
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := newMapStorage()
			st.blobs[testKey] = []byte(blob)
			s := NewStore(st, testKey, nil)

			items, err := s.Items(ctx)
			require.NoError(t, err)
			assert.Empty(t, items)

			c, err := s.AddItem(ctx, book("b1", "1.00"), 1)
			require.NoError(t, err)
			assert.Len(t, c.Items, 1)
		})
	}
}

func TestStore_StorageErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	st := newMapStorage()
	s := NewStore(st, testKey, nil)

	st.saveErr = errors.New("disk full")
	_, err := s.AddItem(ctx, book("b1", "1.00"), 1)
	require.ErrorIs(t, err, st.saveErr)

	st.saveErr = nil
	st.loadErr = errors.New("connection refused")
	_, err = s.Cart(ctx)
	require.ErrorIs(t, err, st.loadErr)
}

func TestStore_ClearPersistsEmptyCart(t *testing.T) {
	ctx := context.Background()
	st := newMapStorage()
	s := NewStore(st, testKey, nil)

	_, err := s.AddItem(ctx, book("b1", "1.00"), 1)
	require.NoError(t, err)
	require.NoError(t, s.Clear(ctx))

	assert.JSONEq(t, `{"items":[]}`, string(st.blobs[testKey]))
	items, err := s.Items(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStore_Notifications(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	s := NewStore(newMapStorage(), testKey, n)

	_, err := s.AddItem(ctx, book("b1", "1.00"), 2)
	require.NoError(t, err)
	_, err = s.AddItem(ctx, book("b2", "1.00"), 1)
	require.NoError(t, err)
	_, err = s.UpdateQuantity(ctx, "b1", 0)
	require.NoError(t, err)

	require.Len(t, n.added, 2)
	assert.Equal(t, "b1", n.added[0].ID)
	assert.Equal(t, 2, n.added[0].Quantity)
	assert.Equal(t, []int{2, 3, 1}, n.counts)
}

func TestStore_ItemsSnapshotIsIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMapStorage(), testKey, nil)

	_, err := s.AddItem(ctx, book("b1", "1.00"), 1)
	require.NoError(t, err)

	items, err := s.Items(ctx)
	require.NoError(t, err)
	items[0].Quantity = 50

	again, err := s.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, again[0].Quantity)
}

func TestStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMapStorage(), testKey, nil)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddItem(ctx, book("b1", "1.00"), 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := s.Cart(ctx)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 20, c.Items[0].Quantity)
}
