package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-faster/errors"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func properties(t *testing.T) *gopter.Properties {
	t.Helper()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	return gopter.NewProperties(parameters)
}

// applyOps replays a generated sequence of mutations against a store. ops
// selects add, update or remove; ids and qtys are consumed cyclically.
func applyOps(s *Store, ops, ids, qtys []int) error {
	ctx := context.Background()
	pick := func(xs []int, i int) int {
		if len(xs) == 0 {
			return 0
		}
		return xs[i%len(xs)]
	}
	for i, op := range ops {
		id := fmt.Sprintf("b%d", pick(ids, i))
		qty := pick(qtys, i)
		var err error
		switch op {
		case 0:
			if qty < 1 {
				qty = 1
			}
			_, err = s.AddItem(ctx, Item{ID: id, Price: decimal.NewFromInt(int64(pick(ids, i) + 1))}, qty)
		case 1:
			_, err = s.UpdateQuantity(ctx, id, qty)
		default:
			_, err = s.RemoveItem(ctx, id)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func TestCartInvariantsHoldUnderAnyMutationSequence(t *testing.T) {
	props := properties(t)

	props.Property("ids unique, quantities positive, total is sum of lines", prop.ForAll(
		func(ops, ids, qtys []int) bool {
			st := newMapStorage()
			s := NewStore(st, testKey, LogNotifier{})
			if err := applyOps(s, ops, ids, qtys); err != nil {
				return false
			}

			c, err := s.Cart(context.Background())
			if err != nil {
				return false
			}
			if c.validate() != nil {
				return false
			}
			want := decimal.Zero
			for _, it := range c.Items {
				want = want.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
			}
			return c.Total().Equal(want)
		},
		gen.SliceOf(gen.IntRange(0, 2)),
		gen.SliceOf(gen.IntRange(0, 5)),
		gen.SliceOf(gen.IntRange(-2, 6)),
	))

	props.TestingRun(t)
}

func TestAddTwiceSumsQuantities(t *testing.T) {
	props := properties(t)

	props.Property("add q1 then q2 yields a single line of q1+q2 unless it exceeds the cap", prop.ForAll(
		func(q1, q2 int) bool {
			ctx := context.Background()
			s := NewStore(newMapStorage(), testKey, LogNotifier{})
			item := Item{ID: "b1", Price: decimal.RequireFromString("9.99")}
			if _, err := s.AddItem(ctx, item, q1); err != nil {
				return false
			}
			c, err := s.AddItem(ctx, item, q2)
			if q1+q2 > MaxQuantity {
				reloaded, lerr := s.Cart(ctx)
				return errors.Is(err, ErrInvalidQuantity) && lerr == nil &&
					len(reloaded.Items) == 1 && reloaded.Items[0].Quantity == q1
			}
			if err != nil {
				return false
			}
			return len(c.Items) == 1 && c.Items[0].Quantity == q1+q2
		},
		gen.IntRange(1, MaxQuantity),
		gen.IntRange(1, MaxQuantity),
	))

	props.TestingRun(t)
}

func TestPersistedCartSurvivesReload(t *testing.T) {
	props := properties(t)

	props.Property("a fresh store over the same storage sees identical items", prop.ForAll(
		func(ops, ids, qtys []int) bool {
			st := newMapStorage()
			s := NewStore(st, testKey, LogNotifier{})
			if err := applyOps(s, ops, ids, qtys); err != nil {
				return false
			}
			before, err := s.Items(context.Background())
			if err != nil {
				return false
			}
			after, err := NewStore(st, testKey, LogNotifier{}).Items(context.Background())
			if err != nil || len(before) != len(after) {
				return false
			}
			for i := range before {
				if before[i].ID != after[i].ID ||
					before[i].Quantity != after[i].Quantity ||
					!before[i].Price.Equal(after[i].Price) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 2)),
		gen.SliceOf(gen.IntRange(0, 5)),
		gen.SliceOf(gen.IntRange(-2, 6)),
	))

	props.TestingRun(t)
}
