package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/bookie/internal/domain/order"
	"github.com/xenking/bookie/internal/storage/postgres"
)

const (
	progressEvery = 10_000
	queueSize     = 256
)

func main() {
	var (
		databaseURL string
		outPath     string
		status      string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&outPath, "out", "orders.ndjson.gz", "output file")
	flag.StringVar(&status, "status", "", "only export orders in this status")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	var f order.Filter
	if status != "" {
		st, err := order.ParseStatus(status)
		if err != nil {
			slog.Error("invalid status", slog.String("status", status))
			os.Exit(1)
		}
		f.Status = st
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, outPath, f); err != nil {
		slog.Error("order export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("order export completed successfully", slog.String("out", outPath))
}

func run(ctx context.Context, databaseURL, outPath string, f order.Filter) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer pool.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return errors.Wrapf(err, "create %s", outPath)
	}
	defer func() { _ = out.Close() }()

	n, err := export(ctx, postgres.NewOrderRepository(pool), f, out)
	if err != nil {
		return err
	}
	slog.Info("orders written", slog.Int("count", n))
	return out.Sync()
}

// export writes every order matching f to w as gzip-compressed NDJSON,
// newest first. Encoding runs concurrently with the repository read.
func export(ctx context.Context, repo order.Repository, f order.Filter, w io.Writer) (int, error) {
	gz := pgzip.NewWriter(w)

	queue := make(chan order.Order, queueSize)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)
		orders, err := repo.List(ctx, f)
		if err != nil {
			return errors.Wrap(err, "list orders")
		}
		for _, o := range orders {
			select {
			case queue <- o:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var written int
	g.Go(func() error {
		e := jx.GetEncoder()
		defer jx.PutEncoder(e)
		for o := range queue {
			e.Reset()
			encodeRecord(e, &o)
			if _, err := gz.Write(append(e.Bytes(), '\n')); err != nil {
				return errors.Wrap(err, "write record")
			}
			written++
			if written%progressEvery == 0 {
				slog.Info("progress", slog.Int("written", written))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		_ = gz.Close()
		return written, err
	}
	if err := gz.Close(); err != nil {
		return written, errors.Wrap(err, "flush gzip")
	}
	return written, nil
}

func encodeRecord(e *jx.Encoder, o *order.Order) {
	str := func(name, v string) { e.Field(name, func(e *jx.Encoder) { e.Str(v) }) }
	num := func(name, v string) { e.Field(name, func(e *jx.Encoder) { e.Num(jx.Num(v)) }) }

	e.Obj(func(e *jx.Encoder) {
		str("id", o.ID)
		str("userId", o.OwnerID)
		str("userEmail", o.OwnerContact)
		str("status", o.Status.String())
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						str("id", it.ItemID)
						str("title", it.Title)
						num("price", it.UnitPrice.StringFixed(2))
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
					})
				}
			})
		})
		num("subtotal", o.Subtotal.StringFixed(2))
		num("shipping", o.Shipping.StringFixed(2))
		num("total", o.Total.StringFixed(2))
		str("currency", o.Currency)
		str("createdAt", o.CreatedAt.UTC().Format(time.RFC3339))
	})
}
