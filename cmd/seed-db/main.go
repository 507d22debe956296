package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/bookie/internal/domain/auth"
	"github.com/xenking/bookie/internal/handler"
	"github.com/xenking/bookie/internal/storage/postgres"
)

type options struct {
	databaseURL string
	secret      string
	issuer      string
	ttl         time.Duration
	adminEmail  string
	userEmail   string
}

func main() {
	var opts options

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.secret, "auth-secret", "", "HS256 token secret (or BOOKIE_AUTH_SECRET env)")
	flag.StringVar(&opts.issuer, "issuer", "bookie", "token issuer")
	flag.DurationVar(&opts.ttl, "ttl", 24*time.Hour, "token lifetime")
	flag.StringVar(&opts.adminEmail, "admin-email", "admin@bookie.local", "demo admin contact")
	flag.StringVar(&opts.userEmail, "customer-email", "reader@bookie.local", "demo customer contact")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if opts.secret == "" {
		opts.secret = os.Getenv("BOOKIE_AUTH_SECRET")
	}
	if opts.secret == "" {
		slog.Error("auth secret is required: set --auth-secret or BOOKIE_AUTH_SECRET")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, opts options) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "migrate")
	}

	tokens := handler.NewTokenAuthority(opts.secret, opts.issuer)
	demo := []auth.Session{
		{UserID: "demo-admin", Contact: opts.adminEmail, Role: auth.RoleAdmin},
		{UserID: "demo-customer", Contact: opts.userEmail, Role: auth.RoleCustomer},
	}
	for _, sess := range demo {
		token, err := tokens.Issue(sess, opts.ttl)
		if err != nil {
			return errors.Wrapf(err, "issue %s token", sess.Role)
		}
		slog.Info("issued token", slog.String("role", string(sess.Role)), slog.String("user", sess.UserID))
		fmt.Printf("%s\t%s\n", sess.Role, token)
	}
	return nil
}
