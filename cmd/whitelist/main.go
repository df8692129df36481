// Command whitelist manages the access lists from a shell, against the same
// storage the server is configured with.
//
// Usage:
//
//	whitelist seed <email>...       whitelist addresses directly
//	whitelist migrate-accounts      whitelist the email of every existing account
//	whitelist list-pending          print the pending requests, oldest first
//	whitelist approve <email>       approve a pending request
//	whitelist reject <email>        reject a pending request
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/config"
	"github.com/sakif/family-catalog/internal/identkey"
	"github.com/sakif/family-catalog/internal/repository"
	"github.com/sakif/family-catalog/internal/server"
	"github.com/sakif/family-catalog/internal/service"
)

var errUsage = errors.New("usage: whitelist seed <email>... | migrate-accounts | list-pending | approve <email> | reject <email>")

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, logger *slog.Logger) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := config.Load(os.Getenv("CATALOG_CONFIG"))
	if err != nil {
		return err
	}

	backend, err := server.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	return dispatch(ctx, args, out, newTool(backend.Store, backend.Accounts, logger))
}

// tool carries the pieces every subcommand needs.
type tool struct {
	admin    *service.AdminService
	accounts repository.AccountRepository
}

func newTool(store repository.Store, accounts repository.AccountRepository, logger *slog.Logger) *tool {
	admin := service.NewAdminService(
		repository.NewKVWhitelist(store),
		repository.NewKVPendingRequests(store),
		repository.NewKVRepairs(store),
		logger,
	)
	return &tool{admin: admin, accounts: accounts}
}

func dispatch(ctx context.Context, args []string, out io.Writer, t *tool) error {
	switch cmd, rest := args[0], args[1:]; cmd {
	case "seed":
		if len(rest) == 0 {
			return errUsage
		}
		n, err := t.admin.SeedWhitelist(ctx, rest...)
		fmt.Fprintf(out, "whitelisted %d of %d\n", n, len(rest))
		return err

	case "migrate-accounts":
		return t.migrateAccounts(ctx, out)

	case "list-pending":
		return t.listPending(ctx, out)

	case "approve", "reject":
		if len(rest) != 1 {
			return errUsage
		}
		email := identkey.Normalize(rest[0])
		key := identkey.Encode(email)
		action, done := t.admin.Approve, "approved"
		if cmd == "reject" {
			action, done = t.admin.Reject, "rejected"
		}
		if err := action(ctx, key); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", done, email)
		return nil

	default:
		return errUsage
	}
}

// migrateAccounts whitelists every account that already exists, so that
// turning the whitelist on does not lock out current users. Accounts whose
// email is rejected are reported and skipped; a store failure stops the run.
func (t *tool) migrateAccounts(ctx context.Context, out io.Writer) error {
	accounts, err := t.accounts.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("listing accounts: %w", err)
	}

	migrated, skipped := 0, 0
	for _, a := range accounts {
		if a.Email == "" {
			fmt.Fprintf(out, "skipping account %s: no email\n", a.ID)
			skipped++
			continue
		}
		if _, err := t.admin.SeedWhitelist(ctx, a.Email); err != nil {
			if errors.Is(err, apperror.ErrValidation) {
				fmt.Fprintf(out, "skipping account %s: %v\n", a.ID, err)
				skipped++
				continue
			}
			fmt.Fprintf(out, "migrated %d of %d accounts before failing\n", migrated, len(accounts))
			return fmt.Errorf("whitelisting account %s: %w", a.ID, err)
		}
		migrated++
	}

	fmt.Fprintf(out, "migrated %d of %d accounts, skipped %d\n", migrated, len(accounts), skipped)
	return nil
}

func (t *tool) listPending(ctx context.Context, out io.Writer) error {
	reqs, err := t.admin.ListPending(ctx)
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		fmt.Fprintln(out, "no pending requests")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tREQUESTED\tKEY")
	for _, r := range reqs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Email, r.RequestedAt.Format(time.RFC3339), r.Key)
	}
	return tw.Flush()
}
