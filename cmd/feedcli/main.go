// Command feedcli is a terminal client for the feed API.
//
// It hosts the same screens as the web clients (feed, post detail, search,
// profile) on top of internal/viewmodel, and keeps the signed-in identity
// in a local SQLite file between runs.
//
// USAGE:
//
//	feedcli [--api URL] [--mode bearer|username] [--store sqlite|memory] <command> [args]
//
// Settings come from FEED_* environment variables or config.yaml (see
// internal/config); the flags above override them for one run.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sakif/feedclient/internal/api"
	"github.com/sakif/feedclient/internal/apperror"
	"github.com/sakif/feedclient/internal/auth"
	"github.com/sakif/feedclient/internal/config"
	"github.com/sakif/feedclient/internal/credential"
	"github.com/sakif/feedclient/internal/dispatch"
	"github.com/sakif/feedclient/internal/storage"
	"github.com/sakif/feedclient/internal/storage/memory"
	"github.com/sakif/feedclient/internal/storage/sqlite"
	"github.com/sakif/feedclient/internal/viewmodel"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run wires the client and executes one command. It returns the process
// exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 2
	}

	global := newFlagSet("feedcli", stderr)
	apiFlag := global.String("api", "", "API base URL (overrides FEED_API_URL)")
	modeFlag := global.String("mode", "", "auth mode: bearer or username (overrides FEED_AUTH_MODE)")
	storeFlag := global.String("store", "", "credential store: sqlite or memory (overrides FEED_STORE)")
	global.Usage = func() { usage(stderr) }
	if err := global.Parse(args); err != nil {
		return 2
	}
	if *apiFlag != "" {
		cfg.APIURL = strings.TrimRight(*apiFlag, "/")
	}
	if *modeFlag != "" {
		if cfg.AuthMode, err = auth.ParseMode(*modeFlag); err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			return 2
		}
	}
	if *storeFlag != "" {
		cfg.Store = strings.ToLower(*storeFlag)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 2
	}
	if global.NArg() == 0 {
		usage(stderr)
		return 2
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	backend, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open credential store", slog.String("error", err.Error()))
		return 1
	}
	defer closeStore()

	creds := credential.New(backend, cfg.AuthMode, logger)
	d, err := dispatch.New(cfg.APIURL, cfg.AuthMode, creds, dispatch.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 2
	}
	session := viewmodel.NewSession(api.New(d, cfg.AuthMode, creds), creds, logger)
	session.Init(ctx)

	app := &app{session: session, out: stdout, pageSize: cfg.PageSize, mode: cfg.AuthMode}
	err = app.dispatch(ctx, global.Arg(0), global.Args()[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, "Error:", err)
		return 2
	default:
		fmt.Fprintln(stderr, "Error:", message(err))
		if session.LoginRequired() {
			fmt.Fprintln(stderr, "Run `feedcli login <username>` to sign in again.")
		}
		return 1
	}
}

// message is what the user sees for a failed command. API failures get the
// same wording as the web clients; local errors print as they are.
func message(err error) string {
	if apperror.StatusOf(err) == 0 && !errors.Is(err, apperror.ErrTransport) {
		return err.Error()
	}
	msg := apperror.UserMessage(err)
	if field := apperror.FieldOf(err); field != "" {
		msg = fmt.Sprintf("%s (%s)", msg, field)
	}
	return msg
}

// openStore returns the credential backend selected by cfg and a func that
// releases it.
func openStore(cfg *config.Config) (storage.Storage, func(), error) {
	if cfg.Store == config.StoreMemory {
		return memory.New(), func() {}, nil
	}

	if dir := filepath.Dir(cfg.StorePath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("creating store directory %s: %w", dir, err)
		}
	}
	db, err := sqlite.New(cfg.StorePath)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: feedcli [--api URL] [--mode bearer|username] [--store sqlite|memory] <command> [args]

Account:
  login <username> [--password P]   sign in (username mode creates the user)
  signup <username> --password P    create an account and sign in
  logout                            forget the stored identity
  whoami                            show the stored identity
  health                            check the API

Posts:
  feed [--pages N]                  list the newest posts
  post <content>                    publish a post
  edit <id> <content>               change a post
  delete <id>                       delete a post
  like <id> | unlike <id>           like or unlike a post
  show <id> [--pages N]             show a post with its comments
  comment <post-id> <content>       reply to a post
  edit-comment <id> <content>       change a comment
  delete-comment <id>               delete a comment

People:
  search <query> [--pages N]        find users by name
  profile [user-id]                 show a profile (yours without an id)
  follow <user-id> | unfollow <user-id>
  followers | following             list your followers or who you follow
`)
}
