package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ldi/clipflow/internal/auth"
	"github.com/ldi/clipflow/internal/client"
	"github.com/ldi/clipflow/internal/db"
	"github.com/ldi/clipflow/internal/history"
	"github.com/ldi/clipflow/internal/host"
	"github.com/ldi/clipflow/internal/identity"
	"github.com/ldi/clipflow/internal/logger"
	"github.com/ldi/clipflow/internal/mcp"
	"github.com/ldi/clipflow/internal/server"
	"github.com/ldi/clipflow/pkg/models"
)

func openLocalDB(ctx context.Context) (*db.DB, error) {
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := database.Init(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return database, nil
}

func currentUser(ctx context.Context) (string, error) {
	database, err := openLocalDB(ctx)
	if err != nil {
		return "", err
	}
	defer database.Close()
	return identity.Resolve(ctx, database)
}

// session bundles what the client-side commands share.
type session struct {
	api    *client.Client
	userID string
	origin string
}

func newSession(ctx context.Context, cfg Config) (*session, error) {
	api := client.New(cfg.BaseURL, cfg.Token, cfg.RequestTimeout)
	origin, err := api.Origin()
	if err != nil {
		return nil, err
	}
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("Using backend %s as user %s", cfg.BaseURL, userID)
	return &session{api: api, userID: userID, origin: origin}, nil
}

func (s *session) controller(h history.Host) *history.Controller {
	return history.NewController(s.api, h, s.userID, s.origin)
}

func newDownloader(cfg Config) *host.Downloader {
	return host.NewDownloader(cfg.DownloadDir, cfg.Token)
}

func runHistory(ctx context.Context, cfg Config, args []string) error {
	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	return runHistoryTUI(ctx, s.api, s.userID, s.origin, newDownloader(cfg))
}

func runList(ctx context.Context, cfg Config, args []string) error {
	listFlags := flag.NewFlagSet("list", flag.ContinueOnError)
	statusFilter := listFlags.String("status", "", "Filter by status (pending, processing, completed, failed)")
	if err := listFlags.Parse(args); err != nil {
		return err
	}
	status := models.TaskStatus(*statusFilter)
	if status != "" && !status.Known() {
		return fmt.Errorf("unknown status: %s", status)
	}

	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	ctrl := s.controller(host.NewTerminal(stdin, stdout, nil))
	if err := ctrl.Load(ctx); err != nil {
		return errors.New(ctrl.Err())
	}

	tasks := ctrl.Tasks()
	if status != "" {
		filtered := make([]models.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.Status == status {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	if len(tasks) == 0 {
		if status != "" {
			fmt.Fprintf(stdout, "No %s tasks for %s\n", status, s.userID)
		} else {
			fmt.Fprintf(stdout, "No tasks for %s\n", s.userID)
		}
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tCREATED\tMESSAGE")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%d%%\t%s\t%s\n",
			t.ID,
			t.Status,
			t.Progress,
			t.CreatedAt.Local().Format("2006-01-02 15:04"),
			t.Message,
		)
	}
	return w.Flush()
}

func runStats(ctx context.Context, cfg Config, args []string) error {
	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	ctrl := s.controller(host.NewTerminal(stdin, stdout, nil))
	if err := ctrl.Load(ctx); err != nil {
		return errors.New(ctrl.Err())
	}

	c := ctrl.Counts()
	title := fmt.Sprintf("Tasks for %s", s.userID)
	fmt.Fprintln(stdout, title)
	fmt.Fprintln(stdout, strings.Repeat("=", len(title)))
	fmt.Fprintf(stdout, "Total:      %d\n", c.Total)
	fmt.Fprintf(stdout, "Completed:  %d\n", c.Completed)
	fmt.Fprintf(stdout, "Processing: %d\n", c.Processing)
	fmt.Fprintf(stdout, "Failed:     %d\n", c.Failed)
	return nil
}

func runShow(ctx context.Context, cfg Config, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: clipflow show <task-id>")
	}

	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	t, err := s.api.GetTask(ctx, args[0])
	if err != nil {
		var se *client.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return fmt.Errorf("%w: %s", history.ErrTaskNotFound, args[0])
		}
		return err
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 1, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", t.ID)
	fmt.Fprintf(w, "User:\t%s\n", t.UserID)
	fmt.Fprintf(w, "Status:\t%s (%d%%)\n", t.Status, t.Progress)
	fmt.Fprintf(w, "Message:\t%s\n", t.Message)
	fmt.Fprintf(w, "Created:\t%s\n", t.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if t.CompletedAt != nil {
		fmt.Fprintf(w, "Completed:\t%s\n", t.CompletedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if t.Downloadable() {
		u, err := history.DownloadURL(s.origin, t.OutputFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Output:\t%s\n", u)
	}
	if t.TaskDetails != "" {
		fmt.Fprintf(w, "Details:\t%s\n", t.TaskDetails)
	}
	return w.Flush()
}

func runDelete(ctx context.Context, cfg Config, args []string) error {
	deleteFlags := flag.NewFlagSet("delete", flag.ContinueOnError)
	yes := deleteFlags.Bool("yes", false, "Skip the confirmation prompt")
	if err := deleteFlags.Parse(args); err != nil {
		return err
	}
	if deleteFlags.NArg() != 1 {
		return errors.New("usage: clipflow delete [-yes] <task-id>")
	}
	id := deleteFlags.Arg(0)

	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	term := host.NewTerminal(stdin, stdout, nil)
	term.AssumeYes(*yes)

	deleted, err := s.controller(term).Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintln(stdout, "Cancelled")
		return nil
	}
	fmt.Fprintf(stdout, "✓ Deleted task %s\n", id)
	return nil
}

func runDownload(ctx context.Context, cfg Config, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: clipflow download <task-id>")
	}
	id := args[0]

	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	ctrl := s.controller(host.NewTerminal(stdin, stdout, newDownloader(cfg)))
	if err := ctrl.Load(ctx); err != nil {
		return errors.New(ctrl.Err())
	}
	return ctrl.DownloadByID(ctx, id)
}

func runWhoami(ctx context.Context, args []string) error {
	whoFlags := flag.NewFlagSet("whoami", flag.ContinueOnError)
	generate := whoFlags.Bool("new", false, "Generate and store a new user id")
	set := whoFlags.String("set", "", "Store the given user id")
	if err := whoFlags.Parse(args); err != nil {
		return err
	}
	if *generate && *set != "" {
		return errors.New("-new and -set are mutually exclusive")
	}

	database, err := openLocalDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	var id string
	switch {
	case *generate:
		id, err = identity.Generate(ctx, database)
	case *set != "":
		if err = identity.Set(ctx, database, *set); err == nil {
			id, err = identity.Resolve(ctx, database)
		}
	default:
		id, err = identity.Resolve(ctx, database)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, id)
	return nil
}

func runToken(ctx context.Context, cfg Config, args []string) error {
	tokenFlags := flag.NewFlagSet("token", flag.ContinueOnError)
	user := tokenFlags.String("user", "", "User id to issue the token for (default: current user)")
	ttl := tokenFlags.Duration("ttl", 30*24*time.Hour, "Token lifetime (0 for no expiry)")
	if err := tokenFlags.Parse(args); err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("%w: set jwt_secret in config.json or JWT_SECRET", auth.ErrNoSecret)
	}

	userID := *user
	if userID == "" {
		var err error
		if userID, err = currentUser(ctx); err != nil {
			return err
		}
	}

	token, err := auth.GenerateToken([]byte(cfg.JWTSecret), userID, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	return nil
}

// openStore picks the backend storage: Postgres when database_url is a
// postgres DSN, SQLite otherwise.
func openStore(ctx context.Context, cfg Config) (db.TaskStore, error) {
	if db.IsPostgresDSN(cfg.DatabaseURL) {
		store, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.Init(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to initialize postgres schema: %w", err)
		}
		logger.Info("Using postgres task store")
		return store, nil
	}

	path := dbPath
	if cfg.DatabaseURL != "" {
		path = cfg.DatabaseURL
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := database.Init(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if cfg.SnapshotPath != "" {
		database.EnableAutoSnapshot(cfg.SnapshotPath)
	}
	logger.Info("Using sqlite task store at %s", path)
	return database, nil
}

func runServe(ctx context.Context, cfg Config, args []string) error {
	serveFlags := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := serveFlags.String("addr", cfg.Addr, "Address to listen on")
	if err := serveFlags.Parse(args); err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	srv := server.NewServer(store, cfg.OutputDir)
	if cfg.JWTSecret != "" {
		srv.SetAuthSecret(cfg.JWTSecret)
		logger.Info("Bearer tokens enabled on /api")
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Start(*addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runMCP(ctx context.Context, cfg Config, args []string) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return serveMCP(mcp.NewServer(store))
}

func runInit(ctx context.Context, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	clipflowDir := filepath.Join(targetDir, ".clipflow")
	if err := os.MkdirAll(clipflowDir, 0755); err != nil {
		return fmt.Errorf("failed to create .clipflow directory: %w", err)
	}
	fmt.Fprintln(stdout, "✓ Created .clipflow/ directory")

	gitignorePath := filepath.Join(clipflowDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("clipflow.db*\n"), 0644); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	fmt.Fprintln(stdout, "✓ Created .clipflow/.gitignore")

	configFile := filepath.Join(clipflowDir, "config.json")
	if _, err := os.Stat(configFile); errors.Is(err, os.ErrNotExist) {
		cfg := fmt.Sprintf("{\n  \"base_url\": %q,\n  \"request_timeout\": %q\n}\n", defaultBaseURL, defaultRequestTimeout.String())
		if err := os.WriteFile(configFile, []byte(cfg), 0644); err != nil {
			return fmt.Errorf("failed to create config.json: %w", err)
		}
		fmt.Fprintln(stdout, "✓ Created .clipflow/config.json")
	}

	// Default paths if not overridden by flags
	finalDBPath := dbPath
	if dbPath == defaultDBPath {
		finalDBPath = filepath.Join(clipflowDir, "clipflow.db")
	}

	database, err := db.Open(finalDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Fprintf(stdout, "✓ Initialized database at %s\n", finalDBPath)

	snapshotPath := filepath.Join(clipflowDir, "snapshot.jsonl")
	if _, err := os.Stat(snapshotPath); err == nil {
		if err := database.ImportSnapshot(ctx, snapshotPath); err != nil {
			return fmt.Errorf("failed to import snapshot: %w", err)
		}
		fmt.Fprintf(stdout, "✓ Imported snapshot from %s\n", snapshotPath)
	}

	userID, err := identity.Resolve(ctx, database)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "✓ ClipFlow initialized (user: %s)\n", userID)
	return nil
}

func runDB(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(stdout, "Usage: clipflow db <command> [arguments]")
		fmt.Fprintln(stdout, "\nCommands:")
		fmt.Fprintln(stdout, "  export <path>   Write all tasks to a JSONL snapshot")
		fmt.Fprintln(stdout, "  import <path>   Load tasks from a JSONL snapshot")
		return nil
	}

	command := args[0]
	subArgs := args[1:]
	if command != "export" && command != "import" {
		return fmt.Errorf("unknown db command: %s", command)
	}
	if len(subArgs) != 1 {
		return fmt.Errorf("usage: clipflow db %s <path>", command)
	}

	database, err := openLocalDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	switch command {
	case "export":
		if err := database.ExportSnapshot(ctx, subArgs[0]); err != nil {
			return err
		}
		tasks, err := database.ListTasks(ctx, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✓ Exported %d tasks to %s\n", len(tasks), subArgs[0])
	case "import":
		if err := database.ImportSnapshot(ctx, subArgs[0]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✓ Imported snapshot from %s\n", subArgs[0])
	}
	return nil
}
