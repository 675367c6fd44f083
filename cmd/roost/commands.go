// ABOUTME: Subcommand implementations for the roost CLI
// ABOUTME: Wires config, store, API client, login flow, and chat engine

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/roostchat/roost/internal/api"
	"github.com/roostchat/roost/internal/chat"
	"github.com/roostchat/roost/internal/compose"
	"github.com/roostchat/roost/internal/config"
	"github.com/roostchat/roost/internal/daemon"
	"github.com/roostchat/roost/internal/login"
	"github.com/roostchat/roost/internal/store"
)

// session bundles everything an authenticated command needs.
type session struct {
	cfg     *config.Config
	store   *store.SQLiteStore
	account *store.Account
	client  *api.Client
	engine  *chat.Engine
}

func (s *session) Close() {
	s.store.Close()
}

// openSession loads config, opens the store, and binds an API client and
// chat engine to the active account.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg.Logging)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	acct, err := st.GetActiveAccount(ctx)
	if err != nil {
		st.Close()
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("not logged in (run: roost login)")
		}
		return nil, err
	}

	opts := []api.Option{
		api.WithToken(acct.AccessToken),
		api.WithLogger(logger),
	}
	if cfg.API.Timeout > 0 {
		opts = append(opts, api.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}))
	}
	if cfg.API.UserAgent != "" {
		opts = append(opts, api.WithUserAgent(cfg.API.UserAgent))
	}
	client := api.New(acct.Domain, opts...)

	engine := chat.NewEngine(client, st, acct.AccountID, chat.NewBroadcaster(logger), logger)

	return &session{
		cfg:     cfg,
		store:   st,
		account: acct,
		client:  client,
		engine:  engine,
	}, nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("roost configuration setup")
	fmt.Println("=========================")
	fmt.Println()

	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDBPath := filepath.Join(defaultDataPath, "roost.db")

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDBPath)

	fmt.Println("\n--- Daemon Configuration ---")
	httpAddr := prompt(reader, "Daemon HTTP address", "127.0.0.1:9470")
	syncInterval := prompt(reader, "Sync interval", "2m")

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# roost configuration\n")
	cfg.WriteString("# Generated by roost init\n\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n", dbPath))
	cfg.WriteString("\n")

	cfg.WriteString("login:\n")
	cfg.WriteString("  callback_port: 0\n")
	cfg.WriteString(fmt.Sprintf("  checkpoint_path: %q\n", filepath.Join(defaultDataPath, "login-checkpoint.toml")))
	cfg.WriteString("\n")

	cfg.WriteString("daemon:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", httpAddr))
	cfg.WriteString(fmt.Sprintf("  sync_interval: %q\n", syncInterval))
	cfg.WriteString("  max_pages: 25\n")
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", logFormat))
	cfg.WriteString("\n")

	cfg.WriteString("metrics:\n")
	cfg.WriteString("  enabled: true\n")
	cfg.WriteString("  path: \"/metrics\"\n")

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nNext step:")
	fmt.Println("  roost login")

	return nil
}

func runLogin(ctx context.Context, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	cyan.Print(banner)
	color.New(color.FgHiBlack).Printf("    version: %s\n\n", version)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	callback, err := login.NewCallbackServer(cfg.Login.CallbackPort, logger)
	if err != nil {
		return err
	}
	go callback.Serve()
	defer callback.Shutdown(context.Background())

	checkpoints := login.NewFileCheckpointStore(cfg.Login.CheckpointPath)
	controller := login.NewController(st, checkpoints, login.Options{
		RedirectURI: callback.RedirectURI(),
		Logger:      logger,
	})

	if controller.IsLoggedIn(ctx) {
		fmt.Println("Already logged in. Run `roost whoami` to see the active account.")
		return nil
	}

	var domain string
	if len(args) > 0 {
		domain = args[0]
	} else {
		domain = prompt(bufio.NewReader(os.Stdin), "Server domain", "")
	}

	authURL, err := controller.Submit(ctx, domain)
	if err != nil {
		return err
	}

	fmt.Println("Open this URL in your browser and authorize roost:")
	fmt.Println()
	cyan.Printf("  %s\n\n", authURL)
	fmt.Println("Waiting for the redirect...")

	for {
		select {
		case <-ctx.Done():
			// Leave the checkpoint in place so a rerun can resume.
			controller.SaveCheckpoint()
			return ctx.Err()
		case uri := <-callback.Redirects():
			acct, err := controller.HandleRedirect(ctx, uri)
			if errors.Is(err, login.ErrUnrelatedRedirect) || errors.Is(err, login.ErrRedirectReplayed) {
				continue
			}
			if err != nil {
				return err
			}

			fmt.Println()
			green.Print("  ✓ ")
			fmt.Printf("Logged in as %s (%s)\n", acct.Username, acct.Domain)
			return nil
		}
	}
}

func runWhoami(ctx context.Context) error {
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("Account:      %s\n", s.account.Username)
	fmt.Printf("Display name: %s\n", s.account.DisplayName)
	fmt.Printf("Domain:       %s\n", s.account.Domain)
	fmt.Printf("Account id:   %s\n", s.account.AccountID)
	return nil
}

func runSync(ctx context.Context) error {
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	green := color.New(color.FgGreen)
	fmt.Printf("Syncing direct messages for %s...\n", s.account.Username)

	results := chat.Collect(s.engine.StoreMessages(ctx, s.cfg.Daemon.MaxPages).Subscribe())
	pages := 0
	for _, r := range results {
		switch r.Kind {
		case chat.KindSuccess:
			if r.More {
				pages++
			}
		case chat.KindError:
			return fmt.Errorf("sync failed after %d page(s): %s", pages, r.Message)
		}
	}

	stats := s.engine.Stats()
	green.Print("  ✓ ")
	fmt.Printf("Synced %d page(s): %d message(s) stored, %d dropped\n", pages, stats.Stored, stats.Dropped)
	return nil
}

func runChats(ctx context.Context) error {
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	threads, err := s.engine.Threads(ctx)
	if err != nil {
		return err
	}
	if len(threads) == 0 {
		fmt.Println("No chats yet. Run `roost sync` first.")
		return nil
	}

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	for _, th := range threads {
		cyan.Printf("%s", th.CounterpartDisplayName)
		gray.Printf("  (%s, %d message(s))\n", th.CounterpartAccountID, th.MessageCount)
		if th.Latest != nil {
			prefix := "them"
			if th.Latest.IsFromMe {
				prefix = "me"
			}
			gray.Printf("  %s  ", th.Latest.CreatedAt.Local().Format("2006-01-02 15:04"))
			fmt.Printf("%s: %s\n", prefix, oneLine(th.Latest.Content))
		}
		fmt.Println()
	}
	return nil
}

func runMessages(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: roost messages <account-id>")
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.engine.Messages(ctx, args[0])
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No messages for this chat.")
		return nil
	}

	gray := color.New(color.FgHiBlack)
	cyan := color.New(color.FgCyan)

	// Print oldest first, with day separators.
	decorated := chat.DecorateMessages(records)
	for i := len(decorated) - 1; i >= 0; i-- {
		d := decorated[i]
		if d.FirstOfDay {
			gray.Printf("--- %s ---\n", d.CreatedAt.Local().Format("Mon, Jan 2 2006"))
		}
		sender := d.CounterpartDisplayName
		if d.IsFromMe {
			sender = "me"
		}
		if !d.SameSenderAsPrevious {
			cyan.Printf("%s ", sender)
			gray.Printf("%s\n", d.CreatedAt.Local().Format("15:04"))
		}
		fmt.Printf("  %s\n", oneLine(d.Content))
	}
	return nil
}

func runSend(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: roost send <acct> <text...>")
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	acct := strings.TrimPrefix(args[0], "@")
	text := strings.Join(args[1:], " ")

	// Recipients are addressed by mention; the protocol has no native DM
	// addressing.
	html, err := compose.Render(fmt.Sprintf("@%s %s", acct, text))
	if err != nil {
		return err
	}

	status, err := s.client.PostStatus(ctx, api.PostStatusParams{
		Status:      html,
		Visibility:  api.VisibilityDirect,
		ContentType: "text/html",
	})
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Print("  ✓ ")
	fmt.Printf("Sent to @%s (status %s)\n", acct, status.ID)
	return nil
}

func runDelete(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: roost delete <message-id>")
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.engine.Delete(ctx, args[0]); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Print("  ✓ ")
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}

func runSearch(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: roost search <query>")
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	accounts, err := s.client.SearchAccounts(ctx, strings.Join(args, " "), 10)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		fmt.Println("No accounts found.")
		return nil
	}

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	for _, a := range accounts {
		cyan.Printf("@%s", a.Username)
		if a.DisplayName != "" {
			fmt.Printf("  %s", a.DisplayName)
		}
		gray.Printf("  (id %s)\n", a.ID)
	}
	return nil
}

func runFollow(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: roost follow <account-id>")
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	rel, err := s.client.Follow(ctx, args[0])
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Print("  ✓ ")
	if rel.Following {
		fmt.Println("Following")
	} else if rel.Requested {
		fmt.Println("Follow requested (account is locked)")
	} else {
		fmt.Println("Follow sent")
	}
	return nil
}

func runServe(ctx context.Context) error {
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	logger := setupLogger(s.cfg.Logging)

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	color.New(color.FgHiBlack).Printf("    version: %s\n\n", version)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Account:  %s\n", s.account.Username)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", s.cfg.Daemon.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Interval: %s\n", s.cfg.Daemon.SyncInterval)
	fmt.Println()

	d := daemon.New(s.engine, daemon.Options{
		HTTPAddr:       s.cfg.Daemon.HTTPAddr,
		SyncInterval:   s.cfg.Daemon.SyncInterval,
		MaxPages:       s.cfg.Daemon.MaxPages,
		MetricsEnabled: s.cfg.Metrics.Enabled,
		MetricsPath:    s.cfg.Metrics.Path,
		Logger:         logger,
	})
	return d.Run(ctx)
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
