// ABOUTME: Entry point for the roost command-line client
// ABOUTME: Dispatches subcommands and sets up config, logging, and paths

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/roostchat/roost/internal/config"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _ __ ___   ___  ___| |_
| '__/ _ \ / _ \/ __| __|
| | | (_) | (_) \__ \ |_
|_|  \___/ \___/|___/\__|
`

// getConfigPath returns the path to the roost config file.
// Priority: ROOST_CONFIG env var > XDG_CONFIG_HOME/roost/config.yaml > ~/.config/roost/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("ROOST_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "roost", "config.yaml")
}

// getDataPath returns the path to the roost data directory.
// Priority: XDG_DATA_HOME/roost > ~/.local/share/roost
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "roost")
}

// loadConfig reads the config file when it exists; otherwise the
// defaults rooted at the data directory apply.
func loadConfig() (*config.Config, error) {
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config.Default(getDataPath()), nil
	}
	return config.Load(configPath, getDataPath())
}

func usage() {
	fmt.Println("Usage: roost <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init                    Create a config file interactively")
	fmt.Println("  login [domain]          Log in to a server")
	fmt.Println("  whoami                  Show the active account")
	fmt.Println("  sync                    Fetch direct messages into the local database")
	fmt.Println("  chats                   List chat threads")
	fmt.Println("  messages <account-id>   Show one chat's messages")
	fmt.Println("  send <acct> <text...>   Send a direct message (Markdown allowed)")
	fmt.Println("  delete <message-id>     Delete a message locally and on the server")
	fmt.Println("  search <query>          Search accounts")
	fmt.Println("  follow <account-id>     Follow an account")
	fmt.Println("  serve                   Run the sync daemon")
}

func main() {
	// A .env in the working directory may carry ROOST_* overrides.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit()
	case "login":
		err = runLogin(ctx, args)
	case "whoami":
		err = runWhoami(ctx)
	case "sync":
		err = runSync(ctx)
	case "chats":
		err = runChats(ctx)
	case "messages":
		err = runMessages(ctx, args)
	case "send":
		err = runSend(ctx, args)
	case "delete":
		err = runDelete(ctx, args)
	case "search":
		err = runSearch(ctx, args)
	case "follow":
		err = runFollow(ctx, args)
	case "serve":
		err = runServe(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
