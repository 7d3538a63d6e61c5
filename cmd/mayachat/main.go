package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mayachat/cmd/mayachat/chat"
	"mayachat/cmd/mayachat/ui"
	"mayachat/internal/chatclient"
	"mayachat/internal/config"
	"mayachat/internal/conversation"
	"mayachat/internal/history"
	"mayachat/internal/transcript"
)

var (
	// Global flags
	verbose    bool
	serverURL  string
	configPath string
	timeout    time.Duration

	logger *zap.Logger
)

// rootCmd launches the interactive chat by default.
var rootCmd = &cobra.Command{
	Use:   "mayachat",
	Short: "mayachat - terminal chat widget for Vivid Realty",
	Long: `mayachat is a terminal client for the Vivid Realty conversational
assistant. It connects to the chat service, renders the dialogue as styled
markdown, and drives the server-declared UI widgets (category buttons, lead
forms, property cards) from the keyboard.

Run without arguments to start a chat session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		// The interactive chat owns the terminal; keep its logs out of it.
		if cmd.CalledAs() == "mayachat" && !verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "chat service base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.mayachat/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "request timeout (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig resolves the effective configuration: file, env, then flags.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if serverURL != "" {
		cfg.Server.URL = serverURL
	}
	if timeout > 0 {
		cfg.Server.Timeout = timeout.String()
	}
	return cfg, nil
}

func runChat() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := chatclient.New(cfg.Server.URL,
		chatclient.WithTimeout(cfg.RequestTimeout()),
		chatclient.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	var recorder conversation.Recorder
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.DatabasePath)
		if err != nil {
			logger.Warn("history disabled", zap.Error(err))
		} else {
			defer store.Close()
			recorder = store
		}
	}

	ctrl := conversation.New(client, transcript.New(nil), logger, recorder)
	model := chat.New(ctrl, client, ui.ThemeByName(cfg.UI.Theme), logger)
	model.SetPageSize(cfg.UI.PropertyPageSize)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	model.SetSend(p.Send)

	// Theme changes in the config file apply live.
	watchPath := configPath
	if watchPath == "" {
		watchPath = config.DefaultPath()
	}
	watcher, err := config.NewWatcher(watchPath, logger, func(c *config.Config) {
		p.Send(chat.ThemeChangedMsg{Theme: ui.ThemeByName(c.UI.Theme)})
	})
	if err == nil {
		if startErr := watcher.Start(context.Background()); startErr == nil {
			defer watcher.Stop()
		}
	}

	_, err = p.Run()
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
