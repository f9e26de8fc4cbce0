package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/user/dopewars-engine/config"
	"github.com/user/dopewars-engine/internal/command"
	"github.com/user/dopewars-engine/internal/content"
	"github.com/user/dopewars-engine/internal/game"
	"github.com/user/dopewars-engine/internal/interfaces"
	"github.com/user/dopewars-engine/internal/risk"
	"github.com/user/dopewars-engine/internal/tables"
	"github.com/user/dopewars-engine/internal/types"
	"go.uber.org/zap"
)

var (
	configPath string
	envPath    string
	playerID   string
	offline    bool
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trader",
		Short: "Play the trading game in the terminal",
		Long: `A single-player terminal client. Type the same commands the chat
transports accept, with or without the leading slash.`,
		RunE: runREPL,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config/config.json", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "Path to .env file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine activity to stderr")
	rootCmd.Flags().StringVarP(&playerID, "player", "p", "local", "Player id used for saves")
	rootCmd.Flags().BoolVar(&offline, "offline", false, "Use offline content even when an API key is set")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "tables",
		Short: "Print the cities and items in play",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tbl, err := loadTables(cfg)
			if err != nil {
				return err
			}
			renderTables(cmd.OutOrStdout(), tbl)
			return nil
		},
	})

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	if err := config.LoadEnv(envPath); err != nil {
		return config.Config{}, fmt.Errorf("failed to load %s: %w", envPath, err)
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func loadTables(cfg config.Config) (*tables.Tables, error) {
	if cfg.Game.TablesPath == "" {
		return tables.Default(), nil
	}
	return tables.Load(cfg.Game.TablesPath)
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func runREPL(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if offline {
		cfg.Content.Provider = "offline"
	}

	logger := newLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tbl, err := loadTables(cfg)
	if err != nil {
		return err
	}

	store, closeStore, err := game.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	source, err := content.FromConfig(ctx, cfg.Content, tbl, game.NewRand(cfg.Game.Seed), logger.Named("content"))
	if err != nil {
		return err
	}

	resolver := risk.NewResolver(source, tbl, cfg.Content.BustTimeoutDuration(), logger.Named("risk"))
	manager := game.NewGameManager(cfg, game.NewEngine(tbl, cfg.Game, resolver), store, source)
	manager.Logger = logger.Named("game")
	defer manager.Wait()

	dispatcher := command.NewDispatcher(manager, cfg.Game.Durations, logger.Named("command"))

	loop := &repl{
		ctx:        ctx,
		player:     playerID,
		manager:    manager,
		dispatcher: dispatcher,
		out:        cmd.OutOrStdout(),
	}
	return loop.run(cmd.InOrStdin())
}

// sessions is the part of the session controller the loop reads directly
type sessions interface {
	LoadGame(ctx context.Context, playerID string) (*types.StatusView, error)
	Status(playerID string) (*types.StatusView, error)
}

type repl struct {
	ctx        context.Context
	player     string
	manager    sessions
	dispatcher interfaces.CommandHandler
	out        io.Writer
}

func (r *repl) run(in io.Reader) error {
	titleColor := color.New(color.FgCyan, color.Bold)
	promptColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgYellow)

	titleColor.Fprintln(r.out, "╭───────────────────────────╮")
	titleColor.Fprintln(r.out, "│  DOPEWARS                 │")
	titleColor.Fprintln(r.out, "╰───────────────────────────╯")

	view, err := r.manager.LoadGame(r.ctx, r.player)
	switch {
	case err == nil:
		infoColor.Fprintf(r.out, "📂 Resumed day %d/%d in %s\n", view.Day, view.MaxDays, view.City)
	case errors.Is(err, game.ErrNoSnapshot), errors.Is(err, game.ErrCorruptSnapshot):
		infoColor.Fprintln(r.out, "No saved game. Type new 30, new 60 or new 90 to start.")
	default:
		return err
	}
	infoColor.Fprintln(r.out, "Type help for commands, exit to leave.")

	scanner := bufio.NewScanner(in)
	for {
		promptColor.Fprint(r.out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		if r.ctx.Err() != nil {
			return nil
		}
		if !r.execute(strings.TrimSpace(scanner.Text())) {
			return nil
		}
	}
}

// execute runs one line and reports whether the loop should continue
func (r *repl) execute(line string) bool {
	if line == "" {
		return true
	}

	verb := strings.ToLower(strings.TrimPrefix(strings.Fields(line)[0], "/"))
	switch verb {
	case "exit", "q":
		return false
	case "market", "m", "prices", "status", "s":
		view, err := r.manager.Status(r.player)
		if err != nil {
			// Let the dispatcher phrase the error
			break
		}
		if verb == "status" || verb == "s" {
			renderStatus(r.out, view)
		} else {
			renderMarket(r.out, view)
		}
		return true
	}

	fmt.Fprintln(r.out, plain(r.dispatcher.Handle(r.ctx, r.player, line)))
	return true
}

// plain drops chat bold markers
func plain(s string) string {
	return strings.ReplaceAll(s, "*", "")
}
