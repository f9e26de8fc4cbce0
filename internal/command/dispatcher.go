// Package command parses chat-style player commands and drives a game
// manager with them. The WhatsApp transport, the HTTP API and the terminal
// client all share it.
package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/user/dopewars-engine/internal/game"
	"github.com/user/dopewars-engine/internal/interfaces"
	"go.uber.org/zap"
)

// Dispatcher turns one line of player input into manager calls and a reply
type Dispatcher struct {
	manager   interfaces.GameManager
	durations []int
	logger    *zap.Logger
}

// Ensure Dispatcher satisfies the interfaces.CommandHandler interface
var _ interfaces.CommandHandler = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher. durations lists the allowed game lengths
// for help and usage text.
func NewDispatcher(manager interfaces.GameManager, durations []int, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		manager:   manager,
		durations: durations,
		logger:    logger,
	}
}

// Handle runs a command for a player and returns the reply text. The
// leading slash is optional.
func (d *Dispatcher) Handle(ctx context.Context, playerID, input string) string {
	command := strings.TrimPrefix(cleanCommand(input), "/")
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return d.handleHelpCommand()
	}

	verb := strings.ToLower(fields[0])
	args := fields[1:]

	d.logger.Debug("Handling command",
		zap.String("player_id", playerID),
		zap.String("verb", verb),
		zap.Strings("args", args))

	switch verb {
	case "help", "h", "?":
		return d.handleHelpCommand()
	case "new", "start":
		return d.handleNewCommand(ctx, playerID, args)
	case "load":
		return d.handleLoadCommand(ctx, playerID)
	case "save":
		return d.handleSaveCommand(ctx, playerID)
	case "reset":
		return d.handleResetCommand(ctx, playerID)
	case "end", "quit":
		return d.handleEndCommand(ctx, playerID)
	case "status", "s":
		return d.handleStatusCommand(playerID)
	case "market", "m", "prices":
		return d.handleMarketCommand(playerID)
	case "travel", "go", "t":
		return d.handleTravelCommand(ctx, playerID, args)
	case "buy", "b":
		return d.handleTradeCommand(ctx, playerID, "buy", args, d.manager.Buy)
	case "sell":
		return d.handleTradeCommand(ctx, playerID, "sell", args, d.manager.Sell)
	case "deposit", "dep":
		return d.handleBankCommand(ctx, playerID, "deposit", args, d.manager.Deposit)
	case "withdraw", "wd":
		return d.handleBankCommand(ctx, playerID, "withdraw", args, d.manager.Withdraw)
	case "loan":
		return d.reply(d.manager.TakeLoan(ctx, playerID))
	case "repay":
		return d.reply(d.manager.RepayLoan(ctx, playerID))
	case "upgrade":
		return d.reply(d.manager.UpgradeInventory(ctx, playerID))
	case "stash":
		return d.handleStashCommand(ctx, playerID, args)
	case "alliances":
		return d.handleAlliancesCommand(playerID)
	case "join":
		return d.handleJoinCommand(ctx, playerID, args)
	case "missions":
		return d.handleMissionsCommand(playerID)
	case "mission":
		return d.handleMissionCommand(ctx, playerID, args)
	case "cities", "map":
		return d.handleCitiesCommand(playerID)
	}

	return "Unknown command. Type /help to see the available commands."
}

// handleHelpCommand returns help information
func (d *Dispatcher) handleHelpCommand() string {
	return formatHelp(d.durations)
}

func (d *Dispatcher) durationUsage() string {
	opts := make([]string, len(d.durations))
	for i, days := range d.durations {
		opts[i] = strconv.Itoa(days)
	}
	return "Usage: /new <" + strings.Join(opts, "|") + ">"
}

func (d *Dispatcher) handleNewCommand(ctx context.Context, playerID string, args []string) string {
	if len(args) != 1 {
		return d.durationUsage()
	}
	days, err := strconv.Atoi(args[0])
	if err != nil {
		return d.durationUsage()
	}

	view, err := d.manager.StartNewGame(ctx, playerID, days)
	if err != nil {
		return d.failure(err)
	}
	return "🎮 *NEW GAME*\n\n" + welcome(view.Log) + "\n\n" + formatMarket(view) + "\n\nType /help for commands."
}

func (d *Dispatcher) handleLoadCommand(ctx context.Context, playerID string) string {
	view, err := d.manager.LoadGame(ctx, playerID)
	if err != nil {
		return d.failure(err)
	}
	return "📂 Game loaded.\n\n" + formatStatus(view)
}

func (d *Dispatcher) handleSaveCommand(ctx context.Context, playerID string) string {
	if err := d.manager.SaveGame(ctx, playerID); err != nil {
		return d.failure(err)
	}
	return "💾 Game saved."
}

func (d *Dispatcher) handleResetCommand(ctx context.Context, playerID string) string {
	view, err := d.manager.ResetGame(ctx, playerID)
	if err != nil {
		return d.failure(err)
	}
	return "🔄 *GAME RESET*\n\n" + welcome(view.Log) + "\n\n" + formatMarket(view)
}

func (d *Dispatcher) handleEndCommand(ctx context.Context, playerID string) string {
	if err := d.manager.EndGame(ctx, playerID); err != nil {
		return d.failure(err)
	}
	return "👋 Game ended and your save was deleted. Start again with /new."
}

// handleStatusCommand processes status requests
func (d *Dispatcher) handleStatusCommand(playerID string) string {
	view, err := d.manager.Status(playerID)
	if err != nil {
		return d.failure(err)
	}
	return formatStatus(view)
}

func (d *Dispatcher) handleMarketCommand(playerID string) string {
	view, err := d.manager.Status(playerID)
	if err != nil {
		return d.failure(err)
	}
	return formatMarket(view)
}

func (d *Dispatcher) handleTravelCommand(ctx context.Context, playerID string, args []string) string {
	if len(args) == 0 {
		return "Where to? Usage: /travel <city>. Type /cities to see the map."
	}

	city, reply := d.resolve("city", strings.Join(args, " "), d.manager.Tables().CityNames(), "/cities")
	if reply != "" {
		return reply
	}

	report, err := d.manager.Travel(ctx, playerID, city)
	if err != nil {
		return d.failure(err)
	}
	return formatTravel(report)
}

type tradeFunc func(ctx context.Context, playerID, item string, qty int) (string, error)

func (d *Dispatcher) handleTradeCommand(ctx context.Context, playerID, verb string, args []string, trade tradeFunc) string {
	item, qty, reply := d.itemAndQuantity(verb, args)
	if reply != "" {
		return reply
	}
	return d.reply(trade(ctx, playerID, item, qty))
}

type bankFunc func(ctx context.Context, playerID string, amount int) (string, error)

func (d *Dispatcher) handleBankCommand(ctx context.Context, playerID, verb string, args []string, bank bankFunc) string {
	if len(args) != 1 {
		return fmt.Sprintf("Usage: /%s <amount>", verb)
	}
	amount, err := parseAmount(args[0])
	if err != nil {
		return fmt.Sprintf("Usage: /%s <amount>", verb)
	}
	return d.reply(bank(ctx, playerID, amount))
}

func (d *Dispatcher) handleStashCommand(ctx context.Context, playerID string, args []string) string {
	const usage = "Usage: /stash buy | /stash put <item> <qty> | /stash take <item> <qty> | /stash upgrade"
	if len(args) == 0 {
		return usage
	}

	switch strings.ToLower(args[0]) {
	case "buy":
		return d.reply(d.manager.BuyStashHouse(ctx, playerID))
	case "upgrade":
		return d.reply(d.manager.UpgradeStashHouse(ctx, playerID))
	case "put":
		item, qty, reply := d.itemAndQuantity("stash put", args[1:])
		if reply != "" {
			return reply
		}
		return d.reply(d.manager.MoveToStash(ctx, playerID, item, qty))
	case "take":
		item, qty, reply := d.itemAndQuantity("stash take", args[1:])
		if reply != "" {
			return reply
		}
		return d.reply(d.manager.MoveFromStash(ctx, playerID, item, qty))
	}
	return usage
}

func (d *Dispatcher) handleAlliancesCommand(playerID string) string {
	current := ""
	if view, err := d.manager.Status(playerID); err == nil {
		current = view.Player.Alliance
	}
	return formatAlliances(d.manager.Tables(), current)
}

func (d *Dispatcher) handleJoinCommand(ctx context.Context, playerID string, args []string) string {
	if len(args) == 0 {
		return "Usage: /join <alliance>. Type /alliances to see who's recruiting."
	}

	alliance, reply := d.resolve("alliance", strings.Join(args, " "), d.manager.Tables().AllianceNames(), "/alliances")
	if reply != "" {
		return reply
	}
	return d.reply(d.manager.JoinAlliance(ctx, playerID, alliance))
}

func (d *Dispatcher) handleMissionsCommand(playerID string) string {
	view, err := d.manager.Status(playerID)
	if err != nil {
		return d.failure(err)
	}
	return formatMissions(view)
}

func (d *Dispatcher) handleMissionCommand(ctx context.Context, playerID string, args []string) string {
	const usage = "Usage: /mission accept <id> | /mission abandon | /mission complete"
	if len(args) == 0 {
		return usage
	}

	switch strings.ToLower(args[0]) {
	case "accept":
		if len(args) != 2 {
			return usage
		}
		ids := make([]string, 0, len(d.manager.Tables().Missions))
		for _, m := range d.manager.Tables().Missions {
			ids = append(ids, m.ID)
		}
		id, reply := d.resolve("mission", args[1], ids, "/missions")
		if reply != "" {
			return reply
		}
		return d.reply(d.manager.AcceptMission(ctx, playerID, id))
	case "abandon":
		return d.reply(d.manager.AbandonMission(ctx, playerID))
	case "complete":
		msg, err := d.manager.CompleteMission(ctx, playerID)
		if err != nil {
			return d.failure(err)
		}
		return "🎉 " + msg
	}
	return usage
}

func (d *Dispatcher) handleCitiesCommand(playerID string) string {
	current := ""
	if view, err := d.manager.Status(playerID); err == nil {
		current = view.City
	}
	return formatCities(d.manager.Tables(), current)
}

// itemAndQuantity parses "<item words...> <qty>"
func (d *Dispatcher) itemAndQuantity(verb string, args []string) (string, int, string) {
	usage := fmt.Sprintf("Usage: /%s <item> <qty>", verb)
	if len(args) < 2 {
		return "", 0, usage
	}
	qty, err := strconv.Atoi(args[len(args)-1])
	if err != nil {
		return "", 0, usage
	}

	item, reply := d.resolve("item", strings.Join(args[:len(args)-1], " "), d.manager.Tables().ItemNames(), "/market")
	if reply != "" {
		return "", 0, reply
	}
	return item, qty, ""
}

// resolve matches a name, returning a reply for the player when it fails
func (d *Dispatcher) resolve(kind, input string, candidates []string, listCommand string) (string, string) {
	name, err := matchName(input, candidates)
	switch {
	case err == nil:
		return name, ""
	case errors.Is(err, ErrAmbiguousName):
		return "", fmt.Sprintf("🤔 %s. Be more specific.", capitalize(err.Error()))
	default:
		return "", fmt.Sprintf("❌ Unknown %s %q. Type %s to see the options.", kind, input, listCommand)
	}
}

// reply turns a manager result into chat text
func (d *Dispatcher) reply(msg string, err error) string {
	if err != nil {
		return d.failure(err)
	}
	return "✅ " + msg
}

// failure turns a manager error into chat text
func (d *Dispatcher) failure(err error) string {
	switch {
	case errors.Is(err, game.ErrNoSession):
		return "No game in progress. Start one with /new or pick up your saved game with /load."
	case errors.Is(err, game.ErrGameOver):
		return "🏁 This game is over. Start a new one with /new."
	case errors.Is(err, game.ErrNoSnapshot):
		return "You don't have a saved game. Start one with /new."
	case errors.Is(err, game.ErrCorruptSnapshot):
		return "Your saved game was damaged and has been deleted. Start a new one with /new."
	case errors.Is(err, game.ErrInvalidDuration):
		return d.durationUsage()
	}

	d.logger.Debug("Command failed", zap.Error(err))
	return "❌ " + capitalize(err.Error()) + "."
}

// welcome picks the opening line out of a fresh game log
func welcome(log []string) string {
	if len(log) == 0 {
		return ""
	}
	return log[len(log)-1]
}

// parseAmount accepts plain or dollar-formatted numbers ("$1,500")
func parseAmount(s string) (int, error) {
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return strconv.Atoi(s)
}

// cleanCommand trims and collapses whitespace
func cleanCommand(command string) string {
	return strings.Join(strings.Fields(command), " ")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
