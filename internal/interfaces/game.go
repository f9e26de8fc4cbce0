package interfaces

import (
	"context"

	"github.com/user/dopewars-engine/internal/tables"
	"github.com/user/dopewars-engine/internal/types"
)

// MessageSender defines the interface for sending messages
type MessageSender interface {
	SendMessage(phoneNumber, recipient, message string) (string, error)
}

// Notifier receives new game log lines for a player as they are written
type Notifier interface {
	Notify(playerID string, lines []string)
}

// CommandHandler turns one line of player input into a reply
type CommandHandler interface {
	Handle(ctx context.Context, playerID, input string) string
}

// GameManager defines the interface for game session operations. Every
// mutating operation returns the log line it recorded.
type GameManager interface {
	StartNewGame(ctx context.Context, playerID string, days int) (*types.StatusView, error)
	LoadGame(ctx context.Context, playerID string) (*types.StatusView, error)
	SaveGame(ctx context.Context, playerID string) error
	ResetGame(ctx context.Context, playerID string) (*types.StatusView, error)
	EndGame(ctx context.Context, playerID string) error
	Status(playerID string) (*types.StatusView, error)

	Travel(ctx context.Context, playerID, city string) (*types.TravelReport, error)
	Buy(ctx context.Context, playerID, item string, qty int) (string, error)
	Sell(ctx context.Context, playerID, item string, qty int) (string, error)
	Deposit(ctx context.Context, playerID string, amount int) (string, error)
	Withdraw(ctx context.Context, playerID string, amount int) (string, error)
	TakeLoan(ctx context.Context, playerID string) (string, error)
	RepayLoan(ctx context.Context, playerID string) (string, error)
	BuyStashHouse(ctx context.Context, playerID string) (string, error)
	MoveToStash(ctx context.Context, playerID, item string, qty int) (string, error)
	MoveFromStash(ctx context.Context, playerID, item string, qty int) (string, error)
	UpgradeInventory(ctx context.Context, playerID string) (string, error)
	UpgradeStashHouse(ctx context.Context, playerID string) (string, error)
	JoinAlliance(ctx context.Context, playerID, alliance string) (string, error)
	AcceptMission(ctx context.Context, playerID, missionID string) (string, error)
	AbandonMission(ctx context.Context, playerID string) (string, error)
	CompleteMission(ctx context.Context, playerID string) (string, error)

	Tables() *tables.Tables
}
