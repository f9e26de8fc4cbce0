package ledger

import "errors"

// Validation rejections. Operations returning one of these leave the player
// state untouched.
var (
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidPrice       = errors.New("price must be positive")
	ErrUnknownItem        = errors.New("unknown item")
	ErrInsufficientCash   = errors.New("not enough cash")
	ErrInsufficientFunds  = errors.New("not enough money in the bank")
	ErrInsufficientSpace  = errors.New("not enough space")
	ErrInsufficientStock  = errors.New("not enough product")
	ErrWrongCity          = errors.New("not available in this city")
	ErrLoanTaken          = errors.New("the loan shark only lends once")
	ErrNoDebt             = errors.New("you have no debt")
	ErrStashExists        = errors.New("you already own a stash house here")
	ErrNoStash            = errors.New("you have no stash house here")
	ErrUnknownAlliance    = errors.New("unknown alliance")
	ErrAlreadyMember      = errors.New("you are already a member of this alliance")
	ErrMissionActive      = errors.New("you already have an active mission")
	ErrNoActiveMission    = errors.New("you have no active mission")
	ErrMissionCompleted   = errors.New("mission already completed")
	ErrMissionUnavailable = errors.New("mission not available")
	ErrObjectivesNotMet   = errors.New("mission objectives not met")
)
