package economy

import "errors"

// Validation failures surfaced to callers as typed results; command handlers
// match on them with errors.Is and render them verbatim.
var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotAMember        = errors.New("not a member of this faction")
	ErrNotTheOwner       = errors.New("only the faction owner may do this")
	ErrAlreadyInFaction  = errors.New("already in a faction")
	ErrFactionFull       = errors.New("faction is full")
	ErrFactionDisbanded  = errors.New("faction is disbanded")
	ErrOwnerCannotLeave  = errors.New("the owner must disband or transfer the faction instead of leaving")
)
