package quests

import "errors"

var (
	ErrQuestInProgress    = errors.New("faction already has a current quest")
	ErrOnCooldown         = errors.New("faction is on quest cooldown")
	ErrNoTemplates        = errors.New("no quest templates available")
	ErrQuestNotOffered    = errors.New("quest is not in the offered state")
	ErrAcceptWindowClosed = errors.New("acceptance window has closed")
	ErrNotAnOfficer       = errors.New("only a faction officer or the owner may do this")
	ErrQuestTerminal      = errors.New("quest is already in a terminal state")
	ErrUnknownQuestType   = errors.New("unknown quest type")
	ErrInvalidTemplate    = errors.New("invalid quest template")
)
