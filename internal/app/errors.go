package service

import "errors"

var (
	// ErrLiveTemplate rejects a drill template change on a live event.
	ErrLiveTemplate = errors.New("drill template is frozen once live entry has started")
	// ErrNotMember rejects league-scoped writes by non-members.
	ErrNotMember = errors.New("not a member of the league")
	// ErrDrillField rejects drill columns in a player edit.
	ErrDrillField = errors.New("drill scores cannot be edited on the player")
)
