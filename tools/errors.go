package tools

import (
	"errors"
	"fmt"

	"github.com/nathoo/keepercore/engine"
)

// Sentinel errors for dispatch failures the model can correct.
var (
	ErrUnknownTool     = errors.New("unknown tool")
	ErrMissingArgument = errors.New("missing argument")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Kind is the machine-readable class of a tool failure.
type Kind string

const (
	KindUnknownTool     Kind = "unknown_tool"
	KindMissingArgument Kind = "missing_argument"
	KindInvalidArgument Kind = "invalid_argument"
	KindRoleNotFound    Kind = "role_not_found"
	KindDuplicateRole   Kind = "duplicate_role"
	KindCombatNotFound  Kind = "combat_not_found"
	KindInvalidRole     Kind = "invalid_role"
	KindInternal        Kind = "internal"
)

// Error wraps a failure with the tool that produced it.
type Error struct {
	Tool string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies err.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) && te.Kind != "" {
		return te.Kind
	}
	switch {
	case errors.Is(err, ErrUnknownTool):
		return KindUnknownTool
	case errors.Is(err, ErrMissingArgument):
		return KindMissingArgument
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, engine.ErrRoleNotFound):
		return KindRoleNotFound
	case errors.Is(err, engine.ErrDuplicateRole):
		return KindDuplicateRole
	case errors.Is(err, engine.ErrEncounterNotFound):
		return KindCombatNotFound
	case errors.Is(err, engine.ErrInvalidRole):
		return KindInvalidRole
	default:
		return KindInternal
	}
}

func wrap(tool string, err error) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return err
	}
	return &Error{Tool: tool, Kind: KindOf(err), Err: err}
}
