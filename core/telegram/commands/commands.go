package commands

import (
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Reasons a command cannot be registered.
var (
	ErrNoHandler     = errors.New("command has no handler")
	ErrNoDescription = errors.New("command has no description")
	ErrBadName       = errors.New("command name must start with /")
)

// Command is a slash command with its handler and menu metadata.
// AdminOnly and Hidden commands are left out of the Telegram command menu.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Validate checks that the command can be registered under name.
func (c Command) Validate(name string) error {
	switch {
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		return ErrBadName
	case c.Handler == nil:
		return ErrNoHandler
	case strings.TrimSpace(c.Description) == "":
		return ErrNoDescription
	}
	return nil
}

// Visible reports whether the command belongs in the public menu.
func (c Command) Visible() bool {
	return !c.Hidden && !c.AdminOnly
}

// HasAlias reports whether name, with its leading slash, is one of the aliases.
func (c Command) HasAlias(name string) bool {
	for _, alias := range c.Aliases {
		if "/"+strings.TrimPrefix(alias, "/") == name {
			return true
		}
	}
	return false
}
