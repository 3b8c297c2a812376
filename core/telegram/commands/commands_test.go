package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestValidate(t *testing.T) {
	noop := func(tele.Context) error { return nil }

	assert.NoError(t, Command{Handler: noop, Description: "Pay"}.Validate("/pay"))
	assert.ErrorIs(t, Command{Handler: noop, Description: "Pay"}.Validate("pay"), ErrBadName)
	assert.ErrorIs(t, Command{Handler: noop, Description: "Pay"}.Validate("/"), ErrBadName)
	assert.ErrorIs(t, Command{Description: "Pay"}.Validate("/pay"), ErrNoHandler)
	assert.ErrorIs(t, Command{Handler: noop, Description: "  "}.Validate("/pay"), ErrNoDescription)
}

func TestVisibilityAndAliases(t *testing.T) {
	cmd := Command{Aliases: []string{"payment", "/buy"}}
	assert.True(t, cmd.Visible())
	assert.True(t, cmd.HasAlias("/payment"))
	assert.True(t, cmd.HasAlias("/buy"))
	assert.False(t, cmd.HasAlias("payment"))

	assert.False(t, Command{Hidden: true}.Visible())
	assert.False(t, Command{AdminOnly: true}.Visible())
}
