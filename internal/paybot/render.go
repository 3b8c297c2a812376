package paybot

import (
	tghelpers "github.com/m3rciful/paybot/core/telegram/helpers"
	"github.com/m3rciful/paybot/core/telegram/keyboard"
	"github.com/m3rciful/paybot/internal/payment"

	tele "gopkg.in/telebot.v4"
)

func replyMarkup(r payment.Reply) *tele.ReplyMarkup {
	if len(r.Buttons) == 0 {
		return nil
	}
	btns := make([]keyboard.InlineBtn, 0, len(r.Buttons))
	for _, b := range r.Buttons {
		btns = append(btns, keyboard.InlineBtn{Text: b.Text, Data: b.Data, URL: b.URL})
	}
	return keyboard.InlineButtonsNPerRow(btns, r.PerRow)
}

// render delivers r, editing the pressed message when asked to.
func render(c tele.Context, r payment.Reply) error {
	if r.Text == "" {
		return nil
	}
	markup := replyMarkup(r)
	if r.Edit && c.Callback() != nil {
		return tghelpers.EditText(c, r.Text, markup)
	}
	return tghelpers.SendText(c, r.Text, markup)
}
