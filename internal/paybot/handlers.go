package paybot

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/paybot/core/buildinfo"
	"github.com/m3rciful/paybot/core/telegram/callbacks"
	"github.com/m3rciful/paybot/core/telegram/commands"
	"github.com/m3rciful/paybot/core/telegram/format"
	tghelpers "github.com/m3rciful/paybot/core/telegram/helpers"
	"github.com/m3rciful/paybot/internal/payment"
	"github.com/m3rciful/paybot/internal/profile"

	tele "gopkg.in/telebot.v4"
)

func (a *App) register() error {
	a.registry.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Register your profile",
	})
	a.registry.RegisterCommand("/pay", commands.Command{
		Handler:     a.handlePay,
		Description: "Pay with cryptocurrency",
	})
	a.registry.RegisterCommand("/stats", commands.Command{
		Handler:     a.handleStats,
		Description: "Bot statistics",
		AdminOnly:   true,
		Hidden:      true,
	})
	if err := a.registry.RegisterCallbackPrefix(payment.CallbackPrefix, a.handleCurrency); err != nil {
		return err
	}
	a.states.RegisterHandler(payment.StepAwaitingAmount, a.handleAmount)
	return nil
}

// GreetingMessage is sent in reply to /start.
func GreetingMessage(firstName string) string {
	return fmt.Sprintf("Hello, %s! Your profile has been created.\nType /pay to make a payment.", firstName)
}

func (a *App) handleStart(c tele.Context) error {
	u := c.Sender()
	if u == nil {
		return nil
	}
	a.profiles.Register(tghelpers.BuildContext(c), profile.FromUser(u))
	return tghelpers.SendText(c, GreetingMessage(u.FirstName))
}

func (a *App) handlePay(c tele.Context) error {
	u := c.Sender()
	if u == nil {
		return nil
	}
	return render(c, a.flow.Begin(tghelpers.BuildContext(c), u.ID))
}

func (a *App) handleAmount(c tele.Context) error {
	u := c.Sender()
	if u == nil {
		return nil
	}
	return render(c, a.flow.SubmitAmount(tghelpers.BuildContext(c), u.ID, c.Text()))
}

func (a *App) handleCurrency(c tele.Context) error {
	u := c.Sender()
	if u == nil {
		return nil
	}
	code := strings.TrimPrefix(callbacks.CallbackData(c), payment.CallbackPrefix)
	tghelpers.Annotate(c, slog.String("currency", strings.ToLower(code)))
	return render(c, a.flow.SelectCurrency(tghelpers.BuildContext(c), u.ID, code))
}

// StatsMessage renders the admin summary in Markdown V1.
func StatsMessage(profiles, active int, version string) string {
	v, err := format.EscapeMarkdown(version, format.MarkdownV1)
	if err != nil {
		v = ""
	}
	return fmt.Sprintf("*Stats*\nProfiles: %d\nActive conversations: %d\nVersion: %s", profiles, active, v)
}

func (a *App) handleStats(c tele.Context) error {
	return tghelpers.SendMD(c, StatsMessage(a.profiles.Count(), a.states.Active(), buildinfo.Version))
}
