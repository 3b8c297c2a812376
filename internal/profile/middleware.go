package profile

import (
	tghelpers "github.com/m3rciful/paybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// FromUser snapshots the identity fields of a Telegram user.
func FromUser(u *tele.User) Profile {
	if u == nil {
		return Profile{}
	}
	return Profile{
		UserID:    u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// Middleware registers the sender of every inbound update on first contact.
func Middleware(store *Store) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if u := c.Sender(); u != nil && store != nil && !u.IsBot {
				if _, ok := store.Get(u.ID); !ok {
					store.Register(tghelpers.BuildContext(c), FromUser(u))
				}
			}
			return next(c)
		}
	}
}
