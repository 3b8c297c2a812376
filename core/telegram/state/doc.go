// Package state provides a lightweight FSM/session manager for Telegram bots.
// It is domain-agnostic: bots declare their own State values and temp keys.
package state
