// Package payment implements the invoice conversation: the currency catalog
// filter, the invoice requester and the per-user amount/currency state machine.
// Replies are transport-neutral; internal/paybot renders them for Telegram.
package payment
