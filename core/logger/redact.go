package logger

import (
	"slices"
	"strings"
	"sync"
)

const redactedMark = "<redacted>"

// secrets shorter than this are too likely to collide with ordinary text
const minSecretLen = 8

var (
	secretsMu sync.RWMutex
	secrets   []string
)

// RegisterSecret makes the structured handler mask every occurrence of value in string attributes.
func RegisterSecret(value string) {
	value = strings.TrimSpace(value)
	if len(value) < minSecretLen {
		return
	}
	secretsMu.Lock()
	defer secretsMu.Unlock()
	if !slices.Contains(secrets, value) {
		secrets = append(secrets, value)
	}
}

func redact(s string) string {
	secretsMu.RLock()
	defer secretsMu.RUnlock()
	for _, secret := range secrets {
		if strings.Contains(s, secret) {
			s = strings.ReplaceAll(s, secret, redactedMark)
		}
	}
	return s
}
