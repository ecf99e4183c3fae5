// Package access decides which users may talk to the bot.
package access

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Mode selects how users are admitted.
type Mode string

const (
	// ModeDev admits every user.
	ModeDev Mode = "dev"
	// ModeStrict admits users who redeemed a single-use invite token.
	ModeStrict Mode = "strict"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeDev, ModeStrict:
		return m, nil
	case "":
		return ModeDev, nil
	default:
		return "", fmt.Errorf("unknown start mode %q", s)
	}
}

// Gate tracks invite tokens and admitted users.
type Gate struct {
	mode    Mode
	mu      sync.Mutex
	tokens  map[string]struct{}
	granted map[string]struct{}
	logger  *slog.Logger
}

// NewGate creates a gate with the given unused tokens.
func NewGate(mode Mode, tokens []string, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{
		mode:    mode,
		tokens:  make(map[string]struct{}, len(tokens)),
		granted: make(map[string]struct{}),
		logger:  logger,
	}
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			g.tokens[t] = struct{}{}
		}
	}
	return g
}

// Mode returns the configured mode.
func (g *Gate) Mode() Mode {
	return g.mode
}

// Allowed reports whether the user may proceed.
func (g *Gate) Allowed(userID string) bool {
	if g.mode == ModeDev {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.granted[userID]
	return ok
}

// Redeem consumes a token for the user. Already admitted users succeed
// without consuming anything.
func (g *Gate) Redeem(userID, token string) bool {
	if g.mode == ModeDev {
		return true
	}
	token = strings.TrimSpace(token)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.granted[userID]; ok {
		return true
	}
	if _, ok := g.tokens[token]; !ok || token == "" {
		g.logger.Warn("Rejected invite token", "user_id", userID)
		return false
	}
	delete(g.tokens, token)
	g.granted[userID] = struct{}{}
	g.logger.Info("Invite token redeemed", "user_id", userID, "tokens_left", len(g.tokens))
	return true
}

// Grant admits a user without a token.
func (g *Gate) Grant(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.granted[userID] = struct{}{}
}
