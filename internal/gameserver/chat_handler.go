package gameserver

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mverrilli/deckbound/internal/game/session"
)

// ChatHandler handles party chat.
type ChatHandler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewChatHandler creates a ChatHandler.
//
// Precondition: sessions and logger must be non-nil.
func NewChatHandler(sessions *session.Manager, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{sessions: sessions, logger: logger}
}

// Say broadcasts a chat line to every member of the sender's party,
// including the sender.
//
// Precondition: uid must be a connected player.
// Postcondition: Returns an error for unknown players or empty messages.
func (h *ChatHandler) Say(uid, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return fmt.Errorf("say what?")
	}
	sender, ok := h.sessions.GetPlayer(uid)
	if !ok {
		return fmt.Errorf("player %q not found", uid)
	}

	frame, err := encodeFrame("chat", ChatPayload{From: sender.CharName, Message: message})
	if err != nil {
		return fmt.Errorf("encoding chat frame: %w", err)
	}
	for _, member := range h.sessions.PartyMembers(sender.PartyID) {
		ps, ok := h.sessions.GetPlayer(member)
		if !ok {
			continue
		}
		if err := ps.Entity.Push(frame); err != nil {
			h.logger.Debug("dropping chat frame", zap.String("uid", member), zap.Error(err))
		}
	}
	return nil
}
