package whatsapp

import (
	"context"
	"strings"

	"github.com/user/dopewars-engine/internal/interfaces"
	"go.uber.org/zap"
)

// Incoming is a text message received by a bot number
type Incoming struct {
	BotPhone string
	Sender   string
	Chat     string
	IsGroup  bool
	Text     string
}

// Router hands chat commands to the command handler and sends the reply
// back to the chat they came from
type Router struct {
	handler interfaces.CommandHandler
	sender  interfaces.MessageSender
	logger  *zap.Logger
}

// NewRouter creates a router
func NewRouter(handler interfaces.CommandHandler, sender interfaces.MessageSender, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{handler: handler, sender: sender, logger: logger}
}

// Route answers msg if it is a command. It reports whether a reply was sent.
func (r *Router) Route(ctx context.Context, msg Incoming) bool {
	command, ok := commandText(msg.Text, msg.IsGroup)
	if !ok {
		return false
	}

	r.logger.Debug("Received command",
		zap.String("command", command),
		zap.String("sender", msg.Sender),
		zap.String("chat", msg.Chat))

	// Players are keyed by their own number, also inside groups
	reply := r.handler.Handle(ctx, msg.Sender, command)
	if reply == "" {
		return false
	}

	if _, err := r.sender.SendMessage(msg.BotPhone, msg.Chat, reply); err != nil {
		r.logger.Error("Failed to send reply",
			zap.String("sender", msg.Sender),
			zap.String("chat", msg.Chat),
			zap.Error(err))
		return false
	}
	return true
}

// commandText extracts a command from a chat message. Private chats need a
// leading "/", groups need "/ " so ordinary slash talk is left alone.
func commandText(content string, isGroup bool) (string, bool) {
	content = strings.TrimSpace(content)
	if isGroup {
		if !strings.HasPrefix(content, "/ ") {
			return "", false
		}
		content = "/" + strings.TrimSpace(strings.TrimPrefix(content, "/ "))
	} else if !strings.HasPrefix(content, "/") {
		return "", false
	}

	if content == "/" {
		return "", false
	}
	return content, true
}
