package dialog

import (
	"context"

	"jarvis/internal/llm"
	"jarvis/internal/log"
)

const generalSystem = "Ты — дружелюбный семейный ассистент. Помогаешь с " +
	"бытовыми вопросами, отвечаешь коротко и по делу, на языке пользователя."

const generalFallback = "Я вас слушаю, но сейчас не могу ответить. Попробуйте ещё раз чуть позже."

// GeneralHandler answers messages no domain claimed: plain conversation
// with a short history window and no state mutation.
type GeneralHandler struct {
	client llm.Client
	logger *log.Logger
}

// NewGeneralHandler builds the fallback conversational handler.
func NewGeneralHandler(client llm.Client, logger *log.Logger) *GeneralHandler {
	return &GeneralHandler{
		client: client,
		logger: logger.WithComponent(log.ComponentPipeline),
	}
}

// Respond generates a chat reply. A model failure degrades to a static
// reply, never to an error.
func (g *GeneralHandler) Respond(ctx context.Context, text string, history []llm.Message) string {
	reply, err := g.client.Generate(ctx, generalSystem, text, history)
	if err != nil {
		g.logger.WarnContext(ctx, "general reply failed",
			log.FieldOperation, log.OpRespond, log.FieldError, err)
		return generalFallback
	}
	return reply
}
