package dialog

import (
	"context"
	"fmt"

	"jarvis/internal/llm"
	"jarvis/internal/log"
)

// State names one step of the dialogue pipeline.
type State int

const (
	StateStart State = iota
	StateClassify
	StateExtract
	StateExecute
	StateRespond
	StateEnd
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateClassify:
		return "classify"
	case StateExtract:
		return "extract"
	case StateExecute:
		return "execute"
	case StateRespond:
		return "respond"
	case StateEnd:
		return "end"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Input is one incoming user message with its conversation context.
type Input struct {
	UserID   string
	FamilyID string
	Text     string
	History  []llm.Message
}

// Classification is the routing verdict for a message.
type Classification struct {
	Domain      string
	Intent      string
	Confidence  float64
	Explanation string
}

// Outcome is what a handler's execute step produced: the data the respond
// step phrases, plus structured metadata returned to the caller.
type Outcome struct {
	Summary  string // factual description of what happened, fed to respond
	Metadata map[string]any
}

// Result is a finished pipeline run. Applicable is false when the handler
// decided the message does not belong to its domain after all.
type Result struct {
	Reply      string
	Intent     string
	Applicable bool
	Metadata   map[string]any
}

// Handler implements one domain's pipeline steps. Classify may refine the
// router's verdict, Extract pulls a typed record R from the text, Execute
// performs the domain operation, and Respond phrases the outcome.
type Handler[R any] interface {
	Domain() string
	Classify(ctx context.Context, in Input) (Classification, error)
	Extract(ctx context.Context, in Input, c Classification) (R, error)
	Execute(ctx context.Context, in Input, c Classification, record R) (Outcome, error)
	Respond(ctx context.Context, in Input, c Classification, out Outcome) (string, error)
}

// apologyReply is the fixed fallback when the respond step itself fails.
const apologyReply = "Извините, я не смог обработать ваш запрос. Попробуйте ещё раз."

// NotApplicable signals that a handler inspected the message and declined
// it. The router reroutes such messages to the general handler.
var NotApplicable = fmt.Errorf("message not applicable to domain")

// Run drives one message through a handler's pipeline in the fixed order
// classify, extract, execute, respond. Each transition is logged. Errors in
// execute and respond degrade to an apologetic reply instead of failing the
// turn; an error in classify or extract aborts since there is nothing safe
// to execute.
func Run[R any](ctx context.Context, h Handler[R], in Input, logger *log.Logger) (Result, error) {
	l := logger.With(
		log.FieldDomain, h.Domain(),
		log.FieldUserID, in.UserID,
		log.FieldFamilyID, in.FamilyID,
	)

	state := StateStart

	state = advance(ctx, l, state, StateClassify)
	c, err := h.Classify(ctx, in)
	if err != nil {
		if err == NotApplicable {
			return Result{Applicable: false}, nil
		}
		return Result{}, fmt.Errorf("classify: %w", err)
	}
	l = l.With(log.FieldIntent, c.Intent, log.FieldConfidence, c.Confidence)

	state = advance(ctx, l, state, StateExtract)
	record, err := h.Extract(ctx, in, c)
	if err != nil {
		if err == NotApplicable {
			return Result{Applicable: false}, nil
		}
		return Result{}, fmt.Errorf("extract: %w", err)
	}

	state = advance(ctx, l, state, StateExecute)
	out, execErr := h.Execute(ctx, in, c, record)
	if execErr == NotApplicable {
		return Result{Applicable: false}, nil
	}
	result := "успешно"
	if execErr != nil {
		l.WarnContext(ctx, "execute failed",
			log.FieldOperation, log.OpExecute, log.FieldError, execErr)
		// The respond step still runs: it phrases the apology instead
		// of the outcome.
		out = Outcome{Summary: apologyReply}
		result = "ошибка"
	}

	state = advance(ctx, l, state, StateRespond)
	reply, err := h.Respond(ctx, in, c, out)
	if err != nil {
		l.WarnContext(ctx, "respond failed, using static reply",
			log.FieldOperation, log.OpRespond, log.FieldError, err)
		reply = apologyReply
	}

	advance(ctx, l, state, StateEnd)

	meta := map[string]any{
		log.FieldDomain:     h.Domain(),
		log.FieldIntent:     c.Intent,
		log.FieldConfidence: c.Confidence,
		log.FieldResult:     result,
	}
	for k, v := range out.Metadata {
		meta[k] = v
	}

	return Result{
		Reply:      reply,
		Intent:     c.Intent,
		Applicable: true,
		Metadata:   meta,
	}, nil
}

// Runner is the type-erased face of a domain pipeline, letting the router
// hold handlers with different record types in one table.
type Runner interface {
	Domain() string
	Handle(ctx context.Context, in Input) (Result, error)
}

type runner[R any] struct {
	h      Handler[R]
	logger *log.Logger
}

// NewRunner wraps a typed handler into a Runner.
func NewRunner[R any](h Handler[R], logger *log.Logger) Runner {
	return runner[R]{h: h, logger: logger.WithComponent(log.ComponentPipeline)}
}

func (r runner[R]) Domain() string { return r.h.Domain() }

func (r runner[R]) Handle(ctx context.Context, in Input) (Result, error) {
	return Run(ctx, r.h, in, r.logger)
}

func advance(ctx context.Context, l *log.Logger, from, to State) State {
	l.DebugContext(ctx, "pipeline transition",
		log.FieldState, fmt.Sprintf("%s->%s", from, to))
	return to
}
