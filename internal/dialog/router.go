package dialog

import (
	"context"
	"fmt"

	"jarvis/internal/llm"
	"jarvis/internal/log"
)

// Domain labels the classifier may emit.
const (
	DomainTasks    = "task_management"
	DomainShopping = "shopping"
	DomainBudget   = "budget"
	DomainFamily   = "family"
	DomainGeneral  = "general"
)

// History windows, in turns. Classification needs less context than chat.
const (
	classifyHistoryTurns = 2
	generalHistoryTurns  = 5
)

// Reply is the routed answer returned to the transport layer.
type Reply struct {
	Response   string
	Domain     string
	Intent     string
	Confidence float64
	Metadata   map[string]any
}

// domainVerdict is the record the domain-classification schema fills.
type domainVerdict struct {
	Domain      string  `json:"domain"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

var domainSchema = llm.Schema{Fields: []llm.SchemaField{
	{
		Name: "domain", Type: llm.TypeString, Required: true,
		Enum: []string{DomainTasks, DomainShopping, DomainBudget, DomainFamily, DomainGeneral},
		Description: "functional area the request belongs to",
	},
	{
		Name: "confidence", Type: llm.TypeNumber, Required: true,
		Description: "how certain the classification is, 0 to 1",
	},
	{Name: "explanation", Type: llm.TypeString, Description: "one short sentence"},
}}

const classifyTask = "Determine which functional area of a family assistant " +
	"the user's request belongs to. The request may be in Russian."

// Router owns the single external entry point of the engine. It classifies
// each message into a domain, dispatches to the matching pipeline and falls
// back to general chat whenever no domain can claim the message.
type Router struct {
	extractor *llm.Extractor
	general   *GeneralHandler
	pipelines map[string]Runner
	threshold float64
	logger    *log.Logger
}

// NewRouter builds a router over the given pipelines. threshold is the
// minimum classification confidence for domain dispatch.
func NewRouter(extractor *llm.Extractor, general *GeneralHandler, threshold float64, logger *log.Logger, pipelines ...Runner) *Router {
	byDomain := make(map[string]Runner, len(pipelines))
	for _, p := range pipelines {
		byDomain[p.Domain()] = p
	}
	return &Router{
		extractor: extractor,
		general:   general,
		pipelines: byDomain,
		threshold: threshold,
		logger:    logger.WithComponent(log.ComponentRouter),
	}
}

// routerApology is the last line of defense when routing itself panics.
const routerApology = "Извините, что-то пошло не так. Попробуйте ещё раз."

// RouteMessage processes one user message end to end and never panics: an
// unexpected failure anywhere below is replaced by a fixed apology.
func (r *Router) RouteMessage(ctx context.Context, text, userID, familyID string, history []llm.Message) (reply Reply) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "routing panicked",
				log.FieldOperation, log.OpRoute,
				log.FieldUserID, userID,
				log.FieldError, fmt.Sprintf("%v", rec))
			reply = Reply{Response: routerApology, Domain: DomainGeneral}
		}
	}()

	// Without a family there is no domain state to act on.
	if familyID == "" {
		return r.generalReply(ctx, text, userID, familyID, history, nil)
	}

	verdict := llm.Extract(ctx, r.extractor, domainSchema, classifyTask,
		withHistory(text, lastTurns(history, classifyHistoryTurns)),
		domainVerdict{Domain: DomainGeneral, Confidence: 0})

	r.logger.InfoContext(ctx, "message classified",
		log.FieldOperation, log.OpClassify,
		log.FieldUserID, userID,
		log.FieldFamilyID, familyID,
		log.FieldDomain, verdict.Domain,
		log.FieldConfidence, verdict.Confidence)

	classMeta := map[string]any{
		log.FieldDomain:     verdict.Domain,
		log.FieldConfidence: verdict.Confidence,
	}
	if verdict.Explanation != "" {
		classMeta["explanation"] = verdict.Explanation
	}

	if verdict.Confidence < r.threshold {
		return r.generalReply(ctx, text, userID, familyID, history, classMeta)
	}

	pipeline, ok := r.pipelines[verdict.Domain]
	if !ok {
		return r.generalReply(ctx, text, userID, familyID, history, classMeta)
	}

	in := Input{UserID: userID, FamilyID: familyID, Text: text, History: history}
	result, err := pipeline.Handle(ctx, in)
	if err != nil {
		r.logger.ErrorContext(ctx, "pipeline failed",
			log.FieldOperation, log.OpRoute,
			log.FieldDomain, verdict.Domain,
			log.FieldError, err)
		return Reply{
			Response:   routerApology,
			Domain:     verdict.Domain,
			Confidence: verdict.Confidence,
			Metadata:   classMeta,
		}
	}
	if !result.Applicable {
		return r.generalReply(ctx, text, userID, familyID, history, classMeta)
	}

	meta := mergeMetadata(classMeta, result.Metadata)
	return Reply{
		Response:   result.Reply,
		Domain:     verdict.Domain,
		Intent:     result.Intent,
		Confidence: verdict.Confidence,
		Metadata:   meta,
	}
}

func (r *Router) generalReply(ctx context.Context, text, userID, familyID string, history []llm.Message, classMeta map[string]any) Reply {
	response := r.general.Respond(ctx, text, lastTurns(history, generalHistoryTurns))

	domain := DomainGeneral
	confidence := 0.0
	if classMeta != nil {
		if d, ok := classMeta[log.FieldDomain].(string); ok {
			domain = d
		}
		if c, ok := classMeta[log.FieldConfidence].(float64); ok {
			confidence = c
		}
	}
	return Reply{
		Response:   response,
		Domain:     domain,
		Confidence: confidence,
		Metadata:   classMeta,
	}
}

// lastTurns keeps the final n turns (2 messages each) of a history.
func lastTurns(history []llm.Message, n int) []llm.Message {
	if keep := n * 2; len(history) > keep {
		return history[len(history)-keep:]
	}
	return history
}

func withHistory(text string, history []llm.Message) string {
	if len(history) == 0 {
		return text
	}
	s := "Recent conversation:\n"
	for _, m := range history {
		s += fmt.Sprintf("%s: %s\n", m.Role, m.Content)
	}
	return s + "\nCurrent request:\n" + text
}

func mergeMetadata(base, extra map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
