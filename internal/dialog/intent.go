package dialog

import (
	"context"
	"fmt"

	"jarvis/internal/llm"
)

// intentVerdict is the record every domain's intent schema fills.
type intentVerdict struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// intentOther marks a message the domain cannot serve.
const intentOther = "other"

// intentSchema builds the classification schema for a domain's intent set.
// "other" is always allowed so the classifier has a way out.
func intentSchema(intents []string) llm.Schema {
	enum := append(append([]string{}, intents...), intentOther)
	return llm.Schema{Fields: []llm.SchemaField{
		{
			Name: "intent", Type: llm.TypeString, Required: true, Enum: enum,
			Description: "the specific action the user wants",
		},
		{
			Name: "confidence", Type: llm.TypeNumber, Required: true,
			Description: "how certain the classification is, 0 to 1",
		},
	}}
}

// classifyIntent runs one extraction against the domain's intent table and
// applies the not-applicable rule: low confidence or "other" declines the
// message back to the router.
func classifyIntent(ctx context.Context, ex *llm.Extractor, domain string, intents []string, threshold float64, in Input) (Classification, error) {
	task := fmt.Sprintf("Classify the user's request within the %q area of a family assistant. The request may be in Russian.", domain)
	v := llm.Extract(ctx, ex, intentSchema(intents), task,
		withHistory(in.Text, lastTurns(in.History, classifyHistoryTurns)),
		intentVerdict{Intent: intentOther, Confidence: 0})

	if v.Intent == intentOther || v.Confidence < threshold {
		return Classification{}, NotApplicable
	}
	return Classification{Domain: domain, Intent: v.Intent, Confidence: v.Confidence}, nil
}

const respondSystem = "Ты — дружелюбный семейный ассистент. Сформулируй " +
	"короткий ответ пользователю по фактам ниже. Не выдумывай данных, " +
	"которых нет в фактах. Отвечай на русском."

// phrase asks the model to turn a factual summary into a warm reply.
func phrase(ctx context.Context, client llm.Client, intent, summary string) (string, error) {
	prompt := fmt.Sprintf("Действие: %s\nФакты:\n%s", intent, summary)
	return client.Generate(ctx, respondSystem, prompt, nil)
}
