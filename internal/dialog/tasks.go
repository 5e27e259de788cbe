package dialog

import (
	"context"
	"fmt"

	"jarvis/internal/llm"
	"jarvis/internal/log"
)

// Task domain intents. The task area is acknowledgment-only: there is no
// task store yet, the handler extracts and confirms what it understood.
const (
	IntentCreateTask     = "create_task"
	IntentCreateReminder = "create_reminder"
	IntentViewTasks      = "view_tasks"
)

var taskIntents = []string{IntentCreateTask, IntentCreateReminder, IntentViewTasks}

type taskRecord struct {
	Title    string `json:"title"`
	DueDate  string `json:"due_date"`
	Assignee string `json:"assignee"`
}

var taskSchema = llm.Schema{Fields: []llm.SchemaField{
	{Name: "title", Type: llm.TypeString, Required: true, Description: "what needs to be done"},
	{Name: "due_date", Type: llm.TypeString, Description: "due date in YYYY-MM-DD format"},
	{Name: "assignee", Type: llm.TypeString, Description: "family member responsible"},
}}

// TasksHandler covers the task management domain.
type TasksHandler struct {
	extractor *llm.Extractor
	client    llm.Client
	threshold float64
	logger    *log.Logger
}

// NewTasksHandler wires the task pipeline.
func NewTasksHandler(extractor *llm.Extractor, client llm.Client, threshold float64, logger *log.Logger) *TasksHandler {
	return &TasksHandler{
		extractor: extractor,
		client:    client,
		threshold: threshold,
		logger:    logger.WithComponent(log.ComponentPipeline),
	}
}

func (h *TasksHandler) Domain() string { return DomainTasks }

func (h *TasksHandler) Classify(ctx context.Context, in Input) (Classification, error) {
	return classifyIntent(ctx, h.extractor, DomainTasks, taskIntents, h.threshold, in)
}

func (h *TasksHandler) Extract(ctx context.Context, in Input, c Classification) (taskRecord, error) {
	if c.Intent == IntentViewTasks {
		return taskRecord{}, nil
	}
	rec := llm.Extract(ctx, h.extractor, taskSchema,
		"Extract the task details from the user's message.", in.Text, taskRecord{})
	return rec, nil
}

func (h *TasksHandler) Execute(ctx context.Context, in Input, c Classification, rec taskRecord) (Outcome, error) {
	switch c.Intent {
	case IntentCreateTask, IntentCreateReminder:
		if rec.Title == "" {
			return Outcome{Summary: "Не удалось распознать задачу. Сформулируйте, пожалуйста, что нужно сделать."}, nil
		}
		lead := "Задача записана"
		if c.Intent == IntentCreateReminder {
			lead = "Напоминание записано"
		}
		summary := fmt.Sprintf("%s: «%s».", lead, rec.Title)
		if rec.DueDate != "" {
			summary += fmt.Sprintf(" Срок: %s.", rec.DueDate)
		}
		if rec.Assignee != "" {
			summary += fmt.Sprintf(" Ответственный: %s.", rec.Assignee)
		}
		return Outcome{Summary: summary, Metadata: map[string]any{"title": rec.Title}}, nil
	case IntentViewTasks:
		return Outcome{Summary: "Список задач пока пуст."}, nil
	}
	return Outcome{}, NotApplicable
}

func (h *TasksHandler) Respond(ctx context.Context, in Input, c Classification, out Outcome) (string, error) {
	return phrase(ctx, h.client, c.Intent, out.Summary)
}
