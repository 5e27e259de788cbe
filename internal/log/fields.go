package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldFamilyID   = "family_id"
	FieldDomain     = "domain"
	FieldIntent     = "intent"
	FieldConfidence = "confidence"
	FieldState      = "state"
	FieldResult     = "operation_result"
	FieldDuration   = "duration_ms"
	FieldAmount     = "amount_cents"
	FieldCategory   = "category"
	FieldBudgetID   = "budget_id"
	FieldGoalID     = "goal_id"
	FieldListID     = "list_id"
	FieldItemCount  = "item_count"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentRouter   = "router"
	ComponentPipeline = "pipeline"
	ComponentLLM      = "llm"
	ComponentStorage  = "storage"
	ComponentEvents   = "events"
	ComponentWorker   = "worker"
	ComponentCache    = "cache"
)

// Operations defines standard operation names
const (
	OpRoute    = "route"
	OpClassify = "classify"
	OpExtract  = "extract"
	OpExecute  = "execute"
	OpRespond  = "respond"
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpPublish  = "publish"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
