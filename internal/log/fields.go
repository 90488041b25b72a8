package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldUserID     = "user_id"
	FieldFamilyID   = "family_id"
	FieldTxID       = "transaction_id"
	FieldAmount     = "amount"
	FieldCategory   = "category"
	FieldEmail      = "email"
	FieldYear       = "year"
	FieldMonth      = "month"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentRanking = "ranking"
	ComponentFamily  = "family"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentMailer  = "mailer"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
	ComponentSeed    = "seed"
)
