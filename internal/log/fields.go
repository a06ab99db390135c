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
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldAccountID   = "account_id"
	FieldAccountName = "account_name"
	FieldBankCode    = "bank_code"
	FieldTxID        = "transaction_id"
	FieldMonth       = "month"
	FieldAmount      = "amount"
	FieldRefNo       = "ref_no"
	FieldSessionID   = "session_id"
	FieldRowCount    = "row_count"
	FieldFileName    = "file_name"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentTx      = "transaction"
	ComponentImport  = "import"
	ComponentParser  = "parser"
	ComponentOCR     = "ocr"
	ComponentPDF     = "pdf"
	ComponentAMQP    = "amqp"
	ComponentGmail   = "gmail"
	ComponentWorker  = "worker"
	ComponentExport  = "export"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpParse    = "parse"
	OpPreview  = "preview"
	OpCommit   = "commit"
	OpCheck    = "check_duplicates"
	OpFetch    = "fetch"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
