package constants

// Macro names recognized in document content.
const (
	MacroTask    = "task"
	MacroMention = "mention"
	MacroDate    = "date"
	MacroError   = "error"
)

// Task macro parameters.
const (
	ParamReference    = "reference"
	ParamStatus       = "status"
	ParamReporter     = "reporter"
	ParamCreateDate   = "createDate"
	ParamCompleteDate = "completeDate"
)

// Mention and date macro parameters.
const (
	ParamRef    = "ref"
	ParamDate   = "date"
	ParamStyle  = "style"
	ParamAnchor = "anchor"

	MentionStyleFullName = "FULL_NAME"
)

// StatusDone is the terminal task status.
const StatusDone = "done"

// Defaults used when configuration leaves a value empty.
const (
	DefaultStorageDateFormat = "2006/01/02 15:04"
	DefaultFallbackSpace     = "TaskManager"
	DefaultNamePrefix        = "Task_"
	DefaultTimezone          = "UTC"
)

// Pagination bounds for task listings.
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AnchorSuffixLength is the number of random letters appended to mention anchors.
const AnchorSuffixLength = 5
