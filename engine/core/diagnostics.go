package core

// DiagnosticSeverity mirrors the severity levels reported by the Vulkan
// debug utils messenger.
type DiagnosticSeverity uint8

const (
	DiagnosticSeverityVerbose DiagnosticSeverity = iota
	DiagnosticSeverityInfo
	DiagnosticSeverityWarning
	DiagnosticSeverityError
)

func (s DiagnosticSeverity) String() string {
	switch s {
	case DiagnosticSeverityVerbose:
		return "verbose"
	case DiagnosticSeverityInfo:
		return "info"
	case DiagnosticSeverityWarning:
		return "warning"
	case DiagnosticSeverityError:
		return "error"
	}
	return "unknown"
}

// DiagnosticCategory mirrors the message type of the Vulkan debug utils
// messenger.
type DiagnosticCategory uint8

const (
	DiagnosticCategoryGeneral DiagnosticCategory = iota
	DiagnosticCategoryPerformance
	DiagnosticCategoryValidation
)

func (c DiagnosticCategory) String() string {
	switch c {
	case DiagnosticCategoryGeneral:
		return "general"
	case DiagnosticCategoryPerformance:
		return "performance"
	case DiagnosticCategoryValidation:
		return "validation"
	}
	return "unknown"
}

// DiagnosticEvent is one structured message from the driver or the
// validation layers.
type DiagnosticEvent struct {
	Severity DiagnosticSeverity
	Category DiagnosticCategory
	Message  string
}

// DiagnosticSink receives driver and validation-layer messages. Handle
// must never abort the call that triggered the event; the messenger
// always tells the driver to continue.
type DiagnosticSink interface {
	Handle(event DiagnosticEvent)
}

// LogDiagnosticSink forwards every event to the engine logger.
type LogDiagnosticSink struct{}

func (LogDiagnosticSink) Handle(event DiagnosticEvent) {
	switch event.Severity {
	case DiagnosticSeverityError:
		LogError("[%s] %s", event.Category, event.Message)
	case DiagnosticSeverityWarning:
		LogWarn("[%s] %s", event.Category, event.Message)
	case DiagnosticSeverityInfo:
		LogInfo("[%s] %s", event.Category, event.Message)
	default:
		LogDebug("[%s] %s", event.Category, event.Message)
	}
}

// NoopDiagnosticSink drops every event. Used in release mode, where no
// validation layers are enabled.
type NoopDiagnosticSink struct{}

func (NoopDiagnosticSink) Handle(DiagnosticEvent) {}
