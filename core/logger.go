package core

// Logger is implemented by the error-reporting services. Implementations
// may inspect args for well-known types (eg. the acting account) to enrich
// reports.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
