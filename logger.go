package calygo

// Logger is satisfied by *log.Logger from charmbracelet/log.
type Logger interface {
	Debug(msg interface{}, keyvals ...interface{})
	Info(msg interface{}, keyvals ...interface{})
	Warn(msg interface{}, keyvals ...interface{})
	Error(msg interface{}, keyvals ...interface{})
	Fatal(msg interface{}, keyvals ...interface{})
}

// NopLogger discards everything. Fatal does not exit.
type NopLogger struct{}

func (NopLogger) Debug(interface{}, ...interface{}) {}
func (NopLogger) Info(interface{}, ...interface{})  {}
func (NopLogger) Warn(interface{}, ...interface{})  {}
func (NopLogger) Error(interface{}, ...interface{}) {}
func (NopLogger) Fatal(interface{}, ...interface{}) {}
