package engine

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
)

// LogWriter routes engine log records to the notifier display functions.
// Records are delivered through the main thread dispatcher so that log calls
// from any goroutine end up on the session goroutine.
type LogWriter struct {
	Notifier   Notifier
	MainThread *MainThread
}

// Write implements io.Writer; records without a level are shown as info
func (w *LogWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter
func (w *LogWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	msg := formatRecord(level, p)
	display := w.displayFunc(level)

	if w.MainThread == nil {
		display(msg)
		return len(p), nil
	}
	w.MainThread.AsyncExecuteInMainThread(func() { display(msg) })
	return len(p), nil
}

func (w *LogWriter) displayFunc(level zerolog.Level) func(string) {
	switch {
	case level >= zerolog.ErrorLevel && level <= zerolog.PanicLevel:
		return w.Notifier.Error
	case level == zerolog.WarnLevel:
		return w.Notifier.Warning
	case level == zerolog.DebugLevel || level == zerolog.TraceLevel:
		return w.Notifier.Debug
	default:
		return w.Notifier.Info
	}
}

// formatRecord renders "ShotGrid <component>: <message>" from a JSON record
func formatRecord(level zerolog.Level, p []byte) string {
	var record map[string]interface{}
	if err := json.Unmarshal(p, &record); err != nil {
		return strings.TrimSpace(string(p))
	}

	component, _ := record["component"].(string)
	if component == "" {
		component = "engine"
	}
	msg, _ := record[zerolog.MessageFieldName].(string)
	if errMsg, ok := record[zerolog.ErrorFieldName].(string); ok && errMsg != "" {
		msg += ": " + errMsg
	}

	line := "ShotGrid " + component + ": " + msg
	if level == zerolog.DebugLevel || level == zerolog.TraceLevel {
		line = "Debug: " + line
	}
	return line
}
