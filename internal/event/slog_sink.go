package event

import "log/slog"

// SlogSink renders events through the process logger. It is always
// subscribed, so every event reaches the log regardless of which optional
// sinks are configured.
type SlogSink struct{}

func (SlogSink) Publish(ev Event) error {
	args := make([]any, 0, 2*len(ev.Fields)+2)
	args = append(args, "day", ev.Day)
	for k, v := range ev.Fields {
		args = append(args, k, v)
	}

	switch ev.Severity {
	case SeverityError:
		slog.Error(string(ev.Type), args...)
	case SeverityWarning:
		slog.Warn(string(ev.Type), args...)
	default:
		slog.Info(string(ev.Type), args...)
	}
	return nil
}
