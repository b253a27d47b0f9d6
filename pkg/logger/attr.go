package logger

import "log/slog"

// Error returns an attribute for a single error under the key "error".
// A nil error yields an empty attribute, which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// Component tags a log record with the emitting component name.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// UserID tags a log record with the acting user id.
func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

// Email tags a log record with an email address.
func Email(email string) slog.Attr {
	return slog.String("email", email)
}
