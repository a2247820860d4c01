// Package corpuserr defines the tagged error kinds shared across every
// pipeline stage (spec.md §7). Worker-local errors of these kinds are caught,
// attached to a per-file meta object with their Tag, and the task returns
// normally so the pool does not tear down. ConfigError and
// ClassifierUnavailable are coordinator-level and fatal at startup.
package corpuserr

import "fmt"

// IoError wraps a failure to read or write a path: disk full, permission
// denied, path does not exist.
type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string { return fmt.Sprintf("io error on %s: %v", e.Path, e.Err) }
func (e *IoError) Unwrap() error { return e.Err }
func (e *IoError) Tag() string   { return "io_error" }

// DecodeError reports bytes that could not be decoded even with U+FFFD
// replacement. In practice this is always recovered by substitution and the
// error is informational rather than fatal.
type DecodeError struct {
	Path string
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode error in %s", e.Path) }
func (e *DecodeError) Tag() string   { return "decode_error" }

// FormatError reports a missing sentinel where one was expected. Logged; the
// stream continues (readers must tolerate a missing trailing sentinel).
type FormatError struct {
	Path   string
	Detail string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error in %s: %s", e.Path, e.Detail)
}
func (e *FormatError) Tag() string { return "format_error" }

// ConfigError reports an invalid configuration value (e.g. a num_hashes /
// num_bands ratio that does not divide evenly). Fatal at startup.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "config error: " + e.Reason }
func (e *ConfigError) Tag() string   { return "config_error" }

// ClassifierUnavailable reports a missing or unloadable classifier model
// file. Fatal at startup — the pipeline must not silently skip classification.
type ClassifierUnavailable struct {
	Path string
	Err  error
}

func (e *ClassifierUnavailable) Error() string {
	return fmt.Sprintf("classifier unavailable at %s: %v", e.Path, e.Err)
}
func (e *ClassifierUnavailable) Unwrap() error { return e.Err }
func (e *ClassifierUnavailable) Tag() string   { return "classifier_unavailable" }

// Tagged is implemented by every error kind above; callers use it to derive
// the stable reason string recorded in a .meta.json sidecar.
type Tagged interface {
	error
	Tag() string
}

// TagOf returns the stable tag for a tagged error, or "unknown_error" for any
// other error. Never panics.
func TagOf(err error) string {
	if err == nil {
		return ""
	}
	if t, ok := err.(Tagged); ok {
		return t.Tag()
	}
	return "unknown_error"
}
