// Package errors holds the error values shared across srcmirror.
//
// Three failure classes matter to callers of the sync pipeline:
// MalformedIndexLineError aborts a parse, FetchFailedError aborts a run and
// ExtractFailedError only affects the archive it names. All three unwrap to a
// sentinel so callers can use errors.Is without type assertions.
package errors

import "fmt"

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to rename temporary config file")
	ErrConfigFileExists  = fmt.Errorf("configuration file already exists (use --force to overwrite)")
	ErrConfigMarshal     = fmt.Errorf("failed to marshal config to YAML")

	// Index errors.
	ErrMalformedIndexLine = fmt.Errorf("malformed index line")
	ErrInvalidRecord      = fmt.Errorf("invalid archive record")
	ErrInvalidVersion     = fmt.Errorf("invalid package version")
	ErrIndexNotFound      = fmt.Errorf("no sources index found")
	ErrInvalidBaseURL     = fmt.Errorf("invalid mirror base URL")
	ErrUnknownVariant     = fmt.Errorf("unknown index variant")

	// Download errors.
	ErrFetchFailed       = fmt.Errorf("fetch failed")
	ErrChecksumMismatch  = fmt.Errorf("checksum mismatch")
	ErrUnexpectedStatus  = fmt.Errorf("unexpected status code")
	ErrInvalidPath       = fmt.Errorf("invalid path")
	ErrUnsupportedDigest = fmt.Errorf("unsupported checksum algorithm")

	// Extraction errors.
	ErrExtractFailed     = fmt.Errorf("extract failed")
	ErrNotTarArchive     = fmt.Errorf("not a tar archive")
	ErrPathTraversal     = fmt.Errorf("archive entry escapes destination directory")
	ErrUnsupportedFormat = fmt.Errorf("unsupported archive format")

	// Hook errors.
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")
	ErrHookLoad      = fmt.Errorf("failed to load hook")
)

// Error types for the three failure classes of the sync pipeline.
type (
	// MalformedIndexLineError reports a line of the sources index that violates
	// the control-file or file-list grammar.
	MalformedIndexLineError struct {
		Line   int
		Text   string
		Reason string
		Err    error
	}

	// FetchFailedError reports a transport or HTTP failure for one URL.
	FetchFailedError struct {
		URL string
		Err error
	}

	// ExtractFailedError reports a corrupt archive or a filesystem failure
	// while unpacking it.
	ExtractFailedError struct {
		Path string
		Err  error
	}
)

// Error implements the error interface for MalformedIndexLineError.
func (e *MalformedIndexLineError) Error() string {
	msg := fmt.Sprintf("%s at line %d: %s (%q)", ErrMalformedIndexLine, e.Line, e.Reason, e.Text)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the sentinel and the underlying cause, if any.
func (e *MalformedIndexLineError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedIndexLine}
	}
	return []error{ErrMalformedIndexLine, e.Err}
}

// NewMalformedIndexLineError creates a new MalformedIndexLineError.
func NewMalformedIndexLineError(line int, text, reason string, err error) error {
	return &MalformedIndexLineError{Line: line, Text: text, Reason: reason, Err: err}
}

// Error implements the error interface for FetchFailedError.
func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("%s for %s: %v", ErrFetchFailed, e.URL, e.Err)
}

// Unwrap returns the sentinel and the underlying cause.
func (e *FetchFailedError) Unwrap() []error {
	return []error{ErrFetchFailed, e.Err}
}

// NewFetchFailedError creates a new FetchFailedError.
func NewFetchFailedError(url string, err error) error {
	return &FetchFailedError{URL: url, Err: err}
}

// Error implements the error interface for ExtractFailedError.
func (e *ExtractFailedError) Error() string {
	return fmt.Sprintf("%s for %s: %v", ErrExtractFailed, e.Path, e.Err)
}

// Unwrap returns the sentinel and the underlying cause.
func (e *ExtractFailedError) Unwrap() []error {
	return []error{ErrExtractFailed, e.Err}
}

// NewExtractFailedError creates a new ExtractFailedError.
func NewExtractFailedError(path string, err error) error {
	return &ExtractFailedError{Path: path, Err: err}
}

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
