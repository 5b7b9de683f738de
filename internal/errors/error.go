package errors

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryCompile   Category = "compile"
	CategoryRuntime   Category = "runtime"
	CategoryHydration Category = "hydration"
	CategoryConfig    Category = "config"
	CategoryCLI       Category = "cli"
)

// Location represents a position in a template or config file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// RefxError is a structured error with a code, location and suggestion.
type RefxError struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error type (compile, runtime, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position the error refers to.
	Location *Location

	// Context contains the lines surrounding Location, starting at line
	// ContextStart.
	Context      []string
	ContextStart int

	// Site is the 1-based interpolation index a template error refers to,
	// or 0 when the error is not tied to a site.
	Site int

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *RefxError) Error() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Site > 0 {
		fmt.Fprintf(&b, " (value %d)", e.Site)
	}
	if e.Detail != "" && e.Wrapped == nil {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *RefxError) Unwrap() error {
	return e.Wrapped
}

// Is matches another RefxError with the same code, so registered errors
// work as sentinels with errors.Is.
func (e *RefxError) Is(target error) bool {
	t, ok := target.(*RefxError)
	return ok && t.Code != "" && t.Code == e.Code
}

// WithLocation adds a file location and reads the surrounding lines.
func (e *RefxError) WithLocation(file string, line, column int) *RefxError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	e.ContextStart = max(line-5/2, 1)
	return e
}

// WithSourceOffset sets the location from a byte offset into src, which is
// the content of file. Context lines come from src rather than disk.
func (e *RefxError) WithSourceOffset(file, src string, offset int) *RefxError {
	if offset < 0 {
		offset = 0
	}
	if offset > len(src) {
		offset = len(src)
	}
	line := 1 + strings.Count(src[:offset], "\n")
	col := offset - strings.LastIndexByte(src[:offset], '\n')
	e.Location = &Location{File: file, Line: line, Column: col}
	e.Context = contextLines(strings.Split(src, "\n"), line, 5)
	e.ContextStart = max(line-5/2, 1)
	return e
}

// WithSite records the 1-based interpolation index.
func (e *RefxError) WithSite(i int) *RefxError {
	e.Site = i
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *RefxError) WithSuggestion(s string) *RefxError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the detailed explanation.
func (e *RefxError) WithDetail(d string) *RefxError {
	e.Detail = d
	return e
}

// WithDetailf replaces the detailed explanation with a formatted one.
func (e *RefxError) WithDetailf(format string, args ...any) *RefxError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithContext adds custom context lines starting at line start.
func (e *RefxError) WithContext(start int, lines []string) *RefxError {
	e.Context = lines
	e.ContextStart = start
	return e
}

// Wrap wraps another error.
func (e *RefxError) Wrap(err error) *RefxError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := max(targetLine-contextSize/2, 1)
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

func contextLines(all []string, targetLine, contextSize int) []string {
	start := max(targetLine-contextSize/2, 1)
	end := min(targetLine+contextSize/2, len(all))
	if start > end {
		return nil
	}
	return all[start-1 : end]
}

// New creates a RefxError from a registered error code.
func New(code string) *RefxError {
	template, ok := registry[code]
	if !ok {
		return &RefxError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &RefxError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new RefxError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *RefxError {
	return &RefxError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a RefxError.
func FromError(err error, code string) *RefxError {
	if err == nil {
		return nil
	}
	var re *RefxError
	if errors.As(err, &re) {
		return re
	}
	return New(code).Wrap(err)
}

// Code returns the code of the first RefxError in err's chain, or "".
func Code(err error) string {
	var re *RefxError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
