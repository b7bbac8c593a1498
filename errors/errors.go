// Package errors provides error constructors that record the call site, so a
// failure deep inside a tool or LLM exchange can be located without a stack dump.
package errors

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// New creates an error annotated with the caller's file and line.
func New(format string, a ...interface{}) error {
	return fmt.Errorf("[%s] %s", callSite(), fmt.Sprintf(format, a...))
}

// Wrapf adds call-site context to an existing error. A nil err yields nil, so
// it can wrap return values unconditionally.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s: %w", callSite(), fmt.Sprintf(format, a...), err)
}

func callSite() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
