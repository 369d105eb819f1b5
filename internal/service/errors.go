package service

import (
	"errors"
	"fmt"

	"runlog/internal/parser"
)

var (
	ErrMissingLogFile      = errors.New("missing log file")
	ErrMalformedDescriptor = errors.New("malformed run descriptor")
	ErrRunDirectoryInvalid = errors.New("run directory invalid")

	// 解析器定义的错误，在这里一并导出
	ErrUnknownEngine   = parser.ErrUnknownEngine
	ErrParseExtraction = parser.ErrParseExtraction
)

// RunError 某个 run 目录处理失败
type RunError struct {
	Dir string
	Err error
}

func (e *RunError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("run %s: %v", e.Dir, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
