package parser

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownEngine   = errors.New("unknown engine")
	ErrParseExtraction = errors.New("required field missing from log record")
)

// ExtractionError 一条已归类的日志记录缺少必需字段
type ExtractionError struct {
	Field string
	Line  int
	Text  string
}

func (e *ExtractionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s: 第 %d 行缺少%s: %q", ErrParseExtraction.Error(), e.Line, e.Field, e.Text)
	}
	return fmt.Sprintf("%s: 缺少%s: %q", ErrParseExtraction.Error(), e.Field, e.Text)
}

func (e *ExtractionError) Unwrap() error { return ErrParseExtraction }

func missing(field, text string) error {
	return &ExtractionError{Field: field, Text: text}
}

// atLine 给提取错误补上行号
func atLine(err error, line int) error {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		cp := *ee
		cp.Line = line
		return &cp
	}
	return fmt.Errorf("第 %d 行: %w", line, err)
}
