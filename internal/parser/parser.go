// Package parser 把引擎日志还原成 run 的任务/实例/事件图。
//
// 每种引擎一个解析器：flink 解析人类可读的 jobmanager 日志，spark 解析
// 每行一个 JSON 的事件日志。解析器只修改内存中的 RunGraph，持久化由调用方
// 在事务里完成。
package parser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Parser 顺序读取一个 run 的日志并更新绑定的 RunGraph
type Parser interface {
	Parse(ctx context.Context, r io.Reader) error
	SetRun(g *RunGraph)
	Run() *RunGraph
}

type Options struct {
	// 只计算 run 级别的时间，不生成 Task/TaskInstance
	SkipInstances bool
	// 字段缺失的行记录日志后跳过
	Lenient bool
	// spark 通用事件提取；为空时使用默认模板
	Extractor *EventExtractor
}

// Engine 支持的引擎，封闭集合
type Engine int

const (
	EngineFlink Engine = iota + 1
	EngineSpark
)

var engineNames = map[string]Engine{
	"flink": EngineFlink,
	"spark": EngineSpark,
}

var engineParsers = map[Engine]func(Options) Parser{
	EngineFlink: func(opts Options) Parser { return NewFlinkParser(opts) },
	EngineSpark: func(opts Options) Parser { return NewSparkParser(opts) },
}

const (
	flinkLogMarker = "-jobmanager-"
	flinkLogSuffix = ".log"
	// spark 事件日志的固定文件名
	sparkLogFile = "EVENT_LOG_1"
)

// LookupEngine 按 state.json 的 runnerName 选择引擎（大小写不敏感）
func LookupEngine(name string) (Engine, error) {
	e, ok := engineNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	return e, nil
}

func (e Engine) String() string {
	switch e {
	case EngineFlink:
		return "flink"
	case EngineSpark:
		return "spark"
	}
	return fmt.Sprintf("Engine(%d)", int(e))
}

// NewParser 创建该引擎的解析器
func (e Engine) NewParser(opts Options) (Parser, error) {
	ctor, ok := engineParsers[e]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, e)
	}
	return ctor(opts), nil
}

// IsLogFile 文件名是否是该引擎要解析的日志
func (e Engine) IsLogFile(name string) bool {
	switch e {
	case EngineFlink:
		return strings.Contains(name, flinkLogMarker) && strings.HasSuffix(name, flinkLogSuffix)
	case EngineSpark:
		return name == sparkLogFile
	}
	return false
}

// 单行日志上限，spark 的 JSON 记录可能很长
const maxLineSize = 16 * 1024 * 1024

// scanLines 逐行回调，回调返回错误时停止；行号从 1 开始
func scanLines(ctx context.Context, r io.Reader, fn func(lineNo int, line string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(lineNo, sc.Text()); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("读取日志失败: %w", err)
	}
	return nil
}
