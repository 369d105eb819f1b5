package parser

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"runlog/internal/model"
)

// FlinkParser 解析 flink jobmanager 日志。
// 每行先判断是否作业级别（提交/调度/结束），否则按子任务状态变化处理；
// 两者都不是的行忽略。
type FlinkParser struct {
	graph *RunGraph
	opts  Options
}

func NewFlinkParser(opts Options) *FlinkParser {
	return &FlinkParser{opts: opts}
}

func (p *FlinkParser) SetRun(g *RunGraph) { p.graph = g }

func (p *FlinkParser) Run() *RunGraph { return p.graph }

func (p *FlinkParser) Parse(ctx context.Context, r io.Reader) error {
	if p.graph == nil {
		return errors.New("flink parser: run 未设置")
	}
	return scanLines(ctx, r, func(lineNo int, line string) error {
		err := p.handleLine(line)
		if err == nil {
			return nil
		}
		err = atLine(err, lineNo)
		if p.opts.Lenient && errors.Is(err, ErrParseExtraction) {
			log.Printf("跳过无法解析的行: %v", err)
			return nil
		}
		return err
	})
}

func (p *FlinkParser) handleLine(line string) error {
	if isJobLine(line) {
		return p.handleJob(line)
	}
	if p.opts.SkipInstances {
		return nil
	}
	taskType, ok := taskTypeOf(line)
	if !ok {
		return nil
	}
	return p.handleTaskInstance(taskType, line)
}

func (p *FlinkParser) handleJob(line string) error {
	if isReleasingInstance(line) || isRequestingSlots(line) {
		return nil
	}

	var set func(time.Time)
	switch {
	case isSubmitJob(line):
		set = p.graph.SetSubmitTime
	case isDeployedJob(line):
		set = p.graph.SetDeployed
	case isFinishedJob(line):
		set = p.graph.SetFinished
	default:
		return nil
	}

	ts, err := timestampOf(line)
	if err != nil {
		return err
	}
	set(ts)
	return nil
}

// handleTaskInstance 同一个子任务编号第一次出现时创建实例，之后的状态变化追加为事件
func (p *FlinkParser) handleTaskInstance(taskType, line string) error {
	subtask, err := subtaskNumberOf(line)
	if err != nil {
		return err
	}
	ts, err := timestampOf(line)
	if err != nil {
		return err
	}
	status, ok := statusChangeOf(line)
	if !ok {
		if isSplitAssignment(line) {
			return nil
		}
		return missing("状态变化", line)
	}

	task, _ := p.graph.EnsureTask(taskType)
	inst, _ := p.graph.EnsureInstance(task, subtask)
	p.graph.AddEvent(inst, model.NewTimestampEvent(strings.ToLower(status), ts))
	return nil
}
