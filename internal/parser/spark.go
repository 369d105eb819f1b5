package parser

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"runlog/internal/model"

	"github.com/tidwall/gjson"
)

// SparkParser 解析 spark 事件日志，每行一个 JSON 记录，按 "Event" 字段分派。
// skip-instances 模式下不生成 Task/TaskInstance，只统计最早 launch 和最晚 finish。
type SparkParser struct {
	graph     *RunGraph
	opts      Options
	extractor *EventExtractor

	firstLaunch *time.Time
	lastFinish  *time.Time
}

func NewSparkParser(opts Options) *SparkParser {
	x := opts.Extractor
	if x == nil {
		x = NewEventExtractor()
	}
	return &SparkParser{opts: opts, extractor: x}
}

func (p *SparkParser) SetRun(g *RunGraph) {
	p.graph = g
	p.firstLaunch, p.lastFinish = nil, nil
}

func (p *SparkParser) Run() *RunGraph { return p.graph }

func (p *SparkParser) Parse(ctx context.Context, r io.Reader) error {
	if p.graph == nil {
		return errors.New("spark parser: run 未设置")
	}
	err := scanLines(ctx, r, func(lineNo int, line string) error {
		if strings.TrimSpace(line) == "" {
			return nil
		}
		if !gjson.Valid(line) {
			log.Printf("第 %d 行不是合法的 JSON，已跳过", lineNo)
			return nil
		}
		err := p.handleRecord(gjson.Parse(line))
		if err == nil {
			return nil
		}
		err = atLine(err, lineNo)
		if p.opts.Lenient && errors.Is(err, ErrParseExtraction) {
			log.Printf("跳过无法解析的记录: %v", err)
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	if p.firstLaunch != nil {
		p.graph.SetDeployed(*p.firstLaunch)
	}
	if p.lastFinish != nil {
		p.graph.SetFinished(*p.lastFinish)
	}
	return nil
}

func (p *SparkParser) handleRecord(rec gjson.Result) error {
	switch sparkEvent(rec) {
	case sparkEventApplicationStart:
		ts, err := sparkMillis(rec, sparkFieldTimestamp)
		if err != nil {
			return err
		}
		p.graph.SetSubmitTime(ts)
	case sparkEventTaskEnd:
		return p.handleTaskEnd(rec)
	}
	return nil
}

func (p *SparkParser) handleTaskEnd(rec gjson.Result) error {
	launch, err := sparkMillis(rec, sparkFieldLaunchTime)
	if err != nil {
		return err
	}
	finish, err := sparkMillis(rec, sparkFieldFinishTime)
	if err != nil {
		return err
	}

	if p.opts.SkipInstances {
		p.track(launch, finish)
		return nil
	}

	taskType, err := sparkTaskType(rec)
	if err != nil {
		return err
	}
	taskID, err := sparkTaskID(rec)
	if err != nil {
		return err
	}
	p.track(launch, finish)

	task, _ := p.graph.EnsureTask(taskType)
	inst, _ := p.graph.EnsureInstance(task, taskID)
	p.graph.AddEvent(inst, model.NewTimestampEvent("Launch", launch))
	p.graph.AddEvent(inst, model.NewTimestampEvent("Finished", finish))
	for _, ev := range p.extractor.Extract(rec) {
		p.graph.AddEvent(inst, ev)
	}
	return nil
}

func (p *SparkParser) track(launch, finish time.Time) {
	if p.firstLaunch == nil || launch.Before(*p.firstLaunch) {
		p.firstLaunch = &launch
	}
	if p.lastFinish == nil || finish.After(*p.lastFinish) {
		p.lastFinish = &finish
	}
}
