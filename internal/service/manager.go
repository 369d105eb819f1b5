package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"runlog/internal/db"
	"runlog/internal/model"
	"runlog/internal/parser"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

type OutcomeStatus string

const (
	OutcomeParsed  OutcomeStatus = "parsed"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// RunOutcome 单个 run 目录的处理结果
type RunOutcome struct {
	Dir        string             `json:"dir"`
	Status     OutcomeStatus      `json:"status"`
	Experiment string             `json:"experiment,omitempty"`
	Run        int                `json:"run,omitempty"`
	Engine     string             `json:"engine,omitempty"`
	Counts     parser.GraphCounts `json:"counts"`
	Error      string             `json:"error,omitempty"`

	err error
}

// Err 失败原因，可以配合 errors.Is 判断类别
func (o RunOutcome) Err() error { return o.err }

type IngestReport struct {
	BatchID    string       `json:"batch_id"`
	Root       string       `json:"root"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Outcomes   []RunOutcome `json:"outcomes"`
	Parsed     int          `json:"parsed"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
}

type ManagerOptions struct {
	Workers  int
	FailFast bool
	Lenient  bool
}

// Manager 遍历目录树，把每个 run 的日志解析进存储
type Manager struct {
	store      db.Repository
	identity   *IdentityResolver
	aggregator *Aggregator
	extractor  *parser.EventExtractor
	opts       ManagerOptions
}

func NewManager(store db.Repository, aggregator *Aggregator, extractor *parser.EventExtractor, opts ManagerOptions) *Manager {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Manager{
		store:      store,
		identity:   &IdentityResolver{},
		aggregator: aggregator,
		extractor:  extractor,
		opts:       opts,
	}
}

// ParsePath 处理 root/<实验>/<run> 下的所有 run，最后更新实验平均运行时间。
// 单个 run 失败只记录在报告里；FailFast 时第一个失败会终止整个批次。
func (m *Manager) ParsePath(ctx context.Context, root string, skipInstances bool) (*IngestReport, error) {
	dirs, err := DiscoverRunDirs(root)
	if err != nil {
		return nil, err
	}

	report := &IngestReport{
		BatchID:   uuid.NewString(),
		Root:      root,
		StartedAt: time.Now(),
	}
	log.Printf("[%s] 开始解析 %s，共 %d 个 run 目录", report.BatchID, root, len(dirs))

	p := pool.NewWithResults[RunOutcome]().
		WithContext(ctx).
		WithMaxGoroutines(m.opts.Workers).
		WithCollectErrored()
	if m.opts.FailFast {
		p = p.WithCancelOnError()
	}

	for _, dir := range dirs {
		dir := dir
		p.Go(func(ctx context.Context) (RunOutcome, error) {
			if err := ctx.Err(); err != nil {
				return RunOutcome{Dir: dir, Status: OutcomeSkipped, Error: err.Error(), err: err}, nil
			}
			out := m.ingestRun(ctx, dir, skipInstances)
			if out.Status == OutcomeFailed {
				log.Printf("[%s] run %s 解析失败: %v", report.BatchID, dir, out.err)
				if m.opts.FailFast {
					return out, &RunError{Dir: dir, Err: out.err}
				}
			}
			return out, nil
		})
	}
	outcomes, batchErr := p.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Dir < outcomes[j].Dir })
	report.Outcomes = outcomes
	for _, o := range outcomes {
		switch o.Status {
		case OutcomeParsed:
			report.Parsed++
		case OutcomeSkipped:
			report.Skipped++
		case OutcomeFailed:
			report.Failed++
		}
	}

	if batchErr != nil {
		report.FinishedAt = time.Now()
		return report, batchErr
	}

	if err := m.aggregator.UpdateAverageRunTimes(ctx); err != nil {
		report.FinishedAt = time.Now()
		return report, err
	}

	report.FinishedAt = time.Now()
	log.Printf("[%s] 解析完成: parsed=%d skipped=%d failed=%d", report.BatchID, report.Parsed, report.Skipped, report.Failed)
	return report, nil
}

func (m *Manager) ingestRun(ctx context.Context, dir string, skipInstances bool) RunOutcome {
	out := RunOutcome{Dir: dir}
	fail := func(err error) RunOutcome {
		out.Status = OutcomeFailed
		out.Error = err.Error()
		out.err = err
		return out
	}

	desc, err := ReadDescriptor(filepath.Join(dir, StateFileName))
	if err != nil {
		return fail(err)
	}
	if desc.Failed() {
		log.Printf("跳过 run %s: runExitCode=%d", desc.Name, desc.RunExitCode)
		out.Status = OutcomeSkipped
		out.Error = fmt.Sprintf("runExitCode=%d", desc.RunExitCode)
		return out
	}

	engine, err := parser.LookupEngine(desc.RunnerName)
	if err != nil {
		return fail(err)
	}
	out.Engine = engine.String()

	logPath, err := FindLogFile(dir, engine)
	if err != nil {
		return fail(err)
	}

	base, index, err := SplitRunName(desc.Name)
	if err != nil {
		return fail(err)
	}
	out.Experiment, out.Run = base, index

	p, err := engine.NewParser(parser.Options{
		SkipInstances: skipInstances,
		Lenient:       m.opts.Lenient,
		Extractor:     m.extractor,
	})
	if err != nil {
		return fail(err)
	}

	// System / Suite / Experiment 与 run 在同一个事务里，失败时一起回滚
	release := func() {}
	defer func() { release() }()
	err = m.store.Transaction(ctx, func(tx db.Repository) error {
		exp, unlock, err := m.identity.ResolveExperiment(ctx, tx, desc, engine.String(), base)
		if err != nil {
			return err
		}
		release = unlock

		run, err := resolveRun(ctx, tx, exp, index, desc.Raw)
		if err != nil {
			return err
		}
		if err := tx.LoadRunGraph(ctx, run); err != nil {
			return err
		}

		graph := parser.NewRunGraph(run)
		p.SetRun(graph)
		if err := parseFile(ctx, p, logPath); err != nil {
			return err
		}
		if err := FlushRunGraph(ctx, tx, graph); err != nil {
			return err
		}
		out.Counts = graph.Counts()
		return nil
	})
	if err != nil {
		return fail(err)
	}

	out.Status = OutcomeParsed
	return out
}

func parseFile(ctx context.Context, p parser.Parser, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingLogFile, err)
	}
	defer f.Close()

	if err := p.Parse(ctx, f); err != nil {
		return fmt.Errorf("解析 %s 失败: %w", filepath.Base(path), err)
	}
	return nil
}

// FlushRunGraph 把图中新建和修改的实体写入存储：
// run 本身更新，Task/TaskInstance 新建或更新，事件只插入新增的。
func FlushRunGraph(ctx context.Context, tx db.Repository, graph *parser.RunGraph) error {
	run := graph.ExperimentRun()
	if err := tx.Update(ctx, run); err != nil {
		return err
	}

	var events []*model.TaskInstanceEvent
	for _, task := range graph.Tasks() {
		task.ExperimentRunID = run.ID
		if err := saveOrUpdate(ctx, tx, task, task.ID); err != nil {
			return fmt.Errorf("写入 task %s 失败: %w", task.TaskType, err)
		}

		for _, inst := range task.Instances {
			inst.TaskID = task.ID
			if inst.ID == 0 {
				if err := tx.Save(ctx, inst); err != nil {
					return fmt.Errorf("写入 %s 子任务 %d 失败: %w", task.TaskType, inst.SubtaskNumber, err)
				}
			}
			for i := range inst.Events {
				ev := &inst.Events[i]
				if ev.ID != 0 {
					continue
				}
				ev.TaskInstanceID = inst.ID
				events = append(events, ev)
			}
		}
	}

	if len(events) == 0 {
		return nil
	}
	if err := tx.Save(ctx, &events); err != nil {
		return fmt.Errorf("写入事件失败: %w", err)
	}
	return nil
}

func saveOrUpdate(ctx context.Context, tx db.Repository, record any, id uint) error {
	if id == 0 {
		return tx.Save(ctx, record)
	}
	return tx.Update(ctx, record)
}

// IsFailed 报告中是否有失败的 run
func (r *IngestReport) IsFailed() bool { return r.Failed > 0 }

// FailedWith 某一类错误导致失败的 run
func (r *IngestReport) FailedWith(target error) []RunOutcome {
	var res []RunOutcome
	for _, o := range r.Outcomes {
		if o.Status == OutcomeFailed && errors.Is(o.err, target) {
			res = append(res, o)
		}
	}
	return res
}
