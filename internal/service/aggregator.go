package service

import (
	"context"
	"fmt"
	"time"

	"runlog/internal/db"
	"runlog/internal/model"
)

// Aggregator 计算实验级别的统计值
type Aggregator struct {
	store db.Repository
}

func NewAggregator(store db.Repository) *Aggregator {
	return &Aggregator{store: store}
}

// UpdateAverageRunTimes 重新计算每个实验的平均运行时间并写回
func (a *Aggregator) UpdateAverageRunTimes(ctx context.Context) error {
	return a.store.Transaction(ctx, func(tx db.Repository) error {
		var experiments []model.Experiment
		if err := tx.Query(ctx, &experiments, nil); err != nil {
			return err
		}

		for i := range experiments {
			exp := &experiments[i]
			var runs []model.ExperimentRun
			if err := tx.Query(ctx, &runs, map[string]any{"experiment_id": exp.ID}); err != nil {
				return err
			}

			avg, ok := AverageRunTime(runs)
			if !ok {
				// 没有 run 的实验不做除法，保持 NULL
				continue
			}
			exp.AverageRunTime = &avg
			if err := tx.Update(ctx, exp); err != nil {
				return fmt.Errorf("更新实验 %s 平均运行时间失败: %w", exp.Name, err)
			}
		}
		return nil
	})
}

// AverageRunTime 完整 run（有提交和结束时间）的运行时间之和除以 run 总数，单位毫秒。
// 没有 run 时返回 false。
func AverageRunTime(runs []model.ExperimentRun) (int64, bool) {
	if len(runs) == 0 {
		return 0, false
	}
	var sum time.Duration
	for i := range runs {
		if d, ok := runs[i].RunTime(); ok {
			sum += d
		}
	}
	return sum.Milliseconds() / int64(len(runs)), true
}

// RunTimeStats 一个实验中完整 run 的运行时间分布（毫秒）
type RunTimeStats struct {
	Runs     int   `json:"runs"`
	Complete int   `json:"complete"`
	MinMs    int64 `json:"min_ms"`
	MaxMs    int64 `json:"max_ms"`
	MeanMs   int64 `json:"mean_ms"`
}

func ComputeRunTimeStats(runs []model.ExperimentRun) RunTimeStats {
	stats := RunTimeStats{Runs: len(runs)}
	var sum int64
	for i := range runs {
		d, ok := runs[i].RunTime()
		if !ok {
			continue
		}
		ms := d.Milliseconds()
		if stats.Complete == 0 || ms < stats.MinMs {
			stats.MinMs = ms
		}
		if ms > stats.MaxMs {
			stats.MaxMs = ms
		}
		sum += ms
		stats.Complete++
	}
	if stats.Complete > 0 {
		stats.MeanMs = sum / int64(stats.Complete)
	}
	return stats
}
