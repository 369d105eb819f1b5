package service

import (
	"context"
	"fmt"
	"sync"

	"runlog/internal/db"
	"runlog/internal/model"

	"gorm.io/datatypes"
)

// IdentityResolver 查找或创建 System / Suite / Experiment。
// 多个 worker 可能同时遇到同一个实验，这里串行化，保证唯一。
// 解析在 run 事务内进行：新建了记录的 worker 要一直持有锁到事务结束，
// 否则别的 worker 看不到未提交的行，会再建一份。
type IdentityResolver struct {
	mu sync.Mutex
}

// ResolveExperiment 在事务 tx 内按 (实验名, suite, system) 查找或创建实验。
// systemName 是规范化后的引擎名。返回的 release 必须在 tx 提交或回滚之后调用。
func (r *IdentityResolver) ResolveExperiment(ctx context.Context, tx db.Repository, desc *RunDescriptor, systemName, baseName string) (exp *model.Experiment, release func(), err error) {
	r.mu.Lock()
	var once sync.Once
	unlock := func() { once.Do(r.mu.Unlock) }

	created := false
	defer func() {
		// 没有新建任何记录时不需要等到提交
		if err != nil || !created {
			unlock()
		}
	}()

	system, sysCreated, err := resolveSystem(ctx, tx, systemName, desc.RunnerVersion)
	if err != nil {
		return nil, nil, err
	}
	suite, suiteCreated, err := resolveSuite(ctx, tx, desc.SuiteName)
	if err != nil {
		return nil, nil, err
	}
	created = sysCreated || suiteCreated

	exp, err = findOne[model.Experiment](ctx, tx, map[string]any{
		"name":      baseName,
		"suite_id":  suite.ID,
		"system_id": system.ID,
	})
	if err != nil {
		return nil, nil, err
	}
	if exp == nil {
		exp = &model.Experiment{Name: baseName, SuiteID: suite.ID, SystemID: system.ID}
		if err := tx.Save(ctx, exp); err != nil {
			return nil, nil, fmt.Errorf("创建实验 %s 失败: %w", baseName, err)
		}
		created = true
	}
	exp.Suite = suite
	exp.System = system
	return exp, unlock, nil
}

func resolveSystem(ctx context.Context, tx db.Repository, name, version string) (*model.System, bool, error) {
	system, err := findOne[model.System](ctx, tx, map[string]any{"name": name, "version": version})
	if err != nil || system != nil {
		return system, false, err
	}
	system = &model.System{Name: name, Version: version}
	if err := tx.Save(ctx, system); err != nil {
		return nil, false, fmt.Errorf("创建 system %s %s 失败: %w", name, version, err)
	}
	return system, true, nil
}

func resolveSuite(ctx context.Context, tx db.Repository, name string) (*model.ExperimentSuite, bool, error) {
	suite, err := findOne[model.ExperimentSuite](ctx, tx, map[string]any{"name": name})
	if err != nil || suite != nil {
		return suite, false, err
	}
	suite = &model.ExperimentSuite{Name: name}
	if err := tx.Save(ctx, suite); err != nil {
		return nil, false, fmt.Errorf("创建 suite %s 失败: %w", name, err)
	}
	return suite, true, nil
}

// resolveRun 在 run 事务内按 (实验, 序号) 查找或创建 run，并记录最新的 state.json
func resolveRun(ctx context.Context, tx db.Repository, exp *model.Experiment, index int, raw []byte) (*model.ExperimentRun, error) {
	run, err := findOne[model.ExperimentRun](ctx, tx, map[string]any{
		"experiment_id": exp.ID,
		"run":           index,
	})
	if err != nil {
		return nil, err
	}
	if run != nil {
		run.Descriptor = datatypes.JSON(raw)
		run.Experiment = exp
		return run, nil
	}

	run = &model.ExperimentRun{
		ExperimentID: exp.ID,
		Run:          index,
		Descriptor:   datatypes.JSON(raw),
	}
	if err := tx.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("创建 run %s.run%02d 失败: %w", exp.Name, index, err)
	}
	run.Experiment = exp
	return run, nil
}

// findOne 唯一键查询，没有记录时返回 nil, nil
func findOne[T any](ctx context.Context, tx db.Repository, conds map[string]any) (*T, error) {
	var rows []T
	if err := tx.Query(ctx, &rows, conds); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
