package service

import (
	"context"
	"testing"

	"runlog/internal/db"
	"runlog/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resolveIn 在单独的事务里解析实验，提交后释放锁
func resolveIn(t *testing.T, store db.Repository, r *IdentityResolver, desc *RunDescriptor, system, base string) *model.Experiment {
	t.Helper()
	ctx := context.Background()
	var exp *model.Experiment
	release := func() {}
	err := store.Transaction(ctx, func(tx db.Repository) error {
		found, unlock, err := r.ResolveExperiment(ctx, tx, desc, system, base)
		if err != nil {
			return err
		}
		exp, release = found, unlock
		return nil
	})
	release()
	require.NoError(t, err)
	return exp
}

func TestIdentityResolver_IsIdempotent(t *testing.T) {
	store, gdb := newTestStore(t)
	r := &IdentityResolver{}

	desc := &RunDescriptor{Name: "wc.run01", SuiteName: "wordcount", RunnerName: "flink", RunnerVersion: "0.5.1"}
	first := resolveIn(t, store, r, desc, "flink", "wc")
	assert.NotZero(t, first.ID)
	assert.Equal(t, "flink", first.System.Name)
	assert.Equal(t, "wordcount", first.Suite.Name)

	again := resolveIn(t, store, r, desc, "flink", "wc")
	assert.Equal(t, first.ID, again.ID)

	// 版本不同是另一个 system，也就是另一个实验
	other := *desc
	other.RunnerVersion = "0.6"
	third := resolveIn(t, store, r, &other, "flink", "wc")
	assert.NotEqual(t, first.ID, third.ID)
	assert.Equal(t, first.SuiteID, third.SuiteID)

	assert.EqualValues(t, 2, countRows(t, gdb, &model.System{}))
	assert.EqualValues(t, 1, countRows(t, gdb, &model.ExperimentSuite{}))
	assert.EqualValues(t, 2, countRows(t, gdb, &model.Experiment{}))
}

func TestIdentityResolver_RollsBackWithRun(t *testing.T) {
	store, gdb := newTestStore(t)
	r := &IdentityResolver{}
	ctx := context.Background()
	desc := &RunDescriptor{SuiteName: "s", RunnerName: "spark", RunnerVersion: "1.1"}

	release := func() {}
	err := store.Transaction(ctx, func(tx db.Repository) error {
		_, unlock, err := r.ResolveExperiment(ctx, tx, desc, "spark", "wc")
		require.NoError(t, err)
		release = unlock
		return assert.AnError
	})
	release()
	require.ErrorIs(t, err, assert.AnError)

	assert.Zero(t, countRows(t, gdb, &model.System{}))
	assert.Zero(t, countRows(t, gdb, &model.ExperimentSuite{}))
	assert.Zero(t, countRows(t, gdb, &model.Experiment{}))

	// 锁已释放，可以重新解析
	exp := resolveIn(t, store, r, desc, "spark", "wc")
	assert.NotZero(t, exp.ID)
}

func TestResolveRun_FindsExisting(t *testing.T) {
	store, gdb := newTestStore(t)
	ctx := context.Background()
	desc := &RunDescriptor{SuiteName: "s", RunnerName: "spark", RunnerVersion: "1.1"}
	exp := resolveIn(t, store, &IdentityResolver{}, desc, "spark", "wc")

	var firstID uint
	require.NoError(t, store.Transaction(ctx, func(tx db.Repository) error {
		run, err := resolveRun(ctx, tx, exp, 3, []byte(`{"v":1}`))
		if err != nil {
			return err
		}
		firstID = run.ID
		return nil
	}))
	require.NoError(t, store.Transaction(ctx, func(tx db.Repository) error {
		run, err := resolveRun(ctx, tx, exp, 3, []byte(`{"v":2}`))
		require.NoError(t, err)
		assert.Equal(t, firstID, run.ID)
		assert.JSONEq(t, `{"v":2}`, string(run.Descriptor))
		return nil
	}))
	assert.EqualValues(t, 1, countRows(t, gdb, &model.ExperimentRun{}))
}
