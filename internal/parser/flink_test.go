package parser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"runlog/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flinkChainRunning = "15:34:12,930 INFO  org.apache.flink.runtime.execution.ExecutionStateTransition   - TM: ExecutionState set from STARTING to RUNNING for task CHAIN DataSource (TextInputFormat (hdfs://localhost:9000/tmp/input/hamlet.txt) - UTF-8) -> FlatMap (org.apache.flink.example.java.wordcount.WordCount$Tokenizer) -> Combine(SUM(1)) (1/4)"

const flinkWordCountLog = `15:32:25,579 INFO  org.apache.flink.runtime.jobmanager.JobManager                - Creating initial execution graph from job graph WordCount Example
15:32:25,596 INFO  org.apache.flink.runtime.executiongraph.ExecutionGraph        - Job input vertex CHAIN DataSource (TextInputFormat (hdfs://localhost:9000/tmp/input/hamlet.txt) - UTF-8) -> FlatMap (org.apache.flink.example.java.wordcount.WordCount$Tokenizer) -> Combine(SUM(1)) generated 4 input splits
15:32:25,650 INFO  org.apache.flink.runtime.jobmanager.JobManager                - Scheduling job WordCount Example
15:32:25,652 INFO  org.apache.flink.runtime.jobmanager.scheduler.DefaultScheduler  - Requesting 4 slots for job 303a5e9e4a389c0044a227d32eec8c00
15:32:25,716 INFO  org.apache.flink.runtime.jobmanager.splitassigner.InputSplitManager  - CHAIN DataSource (TextInputFormat (hdfs://localhost:9000/tmp/input/hamlet.txt) - UTF-8) -> FlatMap (org.apache.flink.example.java.wordcount.WordCount$Tokenizer) -> Combine(SUM(1)) (3/4) receives input split 2
15:32:25,814 INFO  org.apache.flink.runtime.jobmanager.JobManager                - Starting task Reduce (SUM(1)) (3/4) on localhost (ipcPort=60181, dataPort=60516)
15:32:26,803 INFO  org.apache.flink.runtime.execution.ExecutionStateTransition   - JM: ExecutionState set from READY to STARTING for task DataSink(CsvOutputFormat (path: hdfs://localhost:9000/tmp/output/wc, delimiter:  )) (2/4)
15:32:26,824 INFO  org.apache.flink.runtime.execution.ExecutionStateTransition   - JM: ExecutionState set from STARTING to RUNNING for task DataSink(CsvOutputFormat (path: hdfs://localhost:9000/tmp/output/wc, delimiter:  )) (2/4)
15:32:27,101 INFO  org.apache.flink.runtime.blob.BlobServer                      - Stopped BLOB server
15:32:27,774 INFO  org.apache.flink.runtime.jobmanager.scheduler.DefaultScheduler  - Releasing instance localhost (ipcPort=60181, dataPort=60516)
15:32:27,819 INFO  org.apache.flink.runtime.jobmanager.JobManager                - Status of job WordCount Example(303a5e9e4a389c0044a227d32eec8c00) changed to FINISHED
`

func newTestGraph() *RunGraph {
	return NewRunGraph(&model.ExperimentRun{ID: 1, Run: 1})
}

func parseFlink(t *testing.T, g *RunGraph, opts Options, input string) error {
	t.Helper()
	p := NewFlinkParser(opts)
	p.SetRun(g)
	return p.Parse(context.Background(), strings.NewReader(input))
}

func timeOfDay(h, m, s, ms int) time.Time {
	return time.Date(1970, time.January, 1, h, m, s, ms*int(time.Millisecond), time.UTC)
}

func TestFlinkParser_SingleStatusTransition(t *testing.T) {
	g := newTestGraph()
	require.NoError(t, parseFlink(t, g, Options{}, flinkChainRunning))

	run := g.ExperimentRun()
	require.Len(t, run.Tasks, 1)
	task := run.Tasks[0]
	assert.Equal(t, "CHAIN", task.TaskType)

	require.Len(t, task.Instances, 1)
	inst := task.Instances[0]
	assert.Equal(t, 1, inst.SubtaskNumber)

	require.Len(t, inst.Events, 1)
	ev := inst.EventByName("STARTING TO RUNNING")
	require.NotNil(t, ev)
	assert.Equal(t, "starting to running", ev.Name)
	require.NotNil(t, ev.ValueTimestamp)
	assert.Equal(t, timeOfDay(15, 34, 12, 930), *ev.ValueTimestamp)
}

func TestFlinkParser_WordCountLog(t *testing.T) {
	g := newTestGraph()
	require.NoError(t, parseFlink(t, g, Options{}, flinkWordCountLog))

	run := g.ExperimentRun()
	require.NotNil(t, run.SubmitTime)
	require.NotNil(t, run.Deployed)
	require.NotNil(t, run.Finished)
	assert.Equal(t, timeOfDay(15, 32, 25, 579), *run.SubmitTime)
	assert.Equal(t, timeOfDay(15, 32, 25, 650), *run.Deployed)
	assert.Equal(t, timeOfDay(15, 32, 27, 819), *run.Finished)

	// 分片分配行被跳过，所以 CHAIN 没有出现
	assert.Nil(t, g.TaskByType("CHAIN"))

	reduce := g.TaskByType("Reduce")
	require.NotNil(t, reduce)
	require.NotNil(t, reduce.InstanceBySubtask(3))
	assert.NotNil(t, reduce.InstanceBySubtask(3).EventByName("starting"))

	sink := g.TaskByType("DataSink")
	require.NotNil(t, sink)
	require.Len(t, sink.Instances, 1)
	assert.Equal(t, 1, sink.NumberOfSubtasks)
	inst := sink.InstanceBySubtask(2)
	require.NotNil(t, inst)
	assert.Len(t, inst.Events, 2)
	assert.NotNil(t, inst.EventByName("ready to starting"))
	assert.NotNil(t, inst.EventByName("starting to running"))

	counts := g.Counts()
	assert.Equal(t, GraphCounts{Tasks: 2, Instances: 2, Events: 3, AddedEvents: 3}, counts)
}

func TestFlinkParser_SkipInstances(t *testing.T) {
	g := newTestGraph()
	require.NoError(t, parseFlink(t, g, Options{SkipInstances: true}, flinkWordCountLog))

	run := g.ExperimentRun()
	assert.Empty(t, run.Tasks)
	assert.NotNil(t, run.SubmitTime)
	assert.NotNil(t, run.Deployed)
	assert.NotNil(t, run.Finished)
}

func TestFlinkParser_ReparseIsIdempotent(t *testing.T) {
	g := newTestGraph()
	require.NoError(t, parseFlink(t, g, Options{}, flinkWordCountLog))
	first := g.Counts()

	require.NoError(t, parseFlink(t, g, Options{}, flinkWordCountLog))
	second := g.Counts()

	assert.Equal(t, first.Tasks, second.Tasks)
	assert.Equal(t, first.Instances, second.Instances)
	assert.Equal(t, first.Events, second.Events)
}

func TestFlinkParser_MalformedTaskLine(t *testing.T) {
	// 有阶段类型但没有 (k/n)
	input := flinkChainRunning + "\n" + "15:34:13,001 INFO  ExecutionStateTransition - set from RUNNING to FINISHED for task Reduce (SUM(1))\n"

	g := newTestGraph()
	err := parseFlink(t, g, Options{}, input)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParseExtraction))

	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 2, ee.Line)

	g = newTestGraph()
	require.NoError(t, parseFlink(t, g, Options{Lenient: true}, input))
	assert.Len(t, g.ExperimentRun().Tasks, 1)
}

func TestFlinkParser_RequiresRun(t *testing.T) {
	p := NewFlinkParser(Options{})
	err := p.Parse(context.Background(), strings.NewReader(flinkChainRunning))
	assert.Error(t, err)
}
