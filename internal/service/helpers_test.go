package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"runlog/internal/db"
	"runlog/internal/parser"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const flinkWordCountLog = `15:32:25,579 INFO  org.apache.flink.runtime.jobmanager.JobManager                - Creating initial execution graph from job graph WordCount Example
15:32:25,650 INFO  org.apache.flink.runtime.jobmanager.JobManager                - Scheduling job WordCount Example
15:32:25,652 INFO  org.apache.flink.runtime.jobmanager.scheduler.DefaultScheduler  - Requesting 4 slots for job 303a5e9e4a389c0044a227d32eec8c00
15:32:25,716 INFO  org.apache.flink.runtime.jobmanager.splitassigner.InputSplitManager  - CHAIN DataSource (TextInputFormat (hdfs://localhost:9000/tmp/input/hamlet.txt) - UTF-8) -> FlatMap (org.apache.flink.example.java.wordcount.WordCount$Tokenizer) -> Combine(SUM(1)) (3/4) receives input split 2
15:32:25,814 INFO  org.apache.flink.runtime.jobmanager.JobManager                - Starting task Reduce (SUM(1)) (3/4) on localhost (ipcPort=60181, dataPort=60516)
15:32:26,803 INFO  org.apache.flink.runtime.execution.ExecutionStateTransition   - JM: ExecutionState set from READY to STARTING for task DataSink(CsvOutputFormat (path: hdfs://localhost:9000/tmp/output/wc, delimiter:  )) (2/4)
15:32:26,824 INFO  org.apache.flink.runtime.execution.ExecutionStateTransition   - JM: ExecutionState set from STARTING to RUNNING for task DataSink(CsvOutputFormat (path: hdfs://localhost:9000/tmp/output/wc, delimiter:  )) (2/4)
15:32:27,774 INFO  org.apache.flink.runtime.jobmanager.scheduler.DefaultScheduler  - Releasing instance localhost (ipcPort=60181, dataPort=60516)
15:32:27,819 INFO  org.apache.flink.runtime.jobmanager.JobManager                - Status of job WordCount Example(303a5e9e4a389c0044a227d32eec8c00) changed to FINISHED
`

const sparkEventLog = `{"Event":"SparkListenerApplicationStart","App Name":"WordCount","Timestamp":1414094700000,"User":"peel"}
{"Event":"SparkListenerTaskEnd","Stage ID":0,"Task Type":"ResultTask","Task Info":{"Task ID":19,"Launch Time":1414094710001,"Finish Time":1414094743584},"Task Metrics":{"Executor Run Time":33470}}
{"Event":"SparkListenerTaskEnd","Stage ID":13,"Task Type":"ShuffleMapTask","Task Info":{"Task ID":2885,"Launch Time":1414094815615,"Finish Time":1414094817066},"Task Metrics":{"Executor Run Time":1426,"Shuffle Write Metrics":{"Shuffle Write Time":52525}}}
`

func newTestStore(t *testing.T) (*db.GormStore, *gorm.DB) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "runlog.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.SerializeSQLite(gdb))
	require.NoError(t, db.Migrate(gdb))
	return db.NewStore(gdb), gdb
}

func newTestManager(t *testing.T, opts ManagerOptions) (*Manager, *gorm.DB) {
	t.Helper()
	store, gdb := newTestStore(t)
	return NewManager(store, NewAggregator(store), parser.NewEventExtractor(), opts), gdb
}

type runFixture struct {
	experimentDir string
	name          string
	suite         string
	runner        string
	version       string
	exitCode      int
	logName       string
	logContent    string
}

// writeRun 在 root/<experimentDir>/<name> 下写 state.json 和日志，返回 run 目录
func writeRun(t *testing.T, root string, f runFixture) string {
	t.Helper()
	if f.suite == "" {
		f.suite = "wordcount.scale-out"
	}
	if f.version == "" {
		f.version = "0.5.1"
	}
	dir := filepath.Join(root, f.experimentDir, f.name)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, LogDirName), 0o755))

	state, err := json.Marshal(map[string]any{
		"name":          f.name,
		"suiteName":     f.suite,
		"runnerName":    f.runner,
		"runnerVersion": f.version,
		"runExitCode":   f.exitCode,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, StateFileName), state, 0o644))

	if f.logName != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, LogDirName, f.logName), []byte(f.logContent), 0o644))
	}
	return dir
}

func flinkRun(expDir, name string) runFixture {
	return runFixture{
		experimentDir: expDir,
		name:          name,
		runner:        "flink",
		logName:       "flink-peel-jobmanager-wally001.log",
		logContent:    flinkWordCountLog,
	}
}

func sparkRun(expDir, name string) runFixture {
	return runFixture{
		experimentDir: expDir,
		name:          name,
		runner:        "spark",
		version:       "1.1.0",
		logName:       "EVENT_LOG_1",
		logContent:    sparkEventLog,
	}
}

func countRows(t *testing.T, gdb *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(model).Count(&n).Error)
	return n
}
