package parser

import (
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// spark 事件日志里用到的事件类型和字段路径
const (
	sparkEventApplicationStart = "SparkListenerApplicationStart"
	sparkEventTaskEnd          = "SparkListenerTaskEnd"

	sparkFieldEvent      = "Event"
	sparkFieldTimestamp  = "Timestamp"
	sparkFieldTaskType   = "Task Type"
	sparkFieldTaskID     = "Task Info.Task ID"
	sparkFieldLaunchTime = "Task Info.Launch Time"
	sparkFieldFinishTime = "Task Info.Finish Time"
)

func sparkEvent(rec gjson.Result) string {
	return rec.Get(sparkFieldEvent).String()
}

func sparkTaskType(rec gjson.Result) (string, error) {
	v := rec.Get(sparkFieldTaskType)
	if v.Type != gjson.String || v.Str == "" {
		return "", missing(sparkFieldTaskType, rec.Raw)
	}
	return v.Str, nil
}

func sparkTaskID(rec gjson.Result) (int, error) {
	n, ok := integerOf(rec.Get(sparkFieldTaskID))
	if !ok {
		return 0, missing(sparkFieldTaskID, rec.Raw)
	}
	return int(n), nil
}

// sparkMillis 读取毫秒时间戳字段
func sparkMillis(rec gjson.Result, path string) (time.Time, error) {
	n, ok := integerOf(rec.Get(path))
	if !ok {
		return time.Time{}, missing(path, rec.Raw)
	}
	return time.UnixMilli(n).UTC(), nil
}

// integerOf JSON 数字且是整数
func integerOf(v gjson.Result) (int64, bool) {
	if v.Type != gjson.Number {
		return 0, false
	}
	n, err := strconv.ParseInt(v.Raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
