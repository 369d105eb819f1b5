package parser

import (
	"regexp"
	"strconv"
	"time"
)

// 作业级别的行：提交、调度、slot 申请、状态变化等
var flinkJobLine = regexp.MustCompile(`(Creating initial)|(Job input)|(Scheduling job)|(Requesting [0-9]+ slot)|(Releasing instance)|(Status of job)|(receives remote file input)|(Received job)|(Creating new execution graph)|(Job[A-z0-9 ()-]+switched)|(Sync)`)

var (
	flinkRequestingSlots   = regexp.MustCompile(`Requesting [0-9]+ slots for`)
	flinkReleasingInstance = regexp.MustCompile(`Releasing instance`)
	flinkSubmitJob         = regexp.MustCompile(`(Creating initial execution)|(Creating new execution)`)
	flinkDeployedJob       = regexp.MustCompile(`Scheduling job`)
	flinkFinishedJob       = regexp.MustCompile(`(changed to FINISHED)|(switched to FINISHED)`)
	flinkSplitAssignment   = regexp.MustCompile(`receives input split`)
	flinkTaskType          = regexp.MustCompile(`DataSink|Reduce|CHAIN|PartialSolution|Map|Combine`)
	flinkSubtaskNumber     = regexp.MustCompile(`([0-9]+)/[0-9]+\)`)
	flinkTimestamp         = regexp.MustCompile(`([0-2][0-9]):([0-5][0-9]):([0-5][0-9]),([0-9]{3})`)
	flinkStatusChange      = regexp.MustCompile(`([A-Z]+ to [A-Z]+)|(Starting)|switched to ([A-Z]+)`)
)

func isJobLine(line string) bool { return flinkJobLine.MatchString(line) }

func isRequestingSlots(line string) bool { return flinkRequestingSlots.MatchString(line) }

func isReleasingInstance(line string) bool { return flinkReleasingInstance.MatchString(line) }

func isSubmitJob(line string) bool { return flinkSubmitJob.MatchString(line) }

func isDeployedJob(line string) bool { return flinkDeployedJob.MatchString(line) }

func isFinishedJob(line string) bool { return flinkFinishedJob.MatchString(line) }

// isSplitAssignment 输入分片分配行，暂不支持，解析时跳过
func isSplitAssignment(line string) bool { return flinkSplitAssignment.MatchString(line) }

// taskTypeOf 取行内第一个阶段类型标签
func taskTypeOf(line string) (string, bool) {
	tt := flinkTaskType.FindString(line)
	return tt, tt != ""
}

// subtaskNumberOf 取 "(k/n)" 中的 k
func subtaskNumberOf(line string) (int, error) {
	m := flinkSubtaskNumber.FindStringSubmatch(line)
	if m == nil {
		return 0, missing("子任务编号", line)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, missing("子任务编号", line)
	}
	return n, nil
}

// timestampOf 行首的 HH:mm:ss,SSS。日志里没有日期，按 1970-01-01 UTC 记录。
func timestampOf(line string) (time.Time, error) {
	m := flinkTimestamp.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}, missing("时间戳", line)
	}
	h, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	ms, _ := strconv.Atoi(m[4])
	if h > 23 {
		return time.Time{}, missing("时间戳", line)
	}
	return time.Date(1970, time.January, 1, h, minute, sec, ms*int(time.Millisecond), time.UTC), nil
}

// statusChangeOf "X to Y"、"Starting" 或 "switched to Y" 中的 Y
func statusChangeOf(line string) (string, bool) {
	m := flinkStatusChange.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	for _, g := range m[1:] {
		if g != "" {
			return g, true
		}
	}
	return "", false
}
