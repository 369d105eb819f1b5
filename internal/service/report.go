package service

import (
	"fmt"
	"strings"
	"time"
)

// 失败明细最多列出的条数
const maxListedFailures = 20

// RenderIngestSummary 批次处理结果的 markdown 摘要，供命令行输出
func RenderIngestSummary(report *IngestReport) string {
	var b strings.Builder
	b.WriteString("# 日志解析结果\n\n")
	b.WriteString(fmt.Sprintf("- batch_id: %s\n", report.BatchID))
	b.WriteString(fmt.Sprintf("- root: %s\n", report.Root))
	b.WriteString(fmt.Sprintf("- started_at: %s\n", report.StartedAt.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("- duration: %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)))
	b.WriteString(fmt.Sprintf("- parsed / skipped / failed: %d / %d / %d\n\n", report.Parsed, report.Skipped, report.Failed))

	b.WriteString("## Run 明细\n\n")
	if len(report.Outcomes) == 0 {
		b.WriteString("- 无\n")
		return b.String()
	}
	b.WriteString("| Run | 引擎 | 状态 | Tasks | Instances | Events | 新增 Events |\n")
	b.WriteString("| --- | --- | --- | ---: | ---: | ---: | ---: |\n")
	for _, o := range report.Outcomes {
		name := o.Dir
		if o.Experiment != "" {
			name = fmt.Sprintf("%s.run%02d", o.Experiment, o.Run)
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %d | %d | %d |\n",
			name, o.Engine, o.Status, o.Counts.Tasks, o.Counts.Instances, o.Counts.Events, o.Counts.AddedEvents))
	}

	if report.Failed == 0 {
		return b.String()
	}
	b.WriteString("\n## 失败原因\n\n")
	listed := 0
	for _, o := range report.Outcomes {
		if o.Status != OutcomeFailed {
			continue
		}
		if listed == maxListedFailures {
			b.WriteString(fmt.Sprintf("- ...(剩余 %d 条省略)\n", report.Failed-listed))
			break
		}
		b.WriteString(fmt.Sprintf("- %s: %s\n", o.Dir, o.Error))
		listed++
	}
	return b.String()
}
