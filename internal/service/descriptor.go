package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"runlog/internal/parser"
)

const (
	// StateFileName 每个 run 目录下的元数据文件
	StateFileName = "state.json"
	// LogDirName 引擎日志所在子目录
	LogDirName = "logs"
)

// <实验名>.run<数字>
var runNamePattern = regexp.MustCompile(`^(.+)\.run([0-9]+)$`)

// RunDescriptor state.json 中用到的字段
type RunDescriptor struct {
	Name          string `json:"name"`
	SuiteName     string `json:"suiteName"`
	RunnerName    string `json:"runnerName"`
	RunnerVersion string `json:"runnerVersion"`
	RunExitCode   int    `json:"runExitCode"`

	// 原始文件内容
	Raw []byte `json:"-"`
}

// Failed 退出码非 0 的 run 不参与解析
func (d *RunDescriptor) Failed() bool { return d.RunExitCode != 0 }

type rawDescriptor struct {
	Name          *string `json:"name"`
	SuiteName     *string `json:"suiteName"`
	RunnerName    *string `json:"runnerName"`
	RunnerVersion *string `json:"runnerVersion"`
	RunExitCode   *int    `json:"runExitCode"`
}

// ReadDescriptor 读取并校验 state.json，缺字段时返回 ErrMalformedDescriptor
func ReadDescriptor(path string) (*RunDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取 %s 失败: %v", ErrMalformedDescriptor, path, err)
	}
	return ParseDescriptor(data)
}

func ParseDescriptor(data []byte) (*RunDescriptor, error) {
	var raw rawDescriptor
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDescriptor, err)
	}

	var absent []string
	str := func(field string, v *string) string {
		if v == nil || *v == "" {
			absent = append(absent, field)
			return ""
		}
		return *v
	}
	d := &RunDescriptor{
		Name:          str("name", raw.Name),
		SuiteName:     str("suiteName", raw.SuiteName),
		RunnerName:    str("runnerName", raw.RunnerName),
		RunnerVersion: str("runnerVersion", raw.RunnerVersion),
		Raw:           data,
	}
	if raw.RunExitCode == nil {
		absent = append(absent, "runExitCode")
	} else {
		d.RunExitCode = *raw.RunExitCode
	}
	if len(absent) > 0 {
		return nil, fmt.Errorf("%w: 缺少字段 %v", ErrMalformedDescriptor, absent)
	}
	return d, nil
}

// SplitRunName 把 "kmeans.D3K8.run01" 拆成实验名 "kmeans.D3K8" 和 run 序号 1
func SplitRunName(name string) (string, int, error) {
	m := runNamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", 0, fmt.Errorf("%w: run 名称 %q 不符合 <name>.run<N>", ErrMalformedDescriptor, name)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, fmt.Errorf("%w: run 序号 %q: %v", ErrMalformedDescriptor, m[2], err)
	}
	return m[1], n, nil
}

// FindLogFile 在 <runDir>/logs 下找该引擎的日志文件
func FindLogFile(runDir string, engine parser.Engine) (string, error) {
	logDir := filepath.Join(runDir, LogDirName)
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMissingLogFile, logDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if engine.IsLogFile(e.Name()) {
			return filepath.Join(logDir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("%w: %s 下没有 %s 日志", ErrMissingLogFile, logDir, engine)
}

// DiscoverRunDirs 返回 root 下两层的全部目录（<root>/<实验>/<run>），按路径排序
func DiscoverRunDirs(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRunDirectoryInvalid, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s 不是目录", ErrRunDirectoryInvalid, root)
	}

	experiments, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRunDirectoryInvalid, err)
	}

	var dirs []string
	for _, exp := range experiments {
		if !exp.IsDir() {
			continue
		}
		expDir := filepath.Join(root, exp.Name())
		runs, err := os.ReadDir(expDir)
		if err != nil {
			return nil, fmt.Errorf("读取实验目录 %s 失败: %w", expDir, err)
		}
		for _, run := range runs {
			if run.IsDir() {
				dirs = append(dirs, filepath.Join(expDir, run.Name()))
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
