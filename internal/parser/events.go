package parser

import (
	"fmt"
	"log"
	"strings"
	"time"

	"runlog/internal/model"

	"github.com/tidwall/gjson"
)

// ValueType 通用事件的值类型
type ValueType string

const (
	ValueString    ValueType = "string"
	ValueDouble    ValueType = "double"
	ValueInt       ValueType = "int"
	ValueTimestamp ValueType = "timestamp"
)

func ParseValueType(s string) (ValueType, error) {
	switch t := ValueType(strings.ToLower(strings.TrimSpace(s))); t {
	case ValueString, ValueDouble, ValueInt, ValueTimestamp:
		return t, nil
	case "float":
		return ValueDouble, nil
	}
	return "", fmt.Errorf("未知的事件类型: %q", s)
}

// EventTemplate 要在记录里查找的字段名及期望类型
type EventTemplate struct {
	Name string
	Type ValueType
}

// DefaultEventTemplates 默认只采集 executor 运行时间
func DefaultEventTemplates() []EventTemplate {
	return []EventTemplate{
		{Name: "Executor Run Time", Type: ValueInt},
	}
}

// EventExtractor 在任意嵌套的 JSON 记录中按名字查找注册过的字段，
// 新指标只需要加模板，不必改固定字段的解析逻辑。
type EventExtractor struct {
	templates []EventTemplate
}

func NewEventExtractor(templates ...EventTemplate) *EventExtractor {
	if len(templates) == 0 {
		templates = DefaultEventTemplates()
	}
	return &EventExtractor{templates: templates}
}

func (x *EventExtractor) Templates() []EventTemplate {
	return append([]EventTemplate(nil), x.templates...)
}

// Extract 每个找到的模板生成一条事件；类型转换失败的记录日志后丢弃
func (x *EventExtractor) Extract(rec gjson.Result) []model.TaskInstanceEvent {
	var events []model.TaskInstanceEvent
	for _, tpl := range x.templates {
		v, ok := findField(rec, tpl.Name)
		if !ok {
			continue
		}
		ev, err := convertValue(tpl, v)
		if err != nil {
			log.Printf("通用事件转换失败: %v", err)
			continue
		}
		events = append(events, ev)
	}
	return events
}

// findField 先看当前对象的键，再按文档顺序深度优先进入子对象；数组不进入
func findField(obj gjson.Result, name string) (gjson.Result, bool) {
	if !obj.IsObject() {
		return gjson.Result{}, false
	}

	var found gjson.Result
	hit := false
	obj.ForEach(func(key, value gjson.Result) bool {
		if key.Str == name {
			found, hit = value, true
			return false
		}
		return true
	})
	if hit {
		return found, true
	}

	obj.ForEach(func(_, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}
		if v, ok := findField(value, name); ok {
			found, hit = v, true
			return false
		}
		return true
	})
	return found, hit
}

func convertValue(tpl EventTemplate, v gjson.Result) (model.TaskInstanceEvent, error) {
	switch tpl.Type {
	case ValueString:
		if v.Type == gjson.String {
			return model.NewStringEvent(tpl.Name, v.Str), nil
		}
	case ValueDouble:
		if v.Type == gjson.Number {
			return model.NewDoubleEvent(tpl.Name, v.Num), nil
		}
	case ValueInt:
		if n, ok := integerOf(v); ok {
			return model.NewIntEvent(tpl.Name, n), nil
		}
	case ValueTimestamp:
		if n, ok := integerOf(v); ok {
			return model.NewTimestampEvent(tpl.Name, time.UnixMilli(n).UTC()), nil
		}
	}
	return model.TaskInstanceEvent{}, fmt.Errorf("字段 %q 的值 %s 不能转换为 %s", tpl.Name, v.Raw, tpl.Type)
}
