package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestEventExtractor_FindsNestedFields(t *testing.T) {
	x := NewEventExtractor(
		EventTemplate{Name: "Executor Run Time", Type: ValueInt},
		EventTemplate{Name: "Host Name", Type: ValueString},
		EventTemplate{Name: "Shuffle Write Time", Type: ValueDouble},
		EventTemplate{Name: "Launch Time", Type: ValueTimestamp},
		EventTemplate{Name: "Not There", Type: ValueInt},
	)

	events := x.Extract(gjson.Parse(sparkTaskEnd2885))
	require.Len(t, events, 4)

	assert.Equal(t, "Executor Run Time", events[0].Name)
	require.NotNil(t, events[0].ValueInt)
	assert.Equal(t, int64(1426), *events[0].ValueInt)

	assert.Equal(t, "Host Name", events[1].Name)
	require.NotNil(t, events[1].ValueVarchar)
	assert.Equal(t, "wally102.cit.tu-berlin.de", *events[1].ValueVarchar)

	// 三层嵌套
	require.NotNil(t, events[2].ValueDouble)
	assert.Equal(t, float64(52525), *events[2].ValueDouble)

	require.NotNil(t, events[3].ValueTimestamp)
	assert.Equal(t, int64(1414094815615), events[3].ValueTimestamp.UnixMilli())
}

func TestEventExtractor_FirstMatchWins(t *testing.T) {
	rec := gjson.Parse(`{"a":{"v":1},"v":2,"b":{"v":3}}`)
	x := NewEventExtractor(EventTemplate{Name: "v", Type: ValueInt})

	events := x.Extract(rec)
	require.Len(t, events, 1)
	// 当前层的键优先于子对象
	assert.Equal(t, int64(2), *events[0].ValueInt)

	rec = gjson.Parse(`{"a":{"x":{"v":1}},"b":{"v":3}}`)
	events = x.Extract(rec)
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), *events[0].ValueInt)
}

func TestEventExtractor_DropsUncoercibleValues(t *testing.T) {
	rec := gjson.Parse(`{"Task Metrics":{"Executor Run Time":"fast","Ratio":0.5,"Host":"h1"}}`)
	x := NewEventExtractor(
		EventTemplate{Name: "Executor Run Time", Type: ValueInt},
		EventTemplate{Name: "Ratio", Type: ValueInt},
		EventTemplate{Name: "Host", Type: ValueTimestamp},
		EventTemplate{Name: "Ratio", Type: ValueDouble},
	)

	events := x.Extract(rec)
	require.Len(t, events, 1)
	assert.Equal(t, "Ratio", events[0].Name)
	assert.Equal(t, 0.5, *events[0].ValueDouble)
}

func TestEventExtractor_SkipsArrays(t *testing.T) {
	rec := gjson.Parse(`{"Accumulables":[{"Value":7}]}`)
	x := NewEventExtractor(EventTemplate{Name: "Value", Type: ValueInt})
	assert.Empty(t, x.Extract(rec))
}

func TestEventExtractor_Defaults(t *testing.T) {
	x := NewEventExtractor()
	assert.Equal(t, DefaultEventTemplates(), x.Templates())
}

func TestParseValueType(t *testing.T) {
	tests := []struct {
		in      string
		want    ValueType
		wantErr bool
	}{
		{"int", ValueInt, false},
		{" Timestamp ", ValueTimestamp, false},
		{"float", ValueDouble, false},
		{"string", ValueString, false},
		{"bool", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseValueType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
