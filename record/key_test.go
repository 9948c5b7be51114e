package record_test

import (
	"testing"

	"github.com/fynarfin/ph-ee-importer-rdbms/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractKey(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		want      record.GroupingKey
		expectErr error
	}{
		{
			name:  "extracts instance id and category",
			value: `{"valueType":"JOB","value":{"processInstanceKey":123456}}`,
			want:  record.GroupingKey{InstanceID: "123456", Kind: "JOB"},
		},
		{
			name:  "unrelated field order does not matter",
			value: `{"value":{"elementId":"x","processInstanceKey":123456},"timestamp":1,"valueType":"JOB"}`,
			want:  record.GroupingKey{InstanceID: "123456", Kind: "JOB"},
		},
		{
			name:      "missing instance id",
			value:     `{"valueType":"JOB","value":{}}`,
			expectErr: record.ErrFieldMissing,
		},
		{
			name:      "missing category",
			value:     `{"value":{"processInstanceKey":1}}`,
			expectErr: record.ErrFieldMissing,
		},
		{
			name:      "malformed payload",
			value:     `not json`,
			expectErr: record.ErrMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := record.ExtractKey(record.RawEvent{Value: []byte(tt.value)})
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractKeyDeterministic(t *testing.T) {
	a := record.RawEvent{Value: []byte(`{"valueType":"VARIABLE","value":{"processInstanceKey":42,"name":"a"}}`)}
	b := record.RawEvent{Value: []byte(`{"value":{"name":"b","processInstanceKey":42},"valueType":"VARIABLE"}`)}

	ka, err := record.ExtractKey(a)
	require.NoError(t, err)
	kb, err := record.ExtractKey(b)
	require.NoError(t, err)

	assert.Equal(t, ka, kb)
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, record.CategoryJob, record.ParseCategory("JOB"))
	assert.Equal(t, record.CategoryProcessInstance, record.ParseCategory("PROCESS_INSTANCE"))
	assert.Equal(t, record.CategoryUnknown, record.ParseCategory("SOMETHING_ELSE"))
	assert.Equal(t, "INCIDENT", record.CategoryIncident.String())
}

func TestDocumentCollect(t *testing.T) {
	doc, err := record.Parse([]byte(`{"value":{"bpmnProcessId":"a-b","nested":{"bpmnProcessId":"c-d","list":[{"bpmnProcessId":"e-f"}]}}}`))
	require.NoError(t, err)

	ids := doc.Collect("value", "bpmnProcessId")
	assert.Equal(t, []string{"a-b", "c-d", "e-f"}, ids)
}
