package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crediscan/crediscan/internal/faults"
	"github.com/crediscan/crediscan/internal/schemas"
)

// fakeClient returns canned responses and records calls.
type fakeClient struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeClient) next() (string, error) {
	i := f.calls
	f.calls++
	var resp string
	var err error
	if i < len(f.responses) {
		resp = f.responses[i]
	} else if len(f.responses) > 0 {
		resp = f.responses[len(f.responses)-1]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return resp, err
}

func (f *fakeClient) GenerateContent(context.Context, string, ModelTier) (string, error) {
	return f.next()
}

func (f *fakeClient) GenerateJSON(context.Context, string, ModelTier) (string, error) {
	return f.next()
}

func (f *fakeClient) Close() error { return nil }

func TestGenerateStruct_ValidResponse(t *testing.T) {
	client := &fakeClient{responses: []string{`{"background": "Robotics startup founded in 2019."}`}}

	var out struct {
		Background string `json:"background"`
	}
	err := GenerateStruct(context.Background(), client, "prompt", TierStandard, schemas.Background, &out)
	require.NoError(t, err)
	assert.Equal(t, "Robotics startup founded in 2019.", out.Background)
}

func TestGenerateStruct_FencedResponse(t *testing.T) {
	client := &fakeClient{responses: []string{"```json\n{\"background\": \"ok\"}\n```"}}

	var out struct {
		Background string `json:"background"`
	}
	err := GenerateStruct(context.Background(), client, "prompt", TierStandard, schemas.Background, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Background)
}

func TestGenerateStruct_SchemaViolationIsPermanent(t *testing.T) {
	client := &fakeClient{responses: []string{`{"wrong_field": true}`}}

	var out struct {
		Background string `json:"background"`
	}
	err := GenerateStruct(context.Background(), client, "prompt", TierStandard, schemas.Background, &out)
	require.Error(t, err)
	assert.Equal(t, faults.KindPermanentCall, faults.KindOf(err))
}

func TestGenerateStruct_PropagatesCallError(t *testing.T) {
	callErr := faults.Transient("llm.generate_json", "rate limited", nil)
	client := &fakeClient{responses: []string{""}, errs: []error{callErr}}

	var out map[string]any
	err := GenerateStruct(context.Background(), client, "prompt", TierStandard, schemas.Background, &out)
	assert.ErrorIs(t, err, callErr)
}

func TestRetryingClient_RetriesTransient(t *testing.T) {
	inner := &fakeClient{
		responses: []string{"", "", "recovered"},
		errs: []error{
			faults.Transient("llm.generate", "503", nil),
			faults.Transient("llm.generate", "503", nil),
			nil,
		},
	}
	client := NewRetryingClient(inner, RetryPolicy{MaxAttempts: 3, CallDeadline: 30 * time.Second}, nil)

	result, err := client.GenerateContent(context.Background(), "prompt", TierLite)
	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingClient_DoesNotRetryPermanent(t *testing.T) {
	permanent := faults.Permanent("llm.generate", "quota exhausted", errors.New("402"))
	inner := &fakeClient{responses: []string{""}, errs: []error{permanent}}
	client := NewRetryingClient(inner, RetryPolicy{MaxAttempts: 5, CallDeadline: time.Second}, nil)

	_, err := client.GenerateContent(context.Background(), "prompt", TierLite)
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
