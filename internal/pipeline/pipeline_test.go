package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/povarna/prompt-gateway/internal/config"
	"github.com/povarna/prompt-gateway/internal/models"
	"github.com/povarna/prompt-gateway/internal/pipeline/mocks"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"
)

func testMessages() config.Messages {
	return config.Messages{
		Blocked:       "Prompt rejected by content policy",
		InternalError: "Internal server error",
		BatchError:    "Batch validation failed",
	}
}

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func TestValidateAndRoute_ShapeErrors(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		expectStatus  int
		expectMessage string
	}{
		{
			name:          "missing prompt key",
			body:          `{}`,
			expectStatus:  http.StatusBadRequest,
			expectMessage: "prompt is required and must be a string",
		},
		{
			name:          "prompt is not a string",
			body:          `{"prompt": 42}`,
			expectStatus:  http.StatusBadRequest,
			expectMessage: "prompt is required and must be a string",
		},
		{
			name:          "prompt is null",
			body:          `{"prompt": null}`,
			expectStatus:  http.StatusBadRequest,
			expectMessage: "prompt is required and must be a string",
		},
		{
			name:          "empty prompt",
			body:          `{"prompt": ""}`,
			expectStatus:  http.StatusBadRequest,
			expectMessage: "prompt cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			evaluator := mocks.NewMockEvaluator(ctrl)
			forwarder := mocks.NewMockForwarder(ctrl)
			// No expectations: neither collaborator may be called.

			pipe := New(evaluator, forwarder, testMessages(), testLogger())
			env := pipe.ValidateAndRoute(context.Background(), []byte(tt.body), "")

			if env.StatusCode != tt.expectStatus {
				t.Errorf("Expected status %d, got %d", tt.expectStatus, env.StatusCode)
			}

			payload, ok := env.Payload.(models.ErrorResponse)
			if !ok {
				t.Fatalf("Expected ErrorResponse payload, got %T", env.Payload)
			}
			if payload.Message != tt.expectMessage {
				t.Errorf("Expected message %q, got %q", tt.expectMessage, payload.Message)
			}
			if payload.Success {
				t.Error("Expected success=false")
			}
		})
	}
}

func TestValidateAndRoute_MalformedBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	evaluator := mocks.NewMockEvaluator(ctrl)
	forwarder := mocks.NewMockForwarder(ctrl)

	pipe := New(evaluator, forwarder, testMessages(), testLogger())
	env := pipe.ValidateAndRoute(context.Background(), []byte(`{not json`), "")

	if env.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", env.StatusCode)
	}

	payload, ok := env.Payload.(models.PipelineErrorResponse)
	if !ok {
		t.Fatalf("Expected PipelineErrorResponse payload, got %T", env.Payload)
	}
	if payload.Message != "Internal server error" {
		t.Errorf("Expected generic error message, got %q", payload.Message)
	}
	if payload.Allowed {
		t.Error("Expected allowed=false")
	}
}

func TestValidateAndRoute_AllowedForwardsOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	evaluator := mocks.NewMockEvaluator(ctrl)
	forwarder := mocks.NewMockForwarder(ctrl)

	body := []byte(`{"prompt": "a calm mountain lake at sunrise", "duration": 5}`)
	downstream := models.Envelope{
		StatusCode: http.StatusOK,
		Payload:    json.RawMessage(`{"jobId": "abc-123"}`),
	}

	evaluator.EXPECT().
		Evaluate(gomock.Any(), "a calm mountain lake at sunrise").
		Return(models.Verdict{Allowed: true, Reason: "Content approved"})
	forwarder.EXPECT().
		Forward(gomock.Any(), body, "Bearer token-1").
		Return(downstream).
		Times(1)

	pipe := New(evaluator, forwarder, testMessages(), testLogger())
	env := pipe.ValidateAndRoute(context.Background(), body, "Bearer token-1")

	if env.StatusCode != downstream.StatusCode {
		t.Errorf("Expected downstream status %d, got %d", downstream.StatusCode, env.StatusCode)
	}
	raw, ok := env.Payload.(json.RawMessage)
	if !ok {
		t.Fatalf("Expected raw downstream payload, got %T", env.Payload)
	}
	if string(raw) != `{"jobId": "abc-123"}` {
		t.Errorf("Downstream payload was modified: %s", raw)
	}
}

func TestValidateAndRoute_BlockedNeverForwards(t *testing.T) {
	ctrl := gomock.NewController(t)
	evaluator := mocks.NewMockEvaluator(ctrl)
	forwarder := mocks.NewMockForwarder(ctrl)

	verdict := models.Verdict{
		Allowed: false,
		Reason:  "contentPolicy: VIOLENCE",
		Details: []models.Assessment{{Type: "contentPolicy", Coverage: "VIOLENCE"}},
	}
	evaluator.EXPECT().Evaluate(gomock.Any(), "something violent").Return(verdict)
	// Forwarder must not be called.

	pipe := New(evaluator, forwarder, testMessages(), testLogger())
	env := pipe.ValidateAndRoute(context.Background(), []byte(`{"prompt": "something violent"}`), "")

	if env.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", env.StatusCode)
	}

	payload, ok := env.Payload.(models.DenialResponse)
	if !ok {
		t.Fatalf("Expected DenialResponse payload, got %T", env.Payload)
	}
	if payload.Allowed || payload.Success {
		t.Error("Expected success=false and allowed=false")
	}
	if payload.Message != "Prompt rejected by content policy" {
		t.Errorf("Expected policy message, got %q", payload.Message)
	}
	if payload.Details.Reason != "contentPolicy: VIOLENCE" {
		t.Errorf("Expected verdict reason, got %q", payload.Details.Reason)
	}
	if len(payload.Details.Assessments) != 1 {
		t.Errorf("Expected 1 assessment, got %d", len(payload.Details.Assessments))
	}
}

func TestValidateAndRoute_FailClosedIs422(t *testing.T) {
	ctrl := gomock.NewController(t)
	evaluator := mocks.NewMockEvaluator(ctrl)
	forwarder := mocks.NewMockForwarder(ctrl)

	evaluator.EXPECT().Evaluate(gomock.Any(), "anything").Return(models.Verdict{
		Allowed:   false,
		Reason:    "Validation service unavailable",
		ErrorNote: "dial tcp: connection refused",
	})

	pipe := New(evaluator, forwarder, testMessages(), testLogger())
	env := pipe.ValidateAndRoute(context.Background(), []byte(`{"prompt": "anything"}`), "")

	// A moderation fault is a policy block, never a 5xx.
	if env.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", env.StatusCode)
	}

	payload := env.Payload.(models.DenialResponse)
	if payload.Details.Reason != "Validation service unavailable" {
		t.Errorf("Expected fail-closed reason, got %q", payload.Details.Reason)
	}
	if payload.Details.Assessments == nil {
		t.Error("Expected empty assessments slice, got nil")
	}
}

func TestValidateBatch_NotAnArray(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"string instead of array", `{"prompts": "not-an-array"}`},
		{"object instead of array", `{"prompts": {"a": 1}}`},
		{"missing prompts key", `{}`},
		{"null prompts", `{"prompts": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			evaluator := mocks.NewMockEvaluator(ctrl)
			forwarder := mocks.NewMockForwarder(ctrl)

			pipe := New(evaluator, forwarder, testMessages(), testLogger())
			env := pipe.ValidateBatch(context.Background(), []byte(tt.body))

			if env.StatusCode != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", env.StatusCode)
			}
		})
	}
}

func TestValidateBatch_OrderAndSummary(t *testing.T) {
	ctrl := gomock.NewController(t)
	evaluator := mocks.NewMockEvaluator(ctrl)
	forwarder := mocks.NewMockForwarder(ctrl)

	prompts := []string{"first", "second", "third", "fourth"}
	blocked := map[string]bool{"second": true, "fourth": true}

	evaluator.EXPECT().
		Evaluate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, text string) models.Verdict {
			if blocked[text] {
				return models.Verdict{Allowed: false, Reason: "contentPolicy: HATE"}
			}
			return models.Verdict{Allowed: true, Reason: "Content approved"}
		}).
		Times(len(prompts))
	// Batch mode never forwards, even for allowed items.

	body, _ := json.Marshal(map[string]any{"prompts": prompts})

	pipe := New(evaluator, forwarder, testMessages(), testLogger())
	env := pipe.ValidateBatch(context.Background(), body)

	if env.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", env.StatusCode)
	}

	payload := env.Payload.(models.BatchResponse)
	if !payload.Success {
		t.Error("Expected success=true")
	}
	if len(payload.Results) != len(prompts) {
		t.Fatalf("Expected %d results, got %d", len(prompts), len(payload.Results))
	}

	for i, result := range payload.Results {
		if result.Index != i {
			t.Errorf("Result %d has index %d", i, result.Index)
		}
		if result.PromptPreview != prompts[i] {
			t.Errorf("Result %d preview %q does not match prompt %q", i, result.PromptPreview, prompts[i])
		}
		if result.Allowed == blocked[prompts[i]] {
			t.Errorf("Result %d allowed=%v, want %v", i, result.Allowed, !blocked[prompts[i]])
		}
	}

	summary := payload.Summary
	if summary.Total != len(prompts) {
		t.Errorf("Expected total %d, got %d", len(prompts), summary.Total)
	}
	if summary.Allowed+summary.Blocked != summary.Total {
		t.Errorf("Summary does not add up: %d + %d != %d", summary.Allowed, summary.Blocked, summary.Total)
	}
	if summary.Allowed != 2 || summary.Blocked != 2 {
		t.Errorf("Expected 2 allowed / 2 blocked, got %d / %d", summary.Allowed, summary.Blocked)
	}
}

func TestValidateBatch_PreviewTruncation(t *testing.T) {
	tests := []struct {
		name       string
		prompt     string
		wantLength int
		truncated  bool
	}{
		{"short prompt unchanged", strings.Repeat("a", 20), 20, false},
		{"exactly 100 unchanged", strings.Repeat("b", 100), 100, false},
		{"101 truncated", strings.Repeat("c", 101), 103, true},
		{"long truncated", strings.Repeat("d", 500), 103, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			evaluator := mocks.NewMockEvaluator(ctrl)
			forwarder := mocks.NewMockForwarder(ctrl)

			evaluator.EXPECT().
				Evaluate(gomock.Any(), tt.prompt).
				Return(models.Verdict{Allowed: true, Reason: "Content approved"})

			body, _ := json.Marshal(map[string]any{"prompts": []string{tt.prompt}})

			pipe := New(evaluator, forwarder, testMessages(), testLogger())
			env := pipe.ValidateBatch(context.Background(), body)

			payload := env.Payload.(models.BatchResponse)
			got := payload.Results[0].PromptPreview

			if len(got) != tt.wantLength {
				t.Errorf("Expected preview length %d, got %d", tt.wantLength, len(got))
			}
			if tt.truncated && !strings.HasSuffix(got, "...") {
				t.Errorf("Expected ellipsis suffix, got %q", got[len(got)-5:])
			}
			if !tt.truncated && got != tt.prompt {
				t.Errorf("Short prompt was modified: %q", got)
			}
		})
	}
}

func TestValidateBatch_NonStringItem(t *testing.T) {
	ctrl := gomock.NewController(t)
	evaluator := mocks.NewMockEvaluator(ctrl)
	forwarder := mocks.NewMockForwarder(ctrl)

	// Only the string item reaches moderation.
	evaluator.EXPECT().
		Evaluate(gomock.Any(), "fine prompt").
		Return(models.Verdict{Allowed: true, Reason: "Content approved"})

	pipe := New(evaluator, forwarder, testMessages(), testLogger())
	env := pipe.ValidateBatch(context.Background(), []byte(`{"prompts": ["fine prompt", 42]}`))

	payload := env.Payload.(models.BatchResponse)
	if len(payload.Results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(payload.Results))
	}
	if !payload.Results[0].Allowed {
		t.Error("Expected string item to be allowed")
	}
	if payload.Results[1].Allowed {
		t.Error("Expected non-string item to be blocked")
	}
	if payload.Results[1].Reason != "prompt must be a string" {
		t.Errorf("Unexpected reason: %q", payload.Results[1].Reason)
	}
	if payload.Summary.Allowed+payload.Summary.Blocked != payload.Summary.Total {
		t.Error("Summary does not add up")
	}
}

func TestValidateBatch_LargeBatchStaysOrdered(t *testing.T) {
	ctrl := gomock.NewController(t)
	evaluator := mocks.NewMockEvaluator(ctrl)
	forwarder := mocks.NewMockForwarder(ctrl)

	const n = 64
	prompts := make([]string, n)
	for i := range prompts {
		prompts[i] = fmt.Sprintf("prompt-%03d", i)
	}

	evaluator.EXPECT().
		Evaluate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, text string) models.Verdict {
			return models.Verdict{Allowed: true, Reason: "Content approved"}
		}).
		Times(n)

	body, _ := json.Marshal(map[string]any{"prompts": prompts})

	pipe := New(evaluator, forwarder, testMessages(), testLogger())
	env := pipe.ValidateBatch(context.Background(), body)

	payload := env.Payload.(models.BatchResponse)
	for i, result := range payload.Results {
		if result.Index != i || result.PromptPreview != prompts[i] {
			t.Fatalf("Result %d out of order: index=%d preview=%q", i, result.Index, result.PromptPreview)
		}
	}
}

func TestAuditBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	evaluator := mocks.NewMockEvaluator(ctrl)

	evaluator.EXPECT().
		Evaluate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, text string) models.Verdict {
			return models.Verdict{Allowed: text != "bad", Reason: "checked"}
		}).
		Times(3)

	pipe := New(evaluator, nil, testMessages(), testLogger())
	results, summary := pipe.AuditBatch(context.Background(), []string{"ok", "bad", "ok"})

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if summary.Allowed != 2 || summary.Blocked != 1 {
		t.Errorf("Expected 2 allowed / 1 blocked, got %d / %d", summary.Allowed, summary.Blocked)
	}
}
