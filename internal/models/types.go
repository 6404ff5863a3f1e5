package models

// Verdict is the normalized allow/block decision from the moderation service.
type Verdict struct {
	Allowed   bool         `json:"allowed"`
	Reason    string       `json:"reason"`
	Details   []Assessment `json:"details,omitempty"`
	ErrorNote string       `json:"error_note,omitempty"`
}

// Assessment is one triggered guardrail policy, flattened from the Bedrock
// assessment structure into a wire-friendly descriptor.
type Assessment struct {
	Type     string `json:"type"`
	Coverage string `json:"coverage"`
}

// Envelope is the uniform response produced by every routed path. Payload is
// serialized as the JSON body; StatusCode is relayed to the transport layer.
type Envelope struct {
	StatusCode int
	Payload    any
}

// Input message for single validation

type ValidateRequest struct {
	Prompt string `json:"prompt"`
}

type BatchItemResult struct {
	Index         int    `json:"index"`
	PromptPreview string `json:"promptPreview"`
	Allowed       bool   `json:"allowed"`
	Reason        string `json:"reason"`
}

type BatchSummary struct {
	Total   int `json:"total"`
	Allowed int `json:"allowed"`
	Blocked int `json:"blocked"`
}

type BatchResponse struct {
	Success bool              `json:"success"`
	Results []BatchItemResult `json:"results"`
	Summary BatchSummary      `json:"summary"`
}

// ErrorResponse is the generic failure envelope body (400/404/500).
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// PipelineErrorResponse is the 500 body for faults contained inside the
// single-validation pipeline.
type PipelineErrorResponse struct {
	Success bool   `json:"success"`
	Allowed bool   `json:"allowed"`
	Message string `json:"message"`
}

// DenialResponse is the 422 body returned when a prompt is blocked.
type DenialResponse struct {
	Success bool          `json:"success"`
	Allowed bool          `json:"allowed"`
	Message string        `json:"message"`
	Details DenialDetails `json:"details"`
}

type DenialDetails struct {
	Reason      string       `json:"reason"`
	Assessments []Assessment `json:"assessments"`
}

// ForwardErrorResponse is the fixed 502 body when the downstream video
// service cannot be reached.
type ForwardErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}
