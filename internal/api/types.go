package api

// SubmitPromptRequest is the body of POST /v1/prompts.
type SubmitPromptRequest struct {
	Text string `json:"text"`
	// Wait blocks the request until the run finishes.
	Wait bool `json:"wait,omitempty"`
}

type SubmitPromptResponse struct {
	ID     string     `json:"id"`
	Object string     `json:"object"`
	Status string     `json:"status"`
	Run    *RunRecord `json:"run,omitempty"`
}

// RunRecord is the stored view of one submitted prompt.
type RunRecord struct {
	ID          string  `json:"id"`
	Object      string  `json:"object"`
	Prompt      string  `json:"prompt"`
	Status      string  `json:"status"`
	Text        string  `json:"text,omitempty"`
	StopReason  string  `json:"stop_reason,omitempty"`
	Tokens      int     `json:"tokens,omitempty"`
	TPS         float64 `json:"tokens_per_second,omitempty"`
	Error       *Error  `json:"error,omitempty"`
	CreatedAt   int64   `json:"created_at"`
	CompletedAt *int64  `json:"completed_at,omitempty"`
}

type CurrentResultResponse struct {
	Object string `json:"object"`
	RunID  string `json:"run_id"`
	Text   string `json:"text"`
}

type StatusResponse struct {
	Object    string `json:"object"`
	State     string `json:"state"`
	Queued    int    `json:"queued"`
	HasResult bool   `json:"has_result"`
	LastError string `json:"last_error,omitempty"`
}

type DeleteRunResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

type Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

const (
	statusQueued    = "queued"
	statusCompleted = "completed"
	statusFailed    = "failed"
)
