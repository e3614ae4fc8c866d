package protocol

const (
	ActionLatest  = "latest"
	ActionHistory = "history"
)

const (
	TypeError    = "error"
	TypeWaypoint = "waypoint"
	TypeHistory  = "history"
)

type WSRequest struct {
	Action  string         `json:"action"`
	Payload RequestPayload `json:"payload"`
	ID      string         `json:"id,omitempty"`
}

type RequestPayload struct {
	Limit int `json:"limit,omitempty"` // history only; 0 = server default
}

type WSResponse struct {
	Type    string      `json:"type"`             // "error", "waypoint", "history"
	ID      string      `json:"id,omitempty"`     // Matches request ID
	Status  string      `json:"status,omitempty"` // "success", "error"
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
