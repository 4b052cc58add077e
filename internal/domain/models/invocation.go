package models

import "time"

// Invocation outcomes.
const (
	InvocationOK    = "ok"
	InvocationError = "error"
)

// ToolInvocation is the audit trail entry written for every MCP tool call.
type ToolInvocation struct {
	Tool       string    `bson:"tool" json:"tool"`
	AuthMode   string    `bson:"auth_mode" json:"auth_mode"`
	Status     string    `bson:"status" json:"status"`
	Error      string    `bson:"error,omitempty" json:"error,omitempty"`
	HTTPStatus int       `bson:"http_status,omitempty" json:"http_status,omitempty"`
	DurationMs int64     `bson:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}
