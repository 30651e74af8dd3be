// Package session manages conversation sessions. Sessions live in memory,
// expire after a configurable inactivity window, and serialize concurrent
// turns on the same session so history stays an alternating sequence of
// user and assistant messages.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/nimbusflow/support-agent/internal/llm"
)

// Session is a snapshot of one conversation's state.
type Session struct {
	ID           uuid.UUID     `json:"id"`
	CustomerName string        `json:"customer_name,omitempty"`
	Messages     []llm.Message `json:"messages"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActiveAt time.Time     `json:"last_active_at"`
}

// Turn is one completed user/assistant exchange.
type Turn struct {
	User      llm.Message
	Assistant llm.Message
}
