package events

import "context"

// AuthChannel carries authentication audit events.
const AuthChannel = "auth:events"

const (
	TypeLoginSucceeded   = "auth.login_succeeded"
	TypeLoginFailed      = "auth.login_failed"
	TypeLogout           = "auth.logout"
	TypePasswordUpgraded = "auth.password_upgraded"
)

type Event struct {
	Type      string            `json:"type"`
	Payload   map[string]string `json:"payload"`
	Timestamp int64             `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}
