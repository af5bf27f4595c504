package domain

import "time"

// SecurityEventType names a detection-only security signal.
type SecurityEventType string

const (
	EventIPChanged        SecurityEventType = "ip_changed"
	EventUserAgentChanged SecurityEventType = "user_agent_changed"
	EventReactivation     SecurityEventType = "reactivation"
	EventLoginFailed      SecurityEventType = "login_failed"
	EventTokenRejected    SecurityEventType = "token_rejected"
	EventTokenRotated     SecurityEventType = "token_rotated"
)

// SecurityEvent is the canonical event model handed to the sink. Requests
// are never blocked on anomaly events; delivery is best-effort.
type SecurityEvent struct {
	Timestamp   time.Time         `json:"timestamp"`
	Type        SecurityEventType `json:"event_type"`
	PrincipalID string            `json:"principal_id,omitempty"`
	IP          string            `json:"ip,omitempty"`
	UserAgent   string            `json:"user_agent,omitempty"`
	Path        string            `json:"path,omitempty"`
	Method      string            `json:"method,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// RequestMeta carries the per-request metadata that session tracking and
// event emission need. Populated by the HTTP layer.
type RequestMeta struct {
	IP        string
	UserAgent string
	Path      string
	Method    string
}

// Event builds a SecurityEvent from request metadata.
func (m RequestMeta) Event(t SecurityEventType, principalID string, now time.Time) SecurityEvent {
	return SecurityEvent{
		Timestamp:   now,
		Type:        t,
		PrincipalID: principalID,
		IP:          m.IP,
		UserAgent:   m.UserAgent,
		Path:        m.Path,
		Method:      m.Method,
	}
}
