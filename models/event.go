package models

// AlertEventType classifies a decided notification.
type AlertEventType string

const (
	EventNewIPO        AlertEventType = "new_ipo"
	EventStatusChanged AlertEventType = "status_changed"
	EventGMPAlert      AlertEventType = "gmp_alert"
)

// AlertEvent is one decided notification for the current cycle. Record is a
// snapshot taken at decision time so later mutations cannot change what gets
// rendered.
type AlertEvent struct {
	Type      AlertEventType `json:"type"`
	Key       string         `json:"key"`
	Record    *IPORecord     `json:"record"`
	OldStatus Status         `json:"old_status,omitempty"`
	NewStatus Status         `json:"new_status,omitempty"`
	Aggregate *GMPAggregate  `json:"aggregate,omitempty"`
}
