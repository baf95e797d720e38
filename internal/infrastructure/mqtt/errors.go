package mqtt

import "errors"

// Errors returned by the event publisher. Match with errors.Is.
var (
	ErrNotConnected     = errors.New("mqtt: broker connection down")
	ErrConnectionFailed = errors.New("mqtt: could not reach broker")
	ErrPublishFailed    = errors.New("mqtt: publish failed")

	// ErrInvalidQoS rejects levels above 2.
	ErrInvalidQoS   = errors.New("mqtt: qos must be 0, 1 or 2")
	ErrInvalidTopic = errors.New("mqtt: empty topic")
)
