// Package notifications publishes scan and assembly milestones to ntfy.
//
// NewService returns a no-op when no topic is configured, so callers never
// branch on whether notifications are enabled.
package notifications
