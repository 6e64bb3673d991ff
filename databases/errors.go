package databases

import "fmt"

// QueueReadError is returned when the pending notifications cannot be read.
// It is fatal for a run.
type QueueReadError struct {
	Err error
}

func (e *QueueReadError) Error() string {
	return fmt.Sprintf("failed to read pending notifications: %v", e.Err)
}

func (e *QueueReadError) Unwrap() error { return e.Err }

// DirectoryReadError is returned when the registered FCM tokens cannot be read.
// It is fatal for a run.
type DirectoryReadError struct {
	Err error
}

func (e *DirectoryReadError) Error() string {
	return fmt.Sprintf("failed to read fcm tokens: %v", e.Err)
}

func (e *DirectoryReadError) Unwrap() error { return e.Err }

// StatusWriteError is returned when a notification could not be moved to its
// terminal state
type StatusWriteError struct {
	NotificationID string
	Err            error
}

func (e *StatusWriteError) Error() string {
	return fmt.Sprintf("failed to update notification %s: %v", e.NotificationID, e.Err)
}

func (e *StatusWriteError) Unwrap() error { return e.Err }
