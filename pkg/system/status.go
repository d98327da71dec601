package system

import (
	"fmt"
	"strings"
)

// StatusKind enumerates the states a task moves through. Pending and Running
// are transient; all other kinds are terminal once set.
type StatusKind int

const (
	StatusPending StatusKind = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusInterrupted
	StatusSkipped
	StatusUpToDate
	StatusWarning
)

var statusNames = map[StatusKind]string{
	StatusPending:     "pending",
	StatusRunning:     "running",
	StatusSucceeded:   "succeeded",
	StatusFailed:      "failed",
	StatusInterrupted: "interrupted",
	StatusSkipped:     "skipped",
	StatusUpToDate:    "up to date",
	StatusWarning:     "warning",
}

func (k StatusKind) String() string {
	if name, ok := statusNames[k]; ok {
		return name
	}
	return fmt.Sprintf("StatusKind(%d)", int(k))
}

// ParseStatusKind is the inverse of StatusKind.String, used when loading
// persisted build state.
func ParseStatusKind(s string) (StatusKind, error) {
	for kind, name := range statusNames {
		if name == s {
			return kind, nil
		}
	}
	return StatusPending, fmt.Errorf("unknown status kind %q", s)
}

// TaskStatus is a status kind with an optional human-readable message.
type TaskStatus struct {
	Kind    StatusKind
	Message string
}

func Pending(message string) TaskStatus     { return TaskStatus{StatusPending, message} }
func Running(message string) TaskStatus     { return TaskStatus{StatusRunning, message} }
func Succeeded(message string) TaskStatus   { return TaskStatus{StatusSucceeded, message} }
func Failed(message string) TaskStatus      { return TaskStatus{StatusFailed, message} }
func Interrupted(message string) TaskStatus { return TaskStatus{StatusInterrupted, message} }
func Skipped(message string) TaskStatus     { return TaskStatus{StatusSkipped, message} }
func UpToDate(message string) TaskStatus    { return TaskStatus{StatusUpToDate, message} }
func Warning(message string) TaskStatus     { return TaskStatus{StatusWarning, message} }

// FromExitCode derives a status from a command exit code.
func FromExitCode(command []string, code int) TaskStatus {
	if code == 0 {
		return Succeeded("")
	}
	if command == nil {
		return Failed("")
	}
	return Failed(fmt.Sprintf("command %q returned exit code %d", strings.Join(command, " "), code))
}

// Ok reports whether the status allows dependent tasks to proceed. Skipped
// and up-to-date tasks count as ok; a pending, running, failed or interrupted
// task does not.
func (s TaskStatus) Ok() bool {
	switch s.Kind {
	case StatusPending, StatusRunning, StatusFailed, StatusInterrupted:
		return false
	}
	return true
}

// Terminal reports whether the status is final.
func (s TaskStatus) Terminal() bool {
	return s.Kind != StatusPending && s.Kind != StatusRunning
}

// Executed reports whether the task ran (or was found current) such that its
// output properties are populated.
func (s TaskStatus) Executed() bool {
	switch s.Kind {
	case StatusSucceeded, StatusUpToDate, StatusWarning:
		return true
	}
	return false
}

func (s TaskStatus) String() string {
	if s.Message == "" {
		return s.Kind.String()
	}
	return s.Kind.String() + " (" + s.Message + ")"
}
