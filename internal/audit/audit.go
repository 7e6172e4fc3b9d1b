package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Audit logging for crust sessions
//
// Purpose:
// - Record who connected and when a session ended
// - Keep a trail of every command executed and whether it succeeded
//
// Note: sessions are not authenticated, so "who" is the remote address of
// the connection (or "local" for a terminal session) plus the OS user the
// shell runs as.

// Event represents one audit log record
type Event struct {
	Timestamp  time.Time `json:"timestamp"`   // RFC3339 format
	SystemUser string    `json:"system_user"` // OS username running the shell
	ProcessID  int       `json:"process_id"`  // Process ID
	SessionID  string    `json:"session_id"`  // Session identifier
	EventType  string    `json:"event_type"`  // Event category
	Resource   string    `json:"resource"`    // Remote address or command name
	Action     string    `json:"action"`      // Action performed
	Details    string    `json:"details"`     // Additional information
	Success    bool      `json:"success"`     // Operation success status
}

// Event types
const (
	EventTypeSessionOpen  = "SESSION_OPEN"
	EventTypeSessionClose = "SESSION_CLOSE"
	EventTypeCommand      = "COMMAND"
)

// Actions
const (
	ActionOpen    = "open"
	ActionClose   = "close"
	ActionExecute = "execute"
)

// Logger defines the contract for audit logging
type Logger interface {
	LogEvent(event Event) error
	Close() error
}

// NopLogger discards every event
type NopLogger struct{}

func (NopLogger) LogEvent(Event) error { return nil }

func (NopLogger) Close() error { return nil }

// FileLogger writes events as JSON lines to a file
type FileLogger struct {
	file   *os.File
	mutex  sync.Mutex
	closed bool
}

// NewFileLogger creates a file-based audit logger, appending to filename
func NewFileLogger(filename string) (*FileLogger, error) {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &FileLogger{
		file: file,
	}, nil
}

// LogEvent logs an audit event to the file
func (l *FileLogger) LogEvent(event Event) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closed {
		return fmt.Errorf("audit logger is closed")
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	if _, err := l.file.Write(append(jsonData, '\n')); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	return nil
}

// Close closes the audit logger
func (l *FileLogger) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	return l.file.Close()
}

// Open returns a FileLogger for filename, or a NopLogger when filename is empty
func Open(filename string) (Logger, error) {
	if filename == "" {
		return NopLogger{}, nil
	}
	return NewFileLogger(filename)
}

// CurrentSystemUser returns the current OS username
func CurrentSystemUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	if user := os.Getenv("USERNAME"); user != "" { // Windows
		return user
	}
	return "unknown"
}

// NewEvent creates an audit event with system information pre-filled
func NewEvent(eventType, resource, action, details string, success bool, sessionID string) Event {
	return Event{
		Timestamp:  time.Now().UTC(),
		SystemUser: CurrentSystemUser(),
		ProcessID:  os.Getpid(),
		SessionID:  sessionID,
		EventType:  eventType,
		Resource:   resource,
		Action:     action,
		Details:    details,
		Success:    success,
	}
}
