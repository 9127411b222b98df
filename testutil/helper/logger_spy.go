// Package helper provides test doubles and fixture helpers shared by the
// presence engine's test suites.
package helper

import (
	"context"
	"sync"
)

// Log levels recorded by the LoggerSpy.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// LoggedMessage is one captured log call.
type LoggedMessage struct {
	Level   string
	Message string
	Args    []any
}

// LoggerSpy implements presence.Logger and presence.ContextualLogger,
// capturing every call for assertions.
type LoggerSpy struct {
	mu       sync.Mutex
	messages []LoggedMessage
}

// NewLoggerSpy creates an empty LoggerSpy.
func NewLoggerSpy() *LoggerSpy {
	return &LoggerSpy{messages: make([]LoggedMessage, 0)}
}

// Debug captures a debug level call.
func (s *LoggerSpy) Debug(msg string, args ...any) {
	s.record(LevelDebug, msg, args)
}

// Info captures an info level call.
func (s *LoggerSpy) Info(msg string, args ...any) {
	s.record(LevelInfo, msg, args)
}

// Warn captures a warn level call.
func (s *LoggerSpy) Warn(msg string, args ...any) {
	s.record(LevelWarn, msg, args)
}

// Error captures an error level call.
func (s *LoggerSpy) Error(msg string, args ...any) {
	s.record(LevelError, msg, args)
}

// DebugContext captures a debug level call, making the spy usable as a
// presence.ContextualLogger.
func (s *LoggerSpy) DebugContext(_ context.Context, msg string, args ...any) {
	s.record(LevelDebug, msg, args)
}

// InfoContext captures an info level call.
func (s *LoggerSpy) InfoContext(_ context.Context, msg string, args ...any) {
	s.record(LevelInfo, msg, args)
}

// WarnContext captures a warn level call.
func (s *LoggerSpy) WarnContext(_ context.Context, msg string, args ...any) {
	s.record(LevelWarn, msg, args)
}

// ErrorContext captures an error level call.
func (s *LoggerSpy) ErrorContext(_ context.Context, msg string, args ...any) {
	s.record(LevelError, msg, args)
}

func (s *LoggerSpy) record(level string, msg string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, LoggedMessage{Level: level, Message: msg, Args: args})
}

// Messages returns a copy of all captured calls.
func (s *LoggerSpy) Messages() []LoggedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make([]LoggedMessage, len(s.messages))
	copy(messages, s.messages)

	return messages
}

// CountByLevel returns how many calls were captured at the given level.
func (s *LoggerSpy) CountByLevel(level string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, message := range s.messages {
		if message.Level == level {
			count++
		}
	}

	return count
}

// HasMessage reports whether a call with the given level and message was captured.
func (s *LoggerSpy) HasMessage(level string, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, message := range s.messages {
		if message.Level == level && message.Message == msg {
			return true
		}
	}

	return false
}
