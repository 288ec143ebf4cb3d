// Package assistant keeps the conversational transcript that drives
// assistant actions on the diagram. The transcript is independent of diagram
// history and is never undone.
package assistant

import (
	"errors"
	"fmt"
	"strings"
)

// Greeting seeds every new transcript.
const Greeting = "Hello! I'm your AI assistant. How can I help with your diagram?"

// DefaultReply is used when the upstream response carries no text.
const DefaultReply = "I've updated the diagram based on your request."

// Suggestions are the predefined messages offered on a fresh transcript.
var Suggestions = []string{
	"Add load balancer",
	"Simplify architecture",
	"Add security layer",
	"Optimize database access",
	"Add caching mechanism",
}

var (
	// ErrEmptyMessage is returned for blank messages.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrNoSuggestion is returned for an out-of-range suggestion index.
	ErrNoSuggestion = errors.New("no such suggestion")
)

// Role identifies who wrote an entry.
type Role string

// Roles
const (
	User      Role = "user"
	Assistant Role = "assistant"
)

// Entry is one transcript line.
type Entry struct {
	Role   Role   `json:"role"`
	Text   string `json:"text"`
	Failed bool   `json:"failed,omitempty"`
}

// Panel holds the transcript and the processing flag.
type Panel struct {
	transcript []Entry
	processing bool
}

// New creates a panel seeded with the greeting.
func New() *Panel {
	return &Panel{transcript: []Entry{{Role: Assistant, Text: Greeting}}}
}

// Send appends a user entry, enters processing and returns the intent to
// dispatch upstream.
func (p *Panel) Send(text string) (string, error) {
	intent := strings.TrimSpace(text)
	if intent == "" {
		return "", ErrEmptyMessage
	}
	p.transcript = append(p.transcript, Entry{Role: User, Text: intent})
	p.processing = true
	return intent, nil
}

// SelectSuggestion sends the i-th suggestion.
func (p *Panel) SelectSuggestion(i int) (string, error) {
	if i < 0 || i >= len(Suggestions) {
		return "", fmt.Errorf("%w: %d", ErrNoSuggestion, i)
	}
	return p.Send(Suggestions[i])
}

// Resolve ends processing with the assistant's reply.
func (p *Panel) Resolve(reply string) {
	if strings.TrimSpace(reply) == "" {
		reply = DefaultReply
	}
	p.transcript = append(p.transcript, Entry{Role: Assistant, Text: reply})
	p.processing = false
}

// Fail ends processing with a user-facing notice.
func (p *Panel) Fail(notice string) {
	p.transcript = append(p.transcript, Entry{Role: Assistant, Text: notice, Failed: true})
	p.processing = false
}

// Note appends a failed assistant entry without ending processing. It is used
// when an earlier message is dropped while a newer one is still pending.
func (p *Panel) Note(notice string) {
	p.transcript = append(p.transcript, Entry{Role: Assistant, Text: notice, Failed: true})
}

// Processing reports whether a message awaits its response.
func (p *Panel) Processing() bool {
	return p.processing
}

// Transcript returns a copy of the transcript.
func (p *Panel) Transcript() []Entry {
	return append([]Entry(nil), p.transcript...)
}

// ShowSuggestions reports whether suggestions should be offered, which is
// only while the transcript holds nothing but the greeting.
func (p *Panel) ShowSuggestions() bool {
	return len(p.transcript) <= 1
}

// Restore replaces the transcript. An empty transcript is re-seeded with
// the greeting. Processing is cleared.
func (p *Panel) Restore(transcript []Entry) {
	if len(transcript) == 0 {
		transcript = []Entry{{Role: Assistant, Text: Greeting}}
	}
	p.transcript = append([]Entry(nil), transcript...)
	p.processing = false
}
