// Package assist provides the advisory AI writing helpers: drafts, tags,
// summaries, related-post suggestions, polishing and title ideas. Nothing
// here reads or writes the garden's store.
package assist

import (
	"context"
	"errors"
	"fmt"
)

// Capability is the set of writing helpers. Service talks to a model
// directly, Client talks to a garden server, Fallback never fails.
type Capability interface {
	GenerateDraft(ctx context.Context, topic string) (string, error)
	GenerateTags(ctx context.Context, content string) ([]string, error)
	Summarize(ctx context.Context, content string) (string, error)
	FindConnections(ctx context.Context, current CurrentPost, others []Candidate) ([]Connection, error)
	PolishContent(ctx context.Context, content string) (string, error)
	SuggestTitles(ctx context.Context, content string) ([]string, error)
}

type CurrentPost struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Candidate struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
}

// Connection is a suggested related post and why it relates.
type Connection struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// ErrEmptyResponse means the model answered with no text.
var ErrEmptyResponse = errors.New("empty model response")

// ParseError means the model answered, but not with the JSON shape asked for.
type ParseError struct {
	Action string
	Raw    string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s response: %v", e.Action, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Degraded reports whether err is a malformed or empty model answer, as
// opposed to a failure to reach the model at all.
func Degraded(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) || errors.Is(err, ErrEmptyResponse)
}
