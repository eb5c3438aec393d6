package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"daily-app/internal/page"
)

// ErrNotLoaded is returned by Document before the first Load.
var ErrNotLoaded = errors.New("client: page not loaded")

// StatusError reports a non-2xx page load.
type StatusError struct {
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: server returned %d", e.Path, e.Status)
}

// Session holds the page currently shown for one origin.
type Session struct {
	Client *Client
	// Path is the page location, "/" by default.
	Path string
	// OnLoad runs after every successful Load or Reload with the fresh
	// document; the composition root binds its controllers here.
	OnLoad func(ctx context.Context, doc *page.Document) error

	doc *page.Document
}

// NewSession creates a Session for the task page.
func NewSession(c *Client) *Session {
	return &Session{Client: c, Path: "/"}
}

// Document returns the current document.
func (s *Session) Document() (*page.Document, error) {
	if s.doc == nil {
		return nil, ErrNotLoaded
	}
	return s.doc, nil
}

// Load fetches and parses the page, then runs OnLoad.
func (s *Session) Load(ctx context.Context) (*page.Document, error) {
	resp, err := s.Client.Get(ctx, s.Path)
	if err != nil {
		return nil, err
	}
	defer Drain(resp)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{Path: s.Path, Status: resp.StatusCode}
	}
	doc, err := page.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	s.doc = doc
	if s.OnLoad != nil {
		if err := s.OnLoad(ctx, doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Reload replaces the current document with a fresh server render.
func (s *Session) Reload(ctx context.Context) error {
	_, err := s.Load(ctx)
	return err
}
