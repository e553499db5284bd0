package scan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/zombor/barcode-scanner/internal/journal"
)

// IDGenerator generates unique IDs for attempts
type IDGenerator interface {
	Generate() string
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// Service runs scanning attempts and journals them
type Service struct {
	loop        *Loop
	db          journal.DB
	source      string
	decoder     string
	idGenerator IDGenerator
}

// NewService creates a new Service. db may be nil to skip journaling; loop
// may be nil for a Service that only reads the journal.
func NewService(loop *Loop, db journal.DB, source, decoder string) *Service {
	return NewServiceWithDeps(loop, db, source, decoder, &defaultIDGenerator{})
}

// NewServiceWithDeps creates a new Service with a custom ID generator for testing
func NewServiceWithDeps(loop *Loop, db journal.DB, source, decoder string, idGen IDGenerator) *Service {
	return &Service{
		loop:        loop,
		db:          db,
		source:      source,
		decoder:     decoder,
		idGenerator: idGen,
	}
}

// Scan runs one attempt. The attempt is always returned; the error is only
// set when the attempt could not be journaled.
func (s *Service) Scan(ctx context.Context) (*journal.Attempt, error) {
	id := s.idGenerator.Generate()

	slog.Info("Scanning started",
		"attempt", id,
		"source", s.source,
		"decoder", s.decoder,
		"threshold", s.loop.Config.Threshold,
		"timeout", s.loop.Config.Timeout,
	)

	result := s.loop.Run(ctx)

	attempt := &journal.Attempt{
		ID:         id,
		Source:     s.source,
		Decoder:    s.decoder,
		Config:     s.loop.Config,
		Result:     result,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}

	if s.db == nil {
		return attempt, nil
	}
	if err := s.db.SaveAttempt(attempt); err != nil {
		slog.Error("Failed to journal attempt", "attempt", id, "error", err)
		return attempt, fmt.Errorf("saving attempt to journal: %w", err)
	}
	return attempt, nil
}

// History returns journaled attempts, newest first
func (s *Service) History() ([]*journal.Attempt, error) {
	if s.db == nil {
		return []*journal.Attempt{}, nil
	}
	attempts, err := s.db.ListAttempts()
	if err != nil {
		return nil, fmt.Errorf("listing attempts: %w", err)
	}
	return attempts, nil
}

// Attempt retrieves one journaled attempt
func (s *Service) Attempt(id string) (*journal.Attempt, error) {
	if s.db == nil {
		return nil, fmt.Errorf("getting attempt: %w: %s", journal.ErrNotFound, id)
	}
	attempt, err := s.db.GetAttempt(id)
	if err != nil {
		return nil, fmt.Errorf("getting attempt: %w", err)
	}
	return attempt, nil
}
