// Package audit is the fire-and-forget sink for committed mutations.
// A failed audit write is logged and swallowed; it never rolls back or
// fails the mutation that produced it.
package audit

import (
	"context"
	"log"

	"chamapesa/internal/models"
	"chamapesa/internal/repositories"

	"github.com/google/uuid"
)

// Service persists audit log entries.
type Service struct {
	repo repositories.AuditRepository
}

func NewService(repo repositories.AuditRepository) *Service {
	if repo == nil {
		panic("audit repo is required")
	}
	return &Service{repo: repo}
}

// Record writes one audit entry. Errors are logged, never returned.
func (s *Service) Record(ctx context.Context, actorID *uuid.UUID, action, entityType, entityID string, changes map[string]interface{}) {
	entry := &models.AuditLog{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    models.NewJSON(changes),
	}
	if err := s.repo.Create(entry); err != nil {
		log.Printf("audit write failed for %s %s: %v", entityType, entityID, err)
	}
}

// History returns recent audit entries for an entity.
func (s *Service) History(ctx context.Context, entityType, entityID string, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByEntity(entityType, entityID, limit)
}
