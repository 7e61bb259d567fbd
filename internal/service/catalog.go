package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/keep-bouncing-back/internal/apperror"
	"github.com/sakif/keep-bouncing-back/internal/auth"
	"github.com/sakif/keep-bouncing-back/internal/model"
	"github.com/sakif/keep-bouncing-back/internal/repository"
)

// CatalogService serves the trick and equipment catalogs.
type CatalogService struct {
	tricks    repository.TrickRepository
	equipment repository.EquipmentRepository
	logger    *slog.Logger
}

func NewCatalogService(tricks repository.TrickRepository, equipment repository.EquipmentRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{tricks: tricks, equipment: equipment, logger: logger}
}

// ListTricks returns every trick, or only those of level when it is non-nil.
func (s *CatalogService) ListTricks(ctx context.Context, level *int) ([]model.Trick, error) {
	if level != nil && *level < 0 {
		return nil, apperror.ValidationFailed("level", "level must not be negative")
	}
	tricks, err := s.tricks.ListTricks(ctx, level)
	if err != nil {
		return nil, fmt.Errorf("listing tricks: %w", err)
	}
	return tricks, nil
}

func (s *CatalogService) ListEquipment(ctx context.Context) ([]model.Equipment, error) {
	items, err := s.equipment.ListEquipment(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing equipment: %w", err)
	}
	return items, nil
}

// CreateEquipment adds an item to the shared catalog. Any authenticated
// account may do so.
func (s *CatalogService) CreateEquipment(ctx context.Context, current *model.Account, name string) (*model.Equipment, error) {
	if current == nil {
		return nil, apperror.Unauthenticated(auth.ReasonMissingToken, "authentication required")
	}

	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > MaxCatalogName {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be between 1 and %d characters", MaxCatalogName))
	}

	item := &model.Equipment{Name: name}
	if err := s.equipment.CreateEquipment(ctx, item); err != nil {
		return nil, fmt.Errorf("creating equipment: %w", err)
	}

	s.logger.Info("equipment created",
		slog.Int64("equipment_id", item.ID),
		slog.Int64("account_id", current.ID),
	)
	return item, nil
}
