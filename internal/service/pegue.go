package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/keep-bouncing-back/internal/apperror"
	"github.com/sakif/keep-bouncing-back/internal/auth"
	"github.com/sakif/keep-bouncing-back/internal/model"
	"github.com/sakif/keep-bouncing-back/internal/repository"
)

// PegueService logs practice sessions.
type PegueService struct {
	pegues repository.PegueRepository
	tricks repository.TrickRepository
	logger *slog.Logger
}

func NewPegueService(pegues repository.PegueRepository, tricks repository.TrickRepository, logger *slog.Logger) *PegueService {
	return &PegueService{pegues: pegues, tricks: tricks, logger: logger}
}

// PegueInput is what a client submits. UserID is optional: the owner is
// always the caller, and a different UserID is rejected.
type PegueInput struct {
	UserID    *int64
	Equipment string
	Date      time.Time
	Duration  int
	Notes     string
	TrickIDs  []int64
}

// Create validates and stores a pegue owned by current.
func (s *PegueService) Create(ctx context.Context, current *model.Account, in PegueInput) (*model.Pegue, error) {
	if current == nil {
		return nil, apperror.Unauthenticated(auth.ReasonMissingToken, "authentication required")
	}
	if in.UserID != nil {
		if err := auth.Authorize(current, *in.UserID); err != nil {
			return nil, err
		}
	}

	equipment := strings.TrimSpace(in.Equipment)
	if n := utf8.RuneCountInString(equipment); n == 0 || n > MaxEquipmentLength {
		return nil, apperror.ValidationFailed("equipment",
			fmt.Sprintf("equipment must be between 1 and %d characters", MaxEquipmentLength))
	}
	if in.Date.IsZero() {
		return nil, apperror.ValidationFailed("date", "date is required")
	}
	if in.Duration < 0 || in.Duration > MaxDurationMinutes {
		return nil, apperror.ValidationFailed("duration",
			fmt.Sprintf("duration must be between 0 and %d minutes", MaxDurationMinutes))
	}
	notes := strings.TrimSpace(in.Notes)
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return nil, apperror.ValidationFailed("notes",
			fmt.Sprintf("notes must be %d characters or less", MaxNotesLength))
	}

	ids := dedupe(in.TrickIDs)
	tricks, err := s.tricks.FindTricksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading tricks: %w", err)
	}
	if len(tricks) != len(ids) {
		return nil, apperror.ValidationFailed("tricks_ids", "one or more tricks do not exist")
	}

	pegue := &model.Pegue{
		UserID:    current.ID,
		Equipment: equipment,
		Date:      in.Date.UTC(),
		Duration:  in.Duration,
		Notes:     notes,
		Tricks:    tricks,
	}
	if err := s.pegues.CreatePegue(ctx, pegue); err != nil {
		return nil, fmt.Errorf("creating pegue: %w", err)
	}

	s.logger.Info("pegue created",
		slog.Int64("pegue_id", pegue.ID),
		slog.Int64("account_id", current.ID),
		slog.Int("tricks", len(tricks)),
	)
	return pegue, nil
}

func (s *PegueService) Get(ctx context.Context, id int64) (*model.Pegue, error) {
	pegue, found, err := s.pegues.FindPegueByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading pegue %d: %w", id, err)
	}
	if !found {
		return nil, apperror.NotFound("pegue", strconv.FormatInt(id, 10))
	}
	return pegue, nil
}

// List returns pegues newest first, optionally only those of userID.
func (s *PegueService) List(ctx context.Context, userID *int64, limit, offset int) ([]model.Pegue, error) {
	pegues, err := s.pegues.ListPegues(ctx, repository.PegueFilter{
		UserID:      userID,
		ListOptions: page(limit, offset),
	})
	if err != nil {
		s.logger.Error("failed to list pegues", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing pegues: %w", err)
	}
	return pegues, nil
}

// Delete removes a pegue owned by current.
func (s *PegueService) Delete(ctx context.Context, current *model.Account, id int64) error {
	pegue, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.Authorize(current, pegue.UserID); err != nil {
		return err
	}
	if err := s.pegues.DeletePegue(ctx, id); err != nil {
		return fmt.Errorf("deleting pegue: %w", err)
	}
	s.logger.Info("pegue deleted", slog.Int64("pegue_id", id))
	return nil
}

// dedupe keeps the first occurrence of every id, so listing a trick twice
// does not count as a missing trick.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
