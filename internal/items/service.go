package items

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/promodesk/promodesk/internal/platform/blob"
	"github.com/promodesk/promodesk/internal/platform/httpx"
	"github.com/promodesk/promodesk/internal/rbac"
)

// BlobStore abstracts the image artifact collaborator.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	Delete(ctx context.Context, key string) error
}

// Service applies the permission engine to the item lifecycle.
type Service struct {
	logger *slog.Logger
	repo   Repository
	blobs  BlobStore
	newKey func() string
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo Repository, blobs BlobStore) *Service {
	return &Service{logger: logger, repo: repo, blobs: blobs, newKey: blob.NewKey}
}

// List returns active items visible to the actor.
func (s *Service) List(ctx context.Context, actor *rbac.Actor, req ListItemsRequest) ([]Item, int, error) {
	if err := rbac.Authorize(actor.Role, rbac.CapabilityRead); err != nil {
		return nil, 0, err
	}
	req.CreatedBy = nil
	req.ActiveOnly = true
	return s.repo.List(ctx, req)
}

// ListMine returns the actor's own creations. Gated on the create capability
// since only creators have anything to list.
func (s *Service) ListMine(ctx context.Context, actor *rbac.Actor, req ListItemsRequest) ([]Item, int, error) {
	if err := rbac.Authorize(actor.Role, rbac.CapabilityCreate); err != nil {
		return nil, 0, err
	}
	req.CreatedBy = &actor.ID
	req.ActiveOnly = true
	return s.repo.List(ctx, req)
}

// Get fetches one item by id, soft-deleted or not.
func (s *Service) Get(ctx context.Context, actor *rbac.Actor, id int64) (*Item, error) {
	if err := rbac.Authorize(actor.Role, rbac.CapabilityRead); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Create validates and persists a new item. The date range is checked before
// any artifact is stored; if the record write fails after an upload, the
// fresh artifact is deleted so no orphaned blob remains.
func (s *Service) Create(ctx context.Context, actor *rbac.Actor, req CreateItemRequest) (*Item, error) {
	if err := rbac.Authorize(actor.Role, rbac.CapabilityCreate); err != nil {
		return nil, err
	}
	if err := validateRange(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	if req.Note == "" {
		return nil, fmt.Errorf("%w: note is required", httpx.ErrValidation)
	}

	image, uploadedKey, err := s.storeImage(ctx, req.Image, req.InlineImage)
	if err != nil {
		return nil, err
	}
	if image == "" {
		return nil, fmt.Errorf("%w: image is required", httpx.ErrValidation)
	}

	created, err := s.repo.Create(ctx, Item{
		Image:     image,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Note:      req.Note,
		CreatedBy: actor.ID,
	})
	if err != nil {
		s.discardUpload(ctx, uploadedKey)
		return nil, err
	}
	return created, nil
}

// Update applies a partial update. When only one bound of the date range is
// supplied, the effective range is recomputed against the stored opposite
// bound before re-validation. A newly uploaded artifact is deleted on any
// subsequent failure; a replaced prior artifact is deleted on success unless
// it was inline-encoded.
func (s *Service) Update(ctx context.Context, actor *rbac.Actor, id int64, req UpdateItemRequest) (*Item, error) {
	if err := rbac.Authorize(actor.Role, rbac.CapabilityUpdate); err != nil {
		return nil, err
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.IsActive {
		return nil, fmt.Errorf("%w: item %d", httpx.ErrNotFound, id)
	}

	start, end := existing.StartDate, existing.EndDate
	if req.StartDate != nil {
		start = *req.StartDate
	}
	if req.EndDate != nil {
		end = *req.EndDate
	}
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	updates := map[string]any{"updated_by": actor.ID}
	if req.StartDate != nil {
		updates["start_date"] = *req.StartDate
	}
	if req.EndDate != nil {
		updates["end_date"] = *req.EndDate
	}
	if req.Note != nil {
		if *req.Note == "" {
			return nil, fmt.Errorf("%w: note must not be empty", httpx.ErrValidation)
		}
		updates["note"] = *req.Note
	}

	image, uploadedKey, err := s.storeImage(ctx, req.Image, req.InlineImage)
	if err != nil {
		return nil, err
	}
	if image != "" {
		updates["image"] = image
	}

	updated, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		s.discardUpload(ctx, uploadedKey)
		return nil, err
	}

	if image != "" && image != existing.Image && !existing.HasInlineImage() {
		s.purgeReplaced(ctx, existing.Image)
	}
	return updated, nil
}

// Delete soft-deletes an item. The image artifact is deliberately kept;
// purge is a maintenance concern handled by the sweep worker for queued
// orphans only.
func (s *Service) Delete(ctx context.Context, actor *rbac.Actor, id int64) error {
	if err := rbac.Authorize(actor.Role, rbac.CapabilityDelete); err != nil {
		return err
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !existing.IsActive {
		return fmt.Errorf("%w: item %d", httpx.ErrNotFound, id)
	}
	return s.repo.SetActive(ctx, id, false, actor.ID)
}

// DeactivateByOwner soft-deletes all items created by ownerID. Capability
// enforcement lives with the calling administrative surface.
func (s *Service) DeactivateByOwner(ctx context.Context, ownerID int64) (int64, error) {
	return s.repo.DeactivateByOwner(ctx, ownerID)
}

// SweepOrphans deletes queued orphaned artifacts, returning how many were
// removed. Entries whose blob deletion fails stay queued for the next sweep.
func (s *Service) SweepOrphans(ctx context.Context, limit int) (int, error) {
	orphans, err := s.repo.ListOrphans(ctx, limit)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, orphan := range orphans {
		if err := s.blobs.Delete(ctx, orphan.StorageKey); err != nil {
			s.logger.Warn("sweep blob delete failed",
				slog.String("key", orphan.StorageKey), slog.Any("error", err))
			continue
		}
		if err := s.repo.DeleteOrphan(ctx, orphan.ID); err != nil {
			return swept, err
		}
		swept++
	}
	return swept, nil
}

// storeImage uploads a multipart image or passes through an inline data URI.
// It returns the stored image reference and, for uploads, the blob key for
// compensation cleanup.
func (s *Service) storeImage(ctx context.Context, upload *ImageUpload, inline *string) (string, string, error) {
	switch {
	case upload != nil:
		key := s.newKey()
		if err := s.blobs.Put(ctx, key, upload.ContentType, upload.Body); err != nil {
			return "", "", fmt.Errorf("%w: store image: %v", httpx.ErrUpstream, err)
		}
		return key, key, nil
	case inline != nil && *inline != "":
		return *inline, "", nil
	}
	return "", "", nil
}

// discardUpload compensates a failed mutation by removing the artifact that
// was just stored. Cleanup failure is logged, never masks the original error.
func (s *Service) discardUpload(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Error("orphaned image cleanup failed",
			slog.String("key", key), slog.Any("error", err))
		if qerr := s.repo.EnqueueOrphan(ctx, key); qerr != nil {
			s.logger.Error("orphan enqueue failed", slog.Any("error", qerr))
		}
	}
}

// purgeReplaced removes a prior artifact after a successful image swap,
// falling back to the sweep queue when direct deletion fails.
func (s *Service) purgeReplaced(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("replaced image delete failed",
			slog.String("key", key), slog.Any("error", err))
		if qerr := s.repo.EnqueueOrphan(ctx, key); qerr != nil {
			s.logger.Error("orphan enqueue failed", slog.Any("error", qerr))
		}
	}
}

func validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: startDate and endDate are required", httpx.ErrValidation)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: endDate must be after startDate", httpx.ErrValidation)
	}
	return nil
}
