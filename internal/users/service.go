package users

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/promodesk/promodesk/internal/platform/httpx"
	"github.com/promodesk/promodesk/internal/rbac"
)

const (
	statsCacheKey = "promodesk:user_stats"
	statsCacheTTL = 60 * time.Second
)

// ItemDeactivator is the item-side port of the user-deletion cascade. Keeping
// the cascade an explicit call, rather than a trigger or hook, makes the
// dependency visible and testable in isolation.
type ItemDeactivator interface {
	DeactivateByOwner(ctx context.Context, ownerID int64) (int64, error)
}

// Service handles user administration business logic. Every operation
// requires the manage_users capability and the mutating ones additionally
// enforce the self-protection rule.
type Service struct {
	logger *slog.Logger
	repo   Repository
	items  ItemDeactivator
	cache  *redis.Client
}

// NewService builds a Service instance. cache may be nil, disabling stats
// caching.
func NewService(logger *slog.Logger, repo Repository, items ItemDeactivator, cache *redis.Client) *Service {
	return &Service{logger: logger, repo: repo, items: items, cache: cache}
}

// List returns a filtered page of users.
func (s *Service) List(ctx context.Context, actor *rbac.Actor, req ListUsersRequest) ([]User, int, error) {
	if err := rbac.Authorize(actor.Role, rbac.CapabilityManageUsers); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, req)
}

// UpdateRole changes the target's role. Rejected when the target is the
// acting account, regardless of the requested role.
func (s *Service) UpdateRole(ctx context.Context, actor *rbac.Actor, id int64, role rbac.Role) (*User, error) {
	if err := rbac.Authorize(actor.Role, rbac.CapabilityManageUsers); err != nil {
		return nil, err
	}
	if err := rbac.GuardSelf(actor.ID, id); err != nil {
		return nil, err
	}
	return s.repo.UpdateRole(ctx, id, role)
}

// SetStatus sets the target's activation flag. Deactivation locks the
// account out on its very next request.
func (s *Service) SetStatus(ctx context.Context, actor *rbac.Actor, id int64, active bool) (*User, error) {
	if err := rbac.Authorize(actor.Role, rbac.CapabilityManageUsers); err != nil {
		return nil, err
	}
	if err := rbac.GuardSelf(actor.ID, id); err != nil {
		return nil, err
	}
	return s.repo.SetActive(ctx, id, active)
}

// Delete soft-deletes the target account and cascades a soft-delete over the
// items it created. The two steps are not atomic across stores; on cascade
// failure the operation is safe to retry, both steps being idempotent.
func (s *Service) Delete(ctx context.Context, actor *rbac.Actor, id int64) error {
	if err := rbac.Authorize(actor.Role, rbac.CapabilityManageUsers); err != nil {
		return err
	}
	if err := rbac.GuardSelf(actor.ID, id); err != nil {
		return err
	}
	if _, err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	count, err := s.items.DeactivateByOwner(ctx, id)
	if err != nil {
		return fmt.Errorf("deactivate items for user %d: %w", id, err)
	}
	s.logger.Info("user soft-deleted",
		slog.Int64("user_id", id), slog.Int64("items_deactivated", count))
	return nil
}

// BulkUpdateRoles assigns one role to many accounts. The presence of the
// acting account anywhere in the batch rejects the whole request, avoiding
// partial-success ambiguity.
func (s *Service) BulkUpdateRoles(ctx context.Context, actor *rbac.Actor, ids []int64, role rbac.Role) (int64, error) {
	if err := rbac.Authorize(actor.Role, rbac.CapabilityManageUsers); err != nil {
		return 0, err
	}
	if slices.Contains(ids, actor.ID) {
		return 0, fmt.Errorf("%w: own account included in bulk role update", httpx.ErrForbidden)
	}
	return s.repo.BulkUpdateRole(ctx, ids, role)
}

// Stats returns account statistics, cached briefly in redis.
func (s *Service) Stats(ctx context.Context, actor *rbac.Actor) (*StatsResponse, error) {
	if err := rbac.Authorize(actor.Role, rbac.CapabilityManageUsers); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, statsCacheKey).Bytes(); err == nil {
			var cached StatsResponse
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		}
	}

	var stats StatsResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		overview, err := s.repo.CountByStatus(gctx)
		if err != nil {
			return err
		}
		stats.Overview = overview
		return nil
	})
	g.Go(func() error {
		roleStats, err := s.repo.CountByRole(gctx)
		if err != nil {
			return err
		}
		stats.RoleStats = roleStats
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, raw, statsCacheTTL).Err(); err != nil {
				s.logger.Warn("cache user stats", slog.Any("error", err))
			}
		}
	}
	return &stats, nil
}
