package items

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/promodesk/promodesk/internal/platform/httpx"
	"github.com/promodesk/promodesk/internal/rbac"
)

type stubRepo struct {
	nextID     int64
	items      map[int64]*Item
	orphans    []string
	failCreate bool
	failUpdate bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{items: make(map[int64]*Item)}
}

func (r *stubRepo) add(item Item) *Item {
	r.nextID++
	item.ID = r.nextID
	item.IsActive = true
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	r.items[item.ID] = &item
	return &item
}

func (r *stubRepo) Get(_ context.Context, id int64) (*Item, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: item %d", httpx.ErrNotFound, id)
	}
	clone := *item
	return &clone, nil
}

func (r *stubRepo) List(_ context.Context, req ListItemsRequest) ([]Item, int, error) {
	var out []Item
	for _, item := range r.items {
		if req.ActiveOnly && !item.IsActive {
			continue
		}
		if req.CreatedBy != nil && item.CreatedBy != *req.CreatedBy {
			continue
		}
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (r *stubRepo) Create(_ context.Context, item Item) (*Item, error) {
	if r.failCreate {
		return nil, errors.New("insert failed")
	}
	return r.add(item), nil
}

func (r *stubRepo) Update(_ context.Context, id int64, updates map[string]any) (*Item, error) {
	if r.failUpdate {
		return nil, errors.New("update failed")
	}
	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: item %d", httpx.ErrNotFound, id)
	}
	for column, value := range updates {
		switch column {
		case "image":
			item.Image = value.(string)
		case "start_date":
			item.StartDate = value.(time.Time)
		case "end_date":
			item.EndDate = value.(time.Time)
		case "note":
			item.Note = value.(string)
		case "updated_by":
			actorID := value.(int64)
			item.UpdatedBy = &actorID
		}
	}
	clone := *item
	return &clone, nil
}

func (r *stubRepo) SetActive(_ context.Context, id int64, active bool, updatedBy int64) error {
	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("%w: item %d", httpx.ErrNotFound, id)
	}
	item.IsActive = active
	item.UpdatedBy = &updatedBy
	return nil
}

func (r *stubRepo) DeactivateByOwner(_ context.Context, ownerID int64) (int64, error) {
	var n int64
	for _, item := range r.items {
		if item.CreatedBy == ownerID && item.IsActive {
			item.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *stubRepo) EnqueueOrphan(_ context.Context, storageKey string) error {
	r.orphans = append(r.orphans, storageKey)
	return nil
}

func (r *stubRepo) ListOrphans(_ context.Context, limit int) ([]Orphan, error) {
	var out []Orphan
	for i, key := range r.orphans {
		if len(out) == limit {
			break
		}
		out = append(out, Orphan{ID: int64(i + 1), StorageKey: key})
	}
	return out, nil
}

func (r *stubRepo) DeleteOrphan(_ context.Context, id int64) error {
	idx := int(id - 1)
	if idx < 0 || idx >= len(r.orphans) {
		return httpx.ErrNotFound
	}
	r.orphans = slices.Delete(r.orphans, idx, idx+1)
	return nil
}

var _ Repository = (*stubRepo)(nil)

type fakeBlobStore struct {
	stored     map[string]bool
	deleted    []string
	failPut    bool
	failDelete map[string]bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{stored: make(map[string]bool), failDelete: make(map[string]bool)}
}

func (b *fakeBlobStore) Put(_ context.Context, key, _ string, _ io.Reader) error {
	if b.failPut {
		return errors.New("put failed")
	}
	b.stored[key] = true
	return nil
}

func (b *fakeBlobStore) Delete(_ context.Context, key string) error {
	if b.failDelete[key] {
		return errors.New("delete failed")
	}
	delete(b.stored, key)
	b.deleted = append(b.deleted, key)
	return nil
}

var (
	userActor  = &rbac.Actor{ID: 1, Role: rbac.RoleUser, IsActive: true}
	adminActor = &rbac.Actor{ID: 2, Role: rbac.RoleAdmin, IsActive: true}
	superActor = &rbac.Actor{ID: 3, Role: rbac.RoleSuperAdmin, IsActive: true}
)

func newTestService() (*Service, *stubRepo, *fakeBlobStore) {
	repo := newStubRepo()
	blobs := newFakeBlobStore()
	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), repo, blobs)
	counter := 0
	svc.newKey = func() string {
		counter++
		return fmt.Sprintf("items/test/%d", counter)
	}
	return svc, repo, blobs
}

func upload() *ImageUpload {
	return &ImageUpload{
		Filename:    "promo.png",
		ContentType: "image/png",
		Body:        strings.NewReader("fake image bytes"),
	}
}

func validCreate() CreateItemRequest {
	return CreateItemRequest{
		StartDate: date(2026, 1, 1),
		EndDate:   date(2026, 1, 31),
		Note:      "winter promotion",
		Image:     upload(),
	}
}

func TestCreateRequiresCapability(t *testing.T) {
	svc, repo, blobs := newTestService()

	_, err := svc.Create(context.Background(), userActor, validCreate())
	if !errors.Is(err, httpx.ErrForbidden) {
		t.Fatalf("user create = %v, want forbidden", err)
	}
	if len(repo.items) != 0 || len(blobs.stored) != 0 {
		t.Fatal("forbidden create left state behind")
	}

	if _, err := svc.Create(context.Background(), adminActor, validCreate()); err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if _, err := svc.Create(context.Background(), superActor, validCreate()); err != nil {
		t.Fatalf("super_admin create: %v", err)
	}
}

func TestCreateRejectsInvalidRange(t *testing.T) {
	svc, _, blobs := newTestService()

	req := validCreate()
	req.StartDate = date(2026, 1, 31)
	req.EndDate = date(2026, 1, 1)
	_, err := svc.Create(context.Background(), adminActor, req)
	if !errors.Is(err, httpx.ErrValidation) {
		t.Fatalf("reversed range = %v, want validation error", err)
	}
	if len(blobs.stored) != 0 {
		t.Fatal("artifact stored before range validation")
	}

	req = validCreate()
	req.EndDate = req.StartDate
	if _, err := svc.Create(context.Background(), adminActor, req); !errors.Is(err, httpx.ErrValidation) {
		t.Fatalf("equal bounds = %v, want validation error", err)
	}
}

func TestCreateStoresUploadedImage(t *testing.T) {
	svc, _, blobs := newTestService()

	item, err := svc.Create(context.Background(), adminActor, validCreate())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.Image != "items/test/1" {
		t.Fatalf("image ref = %q", item.Image)
	}
	if !blobs.stored[item.Image] {
		t.Fatal("artifact not stored")
	}
	if item.CreatedBy != adminActor.ID {
		t.Fatalf("created_by = %d", item.CreatedBy)
	}
}

func TestCreateInlineImageSkipsBlobStore(t *testing.T) {
	svc, _, blobs := newTestService()

	inline := "data:image/png;base64,AAAA"
	req := validCreate()
	req.Image = nil
	req.InlineImage = &inline
	item, err := svc.Create(context.Background(), adminActor, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.Image != inline {
		t.Fatalf("image ref = %q", item.Image)
	}
	if len(blobs.stored) != 0 {
		t.Fatal("inline image hit the blob store")
	}
}

func TestCreateRepoFailureDiscardsUpload(t *testing.T) {
	svc, repo, blobs := newTestService()
	repo.failCreate = true

	if _, err := svc.Create(context.Background(), adminActor, validCreate()); err == nil {
		t.Fatal("expected create failure")
	}
	if len(blobs.stored) != 0 {
		t.Fatal("orphaned artifact survived failed create")
	}
	if !slices.Contains(blobs.deleted, "items/test/1") {
		t.Fatal("fresh artifact was not deleted")
	}
}

func TestCreateCleanupFailureQueuesOrphan(t *testing.T) {
	svc, repo, blobs := newTestService()
	repo.failCreate = true
	blobs.failDelete["items/test/1"] = true

	if _, err := svc.Create(context.Background(), adminActor, validCreate()); err == nil {
		t.Fatal("expected create failure")
	}
	if !slices.Contains(repo.orphans, "items/test/1") {
		t.Fatal("failed cleanup not queued for sweep")
	}
}

func TestUpdateMergesRangeBeforeValidation(t *testing.T) {
	svc, repo, _ := newTestService()
	existing := repo.add(Item{
		Image:     "items/test/existing",
		StartDate: date(2026, 1, 10),
		EndDate:   date(2026, 1, 31),
		Note:      "promo",
		CreatedBy: adminActor.ID,
	})

	before := date(2026, 1, 5)
	_, err := svc.Update(context.Background(), adminActor, existing.ID, UpdateItemRequest{EndDate: &before})
	if !errors.Is(err, httpx.ErrValidation) {
		t.Fatalf("end before stored start = %v, want validation error", err)
	}

	after := date(2026, 2, 15)
	updated, err := svc.Update(context.Background(), adminActor, existing.ID, UpdateItemRequest{EndDate: &after})
	if err != nil {
		t.Fatalf("valid end move: %v", err)
	}
	if !updated.EndDate.Equal(after) || !updated.StartDate.Equal(existing.StartDate) {
		t.Fatalf("range = %v..%v", updated.StartDate, updated.EndDate)
	}
	if updated.UpdatedBy == nil || *updated.UpdatedBy != adminActor.ID {
		t.Fatalf("updated_by = %v", updated.UpdatedBy)
	}
}

func TestUpdateReplacedImagePurged(t *testing.T) {
	svc, repo, blobs := newTestService()
	existing := repo.add(Item{
		Image:     "items/test/old",
		StartDate: date(2026, 1, 1),
		EndDate:   date(2026, 1, 31),
		Note:      "promo",
		CreatedBy: adminActor.ID,
	})
	blobs.stored["items/test/old"] = true

	updated, err := svc.Update(context.Background(), adminActor, existing.ID, UpdateItemRequest{Image: upload()})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Image != "items/test/1" {
		t.Fatalf("image ref = %q", updated.Image)
	}
	if !slices.Contains(blobs.deleted, "items/test/old") {
		t.Fatal("replaced artifact not purged")
	}
	if !blobs.stored[updated.Image] {
		t.Fatal("new artifact missing")
	}
}

func TestUpdateInlinePriorImageNotPurged(t *testing.T) {
	svc, repo, blobs := newTestService()
	existing := repo.add(Item{
		Image:     "data:image/png;base64,AAAA",
		StartDate: date(2026, 1, 1),
		EndDate:   date(2026, 1, 31),
		Note:      "promo",
		CreatedBy: adminActor.ID,
	})

	if _, err := svc.Update(context.Background(), adminActor, existing.ID, UpdateItemRequest{Image: upload()}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(blobs.deleted) != 0 {
		t.Fatal("inline prior image triggered a blob delete")
	}
}

func TestUpdateRepoFailureDiscardsUpload(t *testing.T) {
	svc, repo, blobs := newTestService()
	existing := repo.add(Item{
		Image:     "items/test/old",
		StartDate: date(2026, 1, 1),
		EndDate:   date(2026, 1, 31),
		Note:      "promo",
		CreatedBy: adminActor.ID,
	})
	repo.failUpdate = true

	if _, err := svc.Update(context.Background(), adminActor, existing.ID, UpdateItemRequest{Image: upload()}); err == nil {
		t.Fatal("expected update failure")
	}
	if !slices.Contains(blobs.deleted, "items/test/1") {
		t.Fatal("fresh artifact survived failed update")
	}
}

func TestUpdateSoftDeletedIsNotFound(t *testing.T) {
	svc, repo, _ := newTestService()
	existing := repo.add(Item{
		Image:     "items/test/old",
		StartDate: date(2026, 1, 1),
		EndDate:   date(2026, 1, 31),
		Note:      "promo",
		CreatedBy: adminActor.ID,
	})
	repo.items[existing.ID].IsActive = false

	note := "new note"
	if _, err := svc.Update(context.Background(), adminActor, existing.ID, UpdateItemRequest{Note: &note}); !errors.Is(err, httpx.ErrNotFound) {
		t.Fatalf("update soft-deleted = %v, want not found", err)
	}
}

func TestDeleteCapabilityAndSoftDelete(t *testing.T) {
	svc, repo, blobs := newTestService()
	existing := repo.add(Item{
		Image:     "items/test/keep",
		StartDate: date(2026, 1, 1),
		EndDate:   date(2026, 1, 31),
		Note:      "promo",
		CreatedBy: adminActor.ID,
	})
	blobs.stored["items/test/keep"] = true

	if err := svc.Delete(context.Background(), adminActor, existing.ID); !errors.Is(err, httpx.ErrForbidden) {
		t.Fatalf("admin delete = %v, want forbidden", err)
	}
	if err := svc.Delete(context.Background(), superActor, existing.ID); err != nil {
		t.Fatalf("super_admin delete: %v", err)
	}
	if repo.items[existing.ID].IsActive {
		t.Fatal("item still active after delete")
	}
	if !blobs.stored["items/test/keep"] {
		t.Fatal("soft delete removed the artifact")
	}
	if err := svc.Delete(context.Background(), superActor, existing.ID); !errors.Is(err, httpx.ErrNotFound) {
		t.Fatalf("second delete = %v, want not found", err)
	}
}

func TestListFiltersActiveAndOwner(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.add(Item{Image: "a", StartDate: date(2026, 1, 1), EndDate: date(2026, 1, 31), CreatedBy: adminActor.ID})
	repo.add(Item{Image: "b", StartDate: date(2026, 1, 1), EndDate: date(2026, 1, 31), CreatedBy: superActor.ID})
	deleted := repo.add(Item{Image: "c", StartDate: date(2026, 1, 1), EndDate: date(2026, 1, 31), CreatedBy: adminActor.ID})
	repo.items[deleted.ID].IsActive = false

	all, total, err := svc.List(context.Background(), userActor, ListItemsRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Fatalf("list total = %d, want 2", total)
	}

	mine, _, err := svc.ListMine(context.Background(), adminActor, ListItemsRequest{})
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine) != 1 || mine[0].CreatedBy != adminActor.ID {
		t.Fatalf("mine = %+v", mine)
	}

	if _, _, err := svc.ListMine(context.Background(), userActor, ListItemsRequest{}); !errors.Is(err, httpx.ErrForbidden) {
		t.Fatalf("user list mine = %v, want forbidden", err)
	}
}

func TestSweepOrphans(t *testing.T) {
	svc, repo, blobs := newTestService()
	repo.orphans = []string{"items/test/gone", "items/test/stuck"}
	blobs.failDelete["items/test/stuck"] = true

	swept, err := svc.SweepOrphans(context.Background(), 10)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}
	if !slices.Contains(repo.orphans, "items/test/stuck") {
		t.Fatal("failed deletion dropped from the queue")
	}
	if slices.Contains(repo.orphans, "items/test/gone") {
		t.Fatal("swept entry still queued")
	}
}
