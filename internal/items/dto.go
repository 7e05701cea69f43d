package items

import (
	"io"
	"time"

	"github.com/promodesk/promodesk/internal/shared"
)

// ImageUpload carries a multipart image file headed for the blob store.
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// CreateItemRequest carries a new offer. Exactly one of Image and
// InlineImage must be present.
type CreateItemRequest struct {
	StartDate   time.Time `validate:"required"`
	EndDate     time.Time `validate:"required"`
	Note        string    `validate:"required,max=500"`
	Image       *ImageUpload
	InlineImage *string
}

// UpdateItemRequest carries a partial update; every field is independently
// optional.
type UpdateItemRequest struct {
	StartDate   *time.Time
	EndDate     *time.Time
	Note        *string `validate:"omitempty,min=1,max=500"`
	Image       *ImageUpload
	InlineImage *string
}

// ListItemsRequest shapes a paginated listing query.
type ListItemsRequest struct {
	Page       int
	Limit      int
	Search     *string
	CreatedBy  *int64
	ActiveOnly bool
}

// ItemResponse decorates an item with its derived fields.
type ItemResponse struct {
	Item
	DurationDays int  `json:"durationDays"`
	IsExpired    bool `json:"isExpired"`
}

// Response computes the derived fields against now.
func (i Item) Response(now time.Time) ItemResponse {
	return ItemResponse{Item: i, DurationDays: i.DurationDays(), IsExpired: i.IsExpired(now)}
}

// ListItemsResponse is the paginated listing payload.
type ListItemsResponse struct {
	Items      []ItemResponse    `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}
