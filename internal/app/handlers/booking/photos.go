package booking

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"rentwheels/internal/app/commands"
	"rentwheels/internal/app/dto"
	"rentwheels/internal/app/handlers/support"
	"rentwheels/internal/domain/access"
	domainbooking "rentwheels/internal/domain/booking"
	"rentwheels/internal/domain/shared/validation"
)

const (
	uploadInspectionPhotoKey = "bookings.inspection_photo"
	MaxInspectionPhotoSize   = 10 << 20
)

// PhotoStore keeps uploaded objects and returns their public URL.
type PhotoStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

type UploadInspectionPhotoCommand struct {
	Actor       access.Actor
	BookingID   string `validate:"required"`
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (c UploadInspectionPhotoCommand) Key() string          { return uploadInspectionPhotoKey }
func (c UploadInspectionPhotoCommand) Caller() access.Actor { return c.Actor }

// ReadOnly reports that the upload writes no aggregate.
func (c UploadInspectionPhotoCommand) ReadOnly() bool { return true }

type UploadInspectionPhotoHandler struct {
	Env
	Photos PhotoStore
}

var allowedPhotoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

func (h *UploadInspectionPhotoHandler) Handle(ctx context.Context, cmd UploadInspectionPhotoCommand) (dto.PhotoUpload, error) {
	if h.Photos == nil {
		return dto.PhotoUpload{}, fmt.Errorf("booking: photo store not configured")
	}
	unit, err := support.UnitFrom(ctx)
	if err != nil {
		return dto.PhotoUpload{}, err
	}
	b, car, err := load(ctx, unit, cmd.BookingID)
	if err != nil {
		return dto.PhotoUpload{}, err
	}
	if err := access.Authorize(cmd.Actor, access.InspectBooking, resourceOf(b, car)); err != nil {
		return dto.PhotoUpload{}, err
	}
	switch b.Status() {
	case domainbooking.StatusActive, domainbooking.StatusCompleted:
	default:
		return dto.PhotoUpload{}, fmt.Errorf("%w: cannot attach inspection photos to a %s booking", domainbooking.ErrInvalidStateTransition, b.Status())
	}

	contentType := strings.ToLower(strings.TrimSpace(cmd.ContentType))
	ext, ok := allowedPhotoTypes[contentType]
	var problems validation.Problems
	if !ok {
		problems.Add("photo must be a jpeg, png, webp or heic image")
	}
	switch {
	case cmd.Body == nil || cmd.Size <= 0:
		problems.Add("photo file is required")
	case cmd.Size > MaxInspectionPhotoSize:
		problems.Add("photo must be at most %d MB", MaxInspectionPhotoSize>>20)
	}
	if err := problems.Err(); err != nil {
		return dto.PhotoUpload{}, err
	}

	key := path.Join("bookings", string(b.ID), "inspection", uuid.NewString()+ext)
	url, err := h.Photos.Put(ctx, key, cmd.Body, cmd.Size, contentType)
	if err != nil {
		return dto.PhotoUpload{}, fmt.Errorf("upload inspection photo: %w", err)
	}
	if h.Logger != nil {
		h.Logger.Info("inspection photo uploaded", "booking_id", b.ID, "key", key, "size", cmd.Size, "file_name", cmd.FileName)
	}
	return dto.PhotoUpload{BookingID: string(b.ID), URL: url}, nil
}

var _ commands.Handler[UploadInspectionPhotoCommand, dto.PhotoUpload] = (*UploadInspectionPhotoHandler)(nil)
