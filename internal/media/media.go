package media

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/SocialGo/pkg/errors"
	"github.com/utafrali/SocialGo/pkg/logger"
)

// Folders on the media host.
const (
	FolderAvatars = "avatars"
	FolderCovers  = "covers"
)

// AllowedContentTypes lists the image types accepted for upload.
var AllowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// IsAllowedContentType checks whether the given content type is allowed.
func IsAllowedContentType(contentType string) bool {
	_, ok := AllowedContentTypes[contentType]
	return ok
}

// Asset is a file stored on the media host.
type Asset struct {
	Key string
	URL string
}

// Uploader sends a staged local file to a media host.
type Uploader interface {
	Upload(ctx context.Context, file *StagedFile, folder string) (*Asset, error)
}

// Service stages an incoming file on local disk, forwards it to the media
// host and always removes the local copy.
type Service struct {
	stager   *Stager
	uploader Uploader
	logger   *slog.Logger
}

// NewService creates a new media service.
func NewService(stager *Stager, uploader Uploader, logger *slog.Logger) *Service {
	return &Service{stager: stager, uploader: uploader, logger: logger}
}

// Upload stages src and uploads it into folder, returning the public URL.
// Staging rejects oversize and non-image files with InvalidInput; host
// failures become Upstream. A failed temp-file removal is logged and never
// replaces the result.
func (s *Service) Upload(ctx context.Context, src io.Reader, filename, folder string) (string, error) {
	file, err := s.stager.Stage(src, filename)
	if err != nil {
		return "", err
	}
	defer s.discard(ctx, file)

	asset, err := s.uploader.Upload(ctx, file, folder)
	if err != nil {
		return "", apperrors.Upstream("media upload failed", err)
	}

	logger.FromContext(ctx).DebugContext(ctx, "media uploaded",
		slog.String("folder", folder),
		slog.String("key", asset.Key),
		slog.Int64("size", file.Size),
	)
	return asset.URL, nil
}

func (s *Service) discard(ctx context.Context, file *StagedFile) {
	if err := file.Remove(); err != nil {
		s.logger.ErrorContext(ctx, "failed to remove staged file",
			slog.String("path", file.Path),
			slog.String("error", err.Error()),
		)
	}
}

// objectKey builds a unique key for file under folder.
func objectKey(folder string, file *StagedFile) string {
	ext := AllowedContentTypes[file.ContentType]
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(file.Name))
	}
	return folder + "/" + uuid.NewString() + ext
}
