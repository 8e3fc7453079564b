package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/lucsky/cuid"

	"campus-community/src/lib"
	"campus-community/src/storage"
)

// MaxImageBytes is the largest accepted image upload.
const MaxImageBytes = 2 << 20

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageService accepts user image uploads, such as group icons.
type ImageService struct {
	store   storage.ImageStore
	limiter *RateLimiter
	metrics *lib.Metrics
	now     func() time.Time
	newName func() string
}

func NewImageService(store storage.ImageStore, limiter *RateLimiter, metrics *lib.Metrics) *ImageService {
	return &ImageService{store: store, limiter: limiter, metrics: metrics, now: time.Now, newName: cuid.New}
}

// UploadImage stores data and returns its public URL. The type is sniffed
// from the bytes, not taken from the client.
func (s *ImageService) UploadImage(ctx context.Context, userID string, data []byte) (string, error) {
	if userID == "" {
		return "", newError(ErrUnauthenticated, "log in to upload images")
	}
	if len(data) == 0 {
		return "", newError(ErrInvalidInput, "image is empty")
	}
	if len(data) > MaxImageBytes {
		return "", newError(ErrInvalidInput, "Image size must be less than 2MB")
	}
	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])]
	if !ok {
		return "", newError(ErrInvalidInput, "File must be an image")
	}
	if !s.limiter.Allow(userID, s.now()) {
		s.metrics.Inc(lib.MetricRateLimited)
		return "", newError(ErrRateLimited, "too many requests, try again in a minute")
	}

	url, err := s.store.PutImage(ctx, s.newName()+ext, data)
	if err != nil {
		return "", err
	}
	s.metrics.Inc(lib.MetricImageUploaded)
	return url, nil
}
