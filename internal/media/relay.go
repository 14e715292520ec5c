// Package media validates, normalizes and relays uploaded images to an
// object store.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fathima-sithara/snapshare/internal/errs"
	"github.com/fathima-sithara/snapshare/internal/models"
	"github.com/fathima-sithara/snapshare/internal/storage"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var allowedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/gif":  true,
	"image/bmp":  true,
}

type Options struct {
	Folder          string
	MaxBytes        int64
	MaxDimension    int
	JPEGQuality     int
	BreakerFailures uint32
}

type Relay struct {
	store storage.ObjectStore
	cb    *gobreaker.CircuitBreaker
	opts  Options
	log   *zap.Logger
}

func NewRelay(store storage.ObjectStore, opts Options, logger *zap.Logger) *Relay {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = 800
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 90
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "object-store",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= opts.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &Relay{store: store, cb: cb, opts: opts, log: logger}
}

// Validate rejects payloads that must never reach the store. The declared
// content type is checked, then the bytes are sniffed.
func (r *Relay) Validate(data []byte, contentType string) error {
	if len(data) == 0 {
		return errs.Validation("Please upload an image")
	}
	if r.opts.MaxBytes > 0 && int64(len(data)) > r.opts.MaxBytes {
		return errs.Validation(fmt.Sprintf("Image exceeds the %d MB limit", r.opts.MaxBytes>>20))
	}
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if ct != "" && ct != "application/octet-stream" && !allowedTypes[ct] {
		return errs.Validation("Only image files are allowed")
	}
	if !allowedTypes[http.DetectContentType(data)] {
		return errs.Validation("Only image files are allowed")
	}
	return nil
}

// Normalize fits the image inside MaxDimension on both axes, keeping the
// aspect ratio, and re-encodes it as JPEG.
func (r *Relay) Normalize(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errs.Validation("Unsupported image format")
	}
	fitted := imaging.Fit(img, r.opts.MaxDimension, r.opts.MaxDimension, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(r.opts.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Upload validates, normalizes and stores an image, returning its URL and
// the id needed to release it.
func (r *Relay) Upload(ctx context.Context, data []byte, contentType string) (models.Image, error) {
	if err := r.Validate(data, contentType); err != nil {
		return models.Image{}, err
	}
	out, err := r.Normalize(data)
	if err != nil {
		return models.Image{}, err
	}

	key := path.Join(r.opts.Folder, uuid.NewString()+".jpg")
	res, err := r.cb.Execute(func() (interface{}, error) {
		return r.store.Put(ctx, key, "image/jpeg", out)
	})
	if err != nil {
		return models.Image{}, errs.Upstream("Image upload failed", err)
	}
	return models.Image{URL: res.(string), PublicID: key}, nil
}

// Release removes a previously uploaded asset. An asset that is already gone
// counts as released.
func (r *Relay) Release(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	_, err := r.cb.Execute(func() (interface{}, error) {
		err := r.store.Delete(ctx, publicID)
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil
		}
		return nil, err
	})
	return err
}
