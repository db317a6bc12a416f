// Package uploads validates, measures and stores uploaded images.
package uploads

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/coastline-realty/content-backend/internal/action"
	"github.com/coastline-realty/content-backend/pkg/imaging"
	"github.com/coastline-realty/content-backend/pkg/storage"
)

// File is one uploaded part.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Processor measures and re-encodes image bytes.
type Processor interface {
	Process(data []byte) (imaging.Image, error)
}

// Prepared is a validated, processed upload ready to store.
type Prepared struct {
	Filename    string
	ContentType string
	Image       imaging.Image
}

// Ext returns the object key extension for the prepared image.
func (p Prepared) Ext() string {
	return storage.ExtensionForContentType(p.ContentType)
}

// Stored is an uploaded object.
type Stored struct {
	Key   string
	URL   string
	Image imaging.Image
}

// Prepare validates and processes every file. Nothing is stored, so a
// failure here has no side effects.
func Prepare(codec Processor, files []File) ([]Prepared, error) {
	if len(files) == 0 {
		return nil, action.Validation("at least one image is required")
	}
	out := make([]Prepared, 0, len(files))
	for _, f := range files {
		name := f.Filename
		if name == "" {
			name = fmt.Sprintf("file %d", len(out)+1)
		}
		switch {
		case len(f.Data) == 0:
			return nil, action.Validationf("%s is empty", name)
		case len(f.Data) > storage.MaxUploadSize:
			return nil, action.Validationf("%s exceeds the 10MB limit", name)
		case !storage.ValidateImageType(f.ContentType, f.Filename):
			return nil, action.Validationf("%s: only jpg, png, webp and gif images are allowed", name)
		}

		img, err := codec.Process(f.Data)
		switch {
		case errors.Is(err, imaging.ErrEmpty):
			return nil, action.Validationf("%s is empty", name)
		case errors.Is(err, imaging.ErrCorrupt):
			return nil, action.Validationf("%s is not a readable image", name)
		case err != nil:
			return nil, fmt.Errorf("process %s: %w", name, err)
		}
		out = append(out, Prepared{Filename: f.Filename, ContentType: contentType(f, img), Image: img})
	}
	return out, nil
}

func contentType(f File, img imaging.Image) string {
	if img.Measured {
		return img.ContentType
	}
	if _, ok := storage.AllowedImageTypes[f.ContentType]; ok {
		return f.ContentType
	}
	return storage.ContentTypeForFilename(f.Filename)
}

// Put uploads items in order under the keys returned by key. A failure on
// the first item is a storage write failure; a later failure is a partial
// failure and the earlier objects stay in the store.
func Put(ctx context.Context, objects storage.ObjectStore, items []Prepared, key func(i int, p Prepared) string, logger *zap.Logger) ([]Stored, error) {
	out := make([]Stored, 0, len(items))
	for i, p := range items {
		k := key(i, p)
		url, err := objects.Put(ctx, k, p.Image.Data, storage.PutOptions{Public: true, ContentType: p.ContentType})
		if err != nil {
			logger.Error("image upload failed", zap.String("key", k), zap.Int("uploaded", i), zap.Error(err))
			if i == 0 {
				return nil, action.StorageWrite("failed to upload "+displayName(p, i), err)
			}
			return out, action.PartialFailure(fmt.Sprintf("uploaded %d of %d images, then failed on %s", i, len(items), displayName(p, i)), err)
		}
		out = append(out, Stored{Key: k, URL: url, Image: p.Image})
	}
	return out, nil
}

// Blob identifies a stored image. Records written before object keys were
// kept carry only the URL.
type Blob struct {
	Key string
	URL string
}

// ResolveKeys returns the object keys of blobs. A missing key is derived from
// the URL when the store can resolve it; blobs left without a key are logged
// as orphaned.
func ResolveKeys(objects storage.ObjectStore, blobs []Blob, logger *zap.Logger) []string {
	if objects == nil {
		return nil
	}
	resolver, _ := objects.(storage.KeyResolver)
	var keys, unknown []string
	for _, b := range blobs {
		key := b.Key
		if key == "" && resolver != nil && b.URL != "" {
			key, _ = resolver.KeyForURL(b.URL)
		}
		if key == "" {
			if b.URL != "" {
				unknown = append(unknown, b.URL)
			}
			continue
		}
		keys = append(keys, key)
	}
	if len(unknown) > 0 {
		logger.Warn("blobs orphaned, no object key", zap.Strings("urls", unknown))
	}
	return keys
}

// Retrier takes blob deletes that failed for a later attempt.
type Retrier interface {
	RetryDelete(ctx context.Context, keys []string) error
}

// DeleteAll removes keys and returns the ones that could not be deleted.
// Failures are never an error for the caller: with a Retrier they are handed
// over for another attempt, otherwise the blobs are left as orphans.
func DeleteAll(ctx context.Context, objects storage.ObjectStore, keys []string, retry Retrier, logger *zap.Logger) []string {
	if objects == nil {
		return nil
	}
	var failed []string
	for _, k := range keys {
		if k == "" {
			continue
		}
		if err := objects.Delete(ctx, k); err != nil && !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("object delete failed", zap.String("key", k), zap.Error(err))
			failed = append(failed, k)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	if retry == nil {
		logger.Warn("blobs orphaned", zap.Strings("keys", failed))
		return failed
	}
	if err := retry.RetryDelete(ctx, failed); err != nil {
		logger.Error("blob delete retry enqueue failed, blobs orphaned", zap.Strings("keys", failed), zap.Error(err))
	}
	return failed
}

func displayName(p Prepared, i int) string {
	if p.Filename != "" {
		return p.Filename
	}
	return fmt.Sprintf("file %d", i+1)
}
