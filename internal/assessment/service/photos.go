package service

import (
	"bytes"
	"context"
	"image"
	"time"

	"github.com/disintegration/imaging"
	storagedomain "github.com/smallbiznis/detailflow/internal/storage/domain"
	visiondomain "github.com/smallbiznis/detailflow/internal/vision/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const jpegQuality = 85

// modelMediaTypes are the photo formats the vision models accept inline.
var modelMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type fetchOutcome struct {
	images      []visiondomain.Image
	failed      int
	unsupported int
}

// fetchPhotos reads every key in parallel. A failed read is logged and skipped.
func (s *Service) fetchPhotos(ctx context.Context, log *zap.Logger, keys []string, timeout time.Duration, maxEdge int) fetchOutcome {
	objects := make([]*storagedomain.Object, len(keys))

	var g errgroup.Group
	for i, key := range keys {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			obj, err := s.storage.FetchObject(fetchCtx, key)
			if err != nil {
				log.Warn("photo fetch failed", zap.String("key", key), zap.Error(err))
				return nil
			}
			objects[i] = obj
			return nil
		})
	}
	_ = g.Wait()

	var out fetchOutcome
	for _, obj := range objects {
		if obj == nil {
			out.failed++
			continue
		}
		if !modelMediaTypes[obj.ContentType] {
			log.Warn("photo skipped: media type not accepted by model",
				zap.String("key", obj.Key),
				zap.String("content_type", obj.ContentType),
			)
			out.unsupported++
			continue
		}
		out.images = append(out.images, normalizePhoto(log, obj, maxEdge))
	}
	return out
}

// normalizePhoto downscales JPEG and PNG photos whose long edge exceeds maxEdge.
func normalizePhoto(log *zap.Logger, obj *storagedomain.Object, maxEdge int) visiondomain.Image {
	original := visiondomain.Image{MediaType: obj.ContentType, Data: obj.Data}
	if maxEdge <= 0 || (obj.ContentType != "image/jpeg" && obj.ContentType != "image/png") {
		return original
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(obj.Data))
	if err != nil {
		log.Debug("photo header unreadable, sending as is", zap.String("key", obj.Key), zap.Error(err))
		return original
	}
	if cfg.Width <= maxEdge && cfg.Height <= maxEdge {
		return original
	}

	img, err := imaging.Decode(bytes.NewReader(obj.Data), imaging.AutoOrientation(true))
	if err != nil {
		log.Debug("photo decode failed, sending as is", zap.String("key", obj.Key), zap.Error(err))
		return original
	}
	resized := imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		log.Debug("photo encode failed, sending as is", zap.String("key", obj.Key), zap.Error(err))
		return original
	}
	return visiondomain.Image{MediaType: "image/jpeg", Data: buf.Bytes()}
}
