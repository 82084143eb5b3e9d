package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	appconfig "invitation-platform/internal/config"
	"invitation-platform/internal/models"
)

const (
	maxCardImageSize = 10 << 20 // 10 MB
	thumbnailWidth   = 480
)

// UploadResult carries the stored object keys and public URLs for an uploaded
// invitation card.
type UploadResult struct {
	Key          string
	URL          string
	ThumbnailKey string
	ThumbnailURL string
}

// R2Service stores invitation card images in Cloudflare R2
type R2Service struct {
	client   *s3.Client
	uploader *manager.Uploader
	config   appconfig.R2Config
	log      zerolog.Logger
}

// NewR2Service creates a new R2 storage service
func NewR2Service(cfg appconfig.R2Config, log zerolog.Logger) (*R2Service, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("R2 credentials not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		} else {
			o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
		}
		o.UsePathStyle = true
	})

	return &R2Service{
		client:   client,
		uploader: manager.NewUploader(client),
		config:   cfg,
		log:      log.With().Str("component", "storage").Logger(),
	}, nil
}

// UploadCardImage validates, stores and thumbnails an invitation card image.
// Accepts JPEG, PNG and WebP up to 10 MB; the thumbnail is re-encoded as JPEG.
func (r *R2Service) UploadCardImage(file multipart.File, header *multipart.FileHeader, eventID int) (*UploadResult, error) {
	if header.Size > maxCardImageSize {
		return nil, &models.ValidationError{Field: "card_image", Message: "card image must be 10MB or smaller"}
	}

	data, err := io.ReadAll(io.LimitReader(file, maxCardImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > maxCardImageSize {
		return nil, &models.ValidationError{Field: "card_image", Message: "card image must be 10MB or smaller"}
	}

	contentType := detectImageType(data)
	if contentType == "" {
		return nil, &models.ValidationError{Field: "card_image", Message: "card image must be a JPEG, PNG or WebP file"}
	}

	ctx := context.TODO()
	key := fmt.Sprintf("cards/%d/%d-card%s", eventID, time.Now().Unix(), extensionFor(contentType))

	if err := r.upload(ctx, key, bytes.NewReader(data), contentType, int64(len(data))); err != nil {
		return nil, err
	}

	result := &UploadResult{
		Key: key,
		URL: r.GetURL(key),
	}

	// WebP decoding is not supported by the resizer, so webp cards ship
	// without a thumbnail.
	if thumb, err := r.makeThumbnail(data); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("thumbnail generation failed")
	} else if thumb != nil {
		thumbKey := strings.TrimSuffix(key, extensionFor(contentType)) + "-thumb.jpg"
		if err := r.upload(ctx, thumbKey, bytes.NewReader(thumb), "image/jpeg", int64(len(thumb))); err != nil {
			r.log.Warn().Err(err).Str("key", thumbKey).Msg("thumbnail upload failed")
		} else {
			result.ThumbnailKey = thumbKey
			result.ThumbnailURL = r.GetURL(thumbKey)
		}
	}

	r.log.Info().Str("key", key).Int("size", len(data)).Msg("card image uploaded")
	return result, nil
}

func (r *R2Service) upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) error {
	key = strings.TrimPrefix(key, "/")

	_, err := r.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.config.BucketName),
		Key:           aws.String(key),
		Body:          reader,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		CacheControl:  aws.String("public, max-age=31536000"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to R2: %w", err)
	}
	return nil
}

// Delete removes a stored object
func (r *R2Service) Delete(key string) error {
	key = strings.TrimPrefix(key, "/")

	_, err := r.client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
		Bucket: aws.String(r.config.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from R2: %w", err)
	}
	return nil
}

// GetURL returns the public URL for a stored object
func (r *R2Service) GetURL(key string) string {
	key = strings.TrimPrefix(key, "/")
	if r.config.PublicURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(r.config.PublicURL, "/"), key)
	}
	return fmt.Sprintf("https://pub-%s.r2.dev/%s", r.config.AccountID, key)
}

func (r *R2Service) makeThumbnail(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// webp has no stdlib decoder registered
		return nil, nil
	}

	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(82)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
