// Package artifacts uploads generated prediction files to S3-compatible
// object storage.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/aristath/latticefold/internal/config"
	"github.com/aristath/latticefold/internal/modules/export"
)

// uploadAPI is the part of manager.Uploader used here.
type uploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Uploader copies artifact files into a bucket under
// <prefix>/<job id>/<file name>.
type S3Uploader struct {
	uploader uploadAPI
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// NewS3Uploader builds an uploader from artifact configuration. Static
// credentials are used when both keys are set, otherwise the default AWS
// credential chain applies. A custom endpoint switches to path-style
// addressing for MinIO/R2-style services.
func NewS3Uploader(ctx context.Context, cfg config.ArtifactConfig, log zerolog.Logger) (*S3Uploader, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("artifact upload is not configured")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Uploader(manager.NewUploader(client), cfg.Bucket, cfg.Prefix, log), nil
}

func newS3Uploader(u uploadAPI, bucket, prefix string, log zerolog.Logger) *S3Uploader {
	return &S3Uploader{
		uploader: u,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		log:      log.With().Str("component", "s3_uploader").Logger(),
	}
}

// Upload sends every non-empty file path and returns the object keys in the
// order PDB, structure, convergence, report.
func (u *S3Uploader) Upload(ctx context.Context, jobID string, files export.Files) ([]string, error) {
	var keys []string
	for _, p := range []string{files.PDB, files.Structure, files.Convergence, files.Report} {
		if p == "" {
			continue
		}
		key, err := u.uploadFile(ctx, jobID, p)
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}

	u.log.Info().
		Str("job_id", jobID).
		Str("bucket", u.bucket).
		Int("objects", len(keys)).
		Msg("Artifacts uploaded")
	return keys, nil
}

func (u *S3Uploader) uploadFile(ctx context.Context, jobID, p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact %s: %w", p, err)
	}
	defer f.Close()

	key := path.Join(u.prefix, jobID, filepath.Base(p))
	_, err = u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(p)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to s3://%s/%s: %w", p, u.bucket, key, err)
	}
	return key, nil
}

// Put uploads body under <prefix>/<name> and returns the object key.
func (u *S3Uploader) Put(ctx context.Context, name string, body io.Reader) (string, error) {
	key := path.Join(u.prefix, name)
	_, err := u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType(name)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload s3://%s/%s: %w", u.bucket, key, err)
	}
	return key, nil
}

func contentType(p string) string {
	switch filepath.Ext(p) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".pdb":
		return "chemical/x-pdb"
	case ".gz":
		return "application/gzip"
	}
	return "application/octet-stream"
}
