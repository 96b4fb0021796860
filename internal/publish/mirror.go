package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"quantforge/internal/gguf"
)

type S3MirrorConfig struct {
	Bucket          string
	Prefix          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Mirror mirrors the eligible artifacts of a model directory to an
// S3-compatible object store under <prefix>/<model-name>/. Each run re-syncs
// the whole set, overwriting objects that already exist.
type S3Mirror struct {
	client   *s3.Client
	uploader *manager.Uploader
	layout   gguf.Layout
	cfg      S3MirrorConfig

	ensureBucket sync.Once
	bucketErr    error
}

var _ Publisher = (*S3Mirror)(nil)

func NewS3Mirror(cfg S3MirrorConfig, layout gguf.Layout) (*S3Mirror, error) {
	client, err := initializeS3Client(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize s3 client: %w", err)
	}

	return &S3Mirror{
		client:   client,
		uploader: manager.NewUploader(client),
		layout:   layout,
		cfg:      cfg,
	}, nil
}

func createS3Config(endpoint, region string, creds aws.CredentialsProvider) (aws.Config, error) {
	opts := []func(*aws_config.LoadOptions) error{}

	if endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) { // nolint:staticcheck
			return aws.Endpoint{ // nolint:staticcheck
				PartitionID:       "aws",
				URL:               endpoint,
				SigningRegion:     region,
				HostnameImmutable: true, // Important for MinIO
			}, nil
		})

		opts = append(opts, aws_config.WithEndpointResolverWithOptions(resolver)) // nolint:staticcheck
	}

	if region != "" {
		opts = append(opts, aws_config.WithRegion(region))
	}

	if creds != nil {
		opts = append(opts, aws_config.WithCredentialsProvider(creds))
	}

	return aws_config.LoadDefaultConfig(context.Background(), opts...)
}

func initializeS3Client(cfg S3MirrorConfig) (*s3.Client, error) {
	var creds aws.CredentialsProvider = nil
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		creds = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	awsCfg, err := createS3Config(cfg.Endpoint, cfg.Region, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Needed for MinIO which doesn't enforce bucket naming rules always
		o.UsePathStyle = true
	})

	return client, nil
}

func (m *S3Mirror) Name() string { return "s3-mirror" }

func (m *S3Mirror) Publish(ctx context.Context) error {
	m.ensureBucket.Do(func() { m.bucketErr = m.createBucket(ctx) })
	if m.bucketErr != nil {
		return m.bucketErr
	}

	var uploaded int
	err := filepath.WalkDir(m.layout.Dir(), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !eligibleArtifact(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(m.layout.Dir(), p)
		if err != nil {
			return err
		}
		if err := m.putFile(ctx, p, m.remoteKey(rel)); err != nil {
			return err
		}
		uploaded++
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mirror artifacts to s3://%s: %w", m.cfg.Bucket, err)
	}

	slog.Info("mirrored artifacts", "bucket", m.cfg.Bucket, "count", uploaded)
	return nil
}

func (m *S3Mirror) createBucket(ctx context.Context) error {
	_, err := m.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(m.cfg.Bucket),
	})
	if err != nil {
		var existErr *types.BucketAlreadyExists
		var ownedErr *types.BucketAlreadyOwnedByYou
		if errors.As(err, &existErr) || errors.As(err, &ownedErr) {
			slog.Info("bucket already exists", "bucket", m.cfg.Bucket)
			return nil
		}

		return fmt.Errorf("failed to create bucket %s: %w", m.cfg.Bucket, err)
	}

	slog.Info("bucket created", "bucket", m.cfg.Bucket)
	return nil
}

// remoteKey maps a path relative to the model directory to its object key,
// namespaced by the model's short name.
func (m *S3Mirror) remoteKey(rel string) string {
	return path.Join(m.cfg.Prefix, m.layout.Name, filepath.ToSlash(rel))
}

// eligibleArtifact reports whether a file name matches the published
// extensions. Pending files never do.
func eligibleArtifact(name string) bool {
	for _, pattern := range includePatterns {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (m *S3Mirror) putFile(ctx context.Context, filename, key string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer file.Close()

	_, err = m.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to s3://%s/%s: %w", filename, m.cfg.Bucket, key, err)
	}
	return nil
}
