package fetch

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Scheme = "s3://"

// ObjectStorage is the subset of the S3 client used to read resumes.
type ObjectStorage interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config describes an S3-compatible bucket endpoint.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access-key-id"`
	SecretAccessKey string `mapstructure:"secret-access-key"`
	UsePathStyle    bool   `mapstructure:"use-path-style"`
}

// Enabled reports whether enough is configured to build a client.
func (c S3Config) Enabled() bool {
	return c.Endpoint != "" || c.AccessKeyID != ""
}

// NewS3Client builds a client for AWS S3 or any compatible store such as R2 or MinIO.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	loaders := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

func parseObjectReference(reference string) (bucket, key string, ok bool) {
	u, err := url.Parse(reference)
	if err != nil || u.Scheme != "s3" {
		return "", "", false
	}

	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	return bucket, key, bucket != "" && key != ""
}

func (f *Fetcher) retrieveObject(ctx context.Context, reference string) (*Document, error) {
	if f.storage == nil {
		return nil, genericError(reference, "object storage is not configured", nil)
	}

	bucket, key, ok := parseObjectReference(reference)
	if !ok {
		return nil, genericError(reference, "malformed object reference", nil)
	}

	out, err := f.storage.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, genericError(reference, "failed to get object", err)
	}
	defer out.Body.Close()

	if err := f.checkDeclaredSize(reference, aws.ToInt64(out.ContentLength)); err != nil {
		return nil, err
	}

	data, err := f.readLimited(reference, out.Body)
	if err != nil {
		return nil, err
	}

	return &Document{
		Reference: reference,
		Name:      path.Base(key),
		MimeType:  aws.ToString(out.ContentType),
		Data:      data,
	}, nil
}
