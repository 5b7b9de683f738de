package preview

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/refx/internal/config"
	"github.com/vango-dev/refx/internal/errors"
)

// maxTemplateSize bounds a template read from any location.
const maxTemplateSize = 4 << 20

// Loader reads template bytes from a location.
type Loader interface {
	Load(ctx context.Context, location string) ([]byte, error)
}

// FileLoader reads templates from the local filesystem.
type FileLoader struct{}

// Load reads the file at location.
func (FileLoader) Load(_ context.Context, location string) ([]byte, error) {
	f, err := os.Open(location)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f)
}

// ObjectGetter is the part of *s3.Client the S3 loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Loader reads templates addressed as s3://bucket/key.
type S3Loader struct {
	client ObjectGetter
	bucket string
	prefix string
}

// NewS3Loader wraps client. bucket is used when a location omits it and
// prefix is prepended to every key.
func NewS3Loader(client ObjectGetter, bucket, prefix string) *S3Loader {
	return &S3Loader{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// NewS3Client builds an S3 client from storage config. Credentials come from
// AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY; without them requests are
// anonymous.
func NewS3Client(cfg config.S3Config) *s3.Client {
	return s3.New(s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.UsePathStyle,
		Credentials:  envCredentials(),
	}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
}

func envCredentials() aws.CredentialsProvider {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.AnonymousCredentials{}
	}
	token := os.Getenv("AWS_SESSION_TOKEN")
	return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    token,
			Source:          "environment",
		}, nil
	})
}

// Load fetches the object addressed by location.
func (l *S3Loader) Load(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := ParseS3URL(location)
	if err != nil {
		return nil, err
	}
	if bucket == "" {
		bucket = l.bucket
	}
	if bucket == "" {
		return nil, fmt.Errorf("preview: no bucket for %q", location)
	}
	if l.prefix != "" {
		key = path.Join(l.prefix, key)
	}

	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("preview: get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	return readLimited(out.Body)
}

// ParseS3URL splits s3://bucket/key. "s3:///key" leaves the bucket empty.
func ParseS3URL(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", fmt.Errorf("preview: %q is not an s3:// location", location)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", "", fmt.Errorf("preview: %q has no object key", location)
	}
	return bucket, key, nil
}

// IsRemote reports whether location names remote storage.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "s3://")
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxTemplateSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxTemplateSize {
		return nil, fmt.Errorf("preview: template exceeds %d bytes", maxTemplateSize)
	}
	return data, nil
}

// Open loads and parses the template at location. s3:// locations use
// remote when it is non-nil. Failures are E190 or E191 errors.
func Open(ctx context.Context, location string, remote Loader) (*Template, error) {
	var loader Loader = FileLoader{}
	if IsRemote(location) {
		if remote == nil {
			return nil, errors.New("E190").
				WithDetailf("%s: remote storage is not configured", location).
				WithSuggestion("Set storage.s3.bucket in refx.yaml.")
		}
		loader = remote
	}

	data, err := loader.Load(ctx, location)
	if err != nil {
		return nil, errors.New("E190").WithDetail(location).Wrap(err)
	}
	return Parse(location, string(data))
}
