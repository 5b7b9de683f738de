package preview

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/refx/internal/config"
	rerrors "github.com/vango-dev/refx/internal/errors"
)

type fakeS3 struct {
	objects map[string]string
	bucket  string
	key     string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = aws.ToString(in.Bucket), aws.ToString(in.Key)
	body, ok := f.objects[f.bucket+"/"+f.key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		in          string
		bucket, key string
		wantErr     bool
	}{
		{in: "s3://site/pages/a.html", bucket: "site", key: "pages/a.html"},
		{in: "s3:///a.html", key: "a.html"},
		{in: "s3://site/", wantErr: true},
		{in: "https://site/a.html", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			bucket, key, err := ParseS3URL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseS3URL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Errorf("ParseS3URL() = %q, %q", bucket, key)
			}
		})
	}
}

func TestS3LoaderAppliesDefaults(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{"def/tpl/a.html": "<p>${x}</p>"}}
	l := NewS3Loader(fake, "def", "/tpl/")

	data, err := l.Load(context.Background(), "s3:///a.html")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(data) != "<p>${x}</p>" {
		t.Errorf("Load() = %q", data)
	}
	if fake.bucket != "def" || fake.key != "tpl/a.html" {
		t.Errorf("requested %s/%s", fake.bucket, fake.key)
	}
}

func TestS3LoaderWithoutBucket(t *testing.T) {
	l := NewS3Loader(&fakeS3{}, "", "")
	if _, err := l.Load(context.Background(), "s3:///a.html"); err == nil {
		t.Error("Load() without a bucket should fail")
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	if err := os.WriteFile(path, []byte(`<h1>${title}</h1>`), 0o644); err != nil {
		t.Fatal(err)
	}

	tpl, err := Open(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(tpl.Placeholders) != 1 || tpl.Path != path {
		t.Errorf("Open() = %+v", tpl)
	}

	remote := NewS3Loader(&fakeS3{objects: map[string]string{"b/k.html": "<p>${fn:}</p>"}}, "", "")
	_, err = Open(context.Background(), "s3://b/k.html", remote)
	if !errors.Is(err, rerrors.New("E191")) {
		t.Errorf("Open(bad remote) error = %v, want E191", err)
	}
}

func TestOpenErrors(t *testing.T) {
	tests := []struct {
		name     string
		location string
		remote   Loader
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.html"), nil},
		{"remote not configured", "s3://b/k.html", nil},
		{"missing object", "s3://b/k.html", NewS3Loader(&fakeS3{}, "", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.location, tt.remote)
			if !errors.Is(err, rerrors.New("E190")) {
				t.Errorf("Open() error = %v, want E190", err)
			}
		})
	}
}

func TestReadLimited(t *testing.T) {
	big := bytes.Repeat([]byte("a"), maxTemplateSize+1)
	if _, err := readLimited(bytes.NewReader(big)); err == nil {
		t.Error("readLimited() accepted an oversized template")
	}
}

func TestNewS3Client(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	client := NewS3Client(config.S3Config{Region: "us-east-1", Endpoint: "http://localhost:9000", UsePathStyle: true})
	opts := client.Options()
	if opts.Region != "us-east-1" || !opts.UsePathStyle {
		t.Errorf("Options() = %+v", opts)
	}
	if aws.ToString(opts.BaseEndpoint) != "http://localhost:9000" {
		t.Errorf("BaseEndpoint = %q", aws.ToString(opts.BaseEndpoint))
	}
	if _, ok := opts.Credentials.(aws.AnonymousCredentials); !ok {
		t.Errorf("Credentials = %T, want anonymous", opts.Credentials)
	}
}
