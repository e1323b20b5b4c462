package persistence

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/getmockd/kbase/pkg/entity"
)

// S3API is the subset of the S3 client used for dumps.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Destination is a parsed dump target.
type Destination struct {
	// Scheme is "file" or "s3".
	Scheme string
	// Path is the filesystem path for file destinations.
	Path string
	// Bucket and Key locate s3 destinations.
	Bucket string
	Key    string
}

func (d Destination) String() string {
	if d.Scheme == "s3" {
		return "s3://" + d.Bucket + "/" + d.Key
	}
	return d.Path
}

// ParseDestination interprets a dump target. Strings starting with s3:// are
// object storage locations, anything else is a filesystem path.
func ParseDestination(dest string) (Destination, error) {
	if dest == "" {
		return Destination{}, fmt.Errorf("%w: empty path", ErrInvalidDestination)
	}
	if strings.HasPrefix(dest, "s3://") {
		u, err := url.Parse(dest)
		if err != nil {
			return Destination{}, fmt.Errorf("%w: %v", ErrInvalidDestination, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" || strings.HasSuffix(key, "/") {
			return Destination{}, fmt.Errorf("%w: %s needs a bucket and an object key", ErrInvalidDestination, dest)
		}
		return Destination{Scheme: "s3", Bucket: u.Host, Key: key}, nil
	}
	return Destination{Scheme: "file", Path: dest}, nil
}

// Dumper writes explicit dumps of the store. It never touches the automatic
// snapshot backend.
type Dumper struct {
	s3 S3API
}

// DumperOption configures a Dumper.
type DumperOption func(*Dumper)

// WithS3 enables s3:// destinations.
func WithS3(client S3API) DumperOption {
	return func(d *Dumper) {
		d.s3 = client
	}
}

// NewDumper creates a Dumper.
func NewDumper(opts ...DumperOption) *Dumper {
	d := &Dumper{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Check validates a destination without writing anything. A filesystem path
// must name its directory explicitly and that directory must exist.
func (d *Dumper) Check(dest string) error {
	target, err := ParseDestination(dest)
	if err != nil {
		return err
	}
	if target.Scheme == "s3" {
		if d.s3 == nil {
			return fmt.Errorf("%w: s3 destinations are not configured", ErrInvalidDestination)
		}
		return nil
	}

	dir := filepath.Dir(target.Path)
	if !strings.ContainsRune(target.Path, filepath.Separator) || dir == "" {
		return fmt.Errorf("%w: %q has no directory component", ErrInvalidDestination, dest)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: directory %s: %v", ErrInvalidDestination, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidDestination, dir)
	}
	return nil
}

// Dump writes c to dest. Call Check first to tell invalid destinations apart
// from I/O failures.
func (d *Dumper) Dump(ctx context.Context, dest string, c entity.Collections) error {
	target, err := ParseDestination(dest)
	if err != nil {
		return err
	}
	if target.Scheme == "file" {
		return WriteSnapshot(target.Path, c)
	}
	if d.s3 == nil {
		return fmt.Errorf("%w: s3 destinations are not configured", ErrInvalidDestination)
	}

	data, err := Encode(c)
	if err != nil {
		return err
	}
	_, err = d.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(target.Bucket),
		Key:         aws.String(target.Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/yaml"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", target, err)
	}
	return nil
}
