package fsio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client the backend calls; narrowed for tests.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3 serves s3:// URIs through the AWS SDK.
type S3 struct {
	client S3API
}

// NewS3 builds the backend from the ambient AWS configuration chain.
func NewS3(ctx context.Context) (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3{client: s3.NewFromConfig(cfg)}, nil
}

// NewS3WithClient wires an existing client, used by tests.
func NewS3WithClient(client S3API) *S3 {
	return &S3{client: client}
}

func splitS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid s3 uri %q", uri)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

func (s *S3) Exists(ctx context.Context, uri string) (bool, error) {
	bucket, key, err := splitS3URI(uri)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var notFound *s3types.NotFound
	if !errors.As(err, &notFound) {
		return false, fmt.Errorf("head s3://%s/%s: %w", bucket, key, err)
	}
	// No object at the exact key; a populated prefix still counts, the way
	// directory URIs do on a local filesystem.
	prefix := strings.TrimSuffix(key, "/") + "/"
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
	}
	return len(out.Contents) > 0, nil
}

// MakeDirs is a no-op: object stores have no directories.
func (s *S3) MakeDirs(context.Context, string) error {
	return nil
}

func (s *S3) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := splitS3URI(uri)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

func (s *S3) Create(_ context.Context, uri string) (io.WriteCloser, error) {
	bucket, key, err := splitS3URI(uri)
	if err != nil {
		return nil, err
	}
	return &s3Writer{s3: s, bucket: bucket, key: key}, nil
}

func (s *S3) Remove(ctx context.Context, uri string) error {
	bucket, key, err := splitS3URI(uri)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *S3) ListFiles(ctx context.Context, dirURI string) ([]string, error) {
	bucket, key, err := splitS3URI(dirURI)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(key, "/") + "/"

	var files []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range out.Contents {
			if obj.Key == nil || strings.HasSuffix(*obj.Key, "/") {
				continue
			}
			files = append(files, "s3://"+bucket+"/"+*obj.Key)
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}
	sort.Strings(files)
	return files, nil
}

func (s *S3) Checksums(ctx context.Context, uri string) (FileInfo, error) {
	r, err := s.Open(ctx, uri)
	if err != nil {
		return FileInfo{}, err
	}
	defer r.Close()
	return computeChecksums(uri, r)
}

// s3Writer buffers the object and uploads on Close. Step outputs are
// individually small enough that buffering beats multipart complexity.
type s3Writer struct {
	s3     *S3
	bucket string
	key    string
	buf    bytes.Buffer
	closed bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("write after close")
	}
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_, err := w.s3.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", w.bucket, w.key, err)
	}
	return nil
}
