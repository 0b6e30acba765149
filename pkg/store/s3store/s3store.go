// Package s3store implements the store contract on top of Amazon S3,
// one object per key under a configurable prefix.
//
// Object bodies use the canonical JSON entry encoding, so a bucket
// written here can be read with any S3 tooling. S3 reads are strongly
// consistent, which keeps the read-after-write behavior the observation
// layer relies on.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	st := s3store.New(s3.NewFromConfig(cfg), "my-bucket", "keywatch/")
//	sess := keywatch.NewSession(st)
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/keywatch-dev/keywatch/pkg/store"
)

// API is the subset of the S3 client the store uses. *s3.Client
// implements it; tests substitute an in-memory fake.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ API = (*s3.Client)(nil)

// Store is an S3-backed Store implementation. It is safe for concurrent
// use and also satisfies the Enumerator contract.
//
// Every operation is one or more S3 calls; latency is that of the
// service. Callers that need snappy reads should keep hot values in
// observables, which re-read only when a change is published.
type Store struct {
	client API
	bucket string
	prefix string
	ctx    context.Context
}

// New creates an S3-backed store over the given bucket. All object keys
// are placed under prefix, which may be empty.
func New(client API, bucket, prefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		ctx:    context.Background(),
	}
}

// WithContext sets the context under which all S3 calls run. Deadlines
// and cancellation on it bound every store operation.
func (s *Store) WithContext(ctx context.Context) *Store {
	s.ctx = ctx
	return s
}

func (s *Store) objectKey(key string) string {
	return s.prefix + key
}

// getEntry fetches and decodes the object stored under key.
func (s *Store) getEntry(key string) (store.Entry, error) {
	out, err := s.client.GetObject(s.ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return store.Entry{}, store.ErrNotFound
		}
		return store.Entry{}, fmt.Errorf("s3store: get %q: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return store.Entry{}, fmt.Errorf("s3store: read %q: %w", key, err)
	}

	var e store.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return store.Entry{}, fmt.Errorf("s3store: decoding %q: %w", key, err)
	}
	return e, nil
}

// get returns the entry for key, enforcing its kind.
func (s *Store) get(key string, kind store.Kind) (store.Entry, error) {
	e, err := s.getEntry(key)
	if err != nil {
		return store.Entry{}, err
	}
	if e.Kind != kind {
		return store.Entry{}, fmt.Errorf("%w: key %q holds %s, not %s", store.ErrWrongKind, key, e.Kind, kind)
	}
	return e, nil
}

func (s *Store) set(key string, e store.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(s.ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3store: put %q: %w", key, err)
	}
	return nil
}

// listKeys pages through the bucket and returns every key under the
// prefix, with the prefix stripped.
func (s *Store) listKeys() ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	keys := []string{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(s.ctx)
		if err != nil {
			return nil, fmt.Errorf("s3store: list %s: %w", s.bucket, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			keys = append(keys, strings.TrimPrefix(*obj.Key, s.prefix))
		}
	}
	return keys, nil
}

// Keys returns every stored key. S3 lists in key order.
func (s *Store) Keys() ([]string, error) {
	return s.listKeys()
}

func (s *Store) GetBool(key string) (bool, error) {
	e, err := s.get(key, store.KindBool)
	return e.Bool, err
}

func (s *Store) SetBool(key string, value bool) error {
	return s.set(key, store.BoolEntry(value))
}

func (s *Store) GetInt(key string) (int64, error) {
	e, err := s.get(key, store.KindInt)
	return e.Int, err
}

func (s *Store) SetInt(key string, value int64) error {
	return s.set(key, store.IntEntry(value))
}

func (s *Store) GetFloat(key string) (float64, error) {
	e, err := s.get(key, store.KindFloat)
	return e.Float, err
}

func (s *Store) SetFloat(key string, value float64) error {
	return s.set(key, store.FloatEntry(value))
}

func (s *Store) GetString(key string) (string, error) {
	e, err := s.get(key, store.KindString)
	return e.Str, err
}

func (s *Store) SetString(key string, value string) error {
	return s.set(key, store.StringEntry(value))
}

func (s *Store) GetStringSlice(key string) ([]string, error) {
	e, err := s.get(key, store.KindStringSlice)
	if err != nil {
		return nil, err
	}
	return e.Slice, nil
}

func (s *Store) SetStringSlice(key string, value []string) error {
	return s.set(key, store.StringSliceEntry(value))
}

// Remove deletes the key. S3 deletes of absent objects succeed, which
// matches the contract.
func (s *Store) Remove(key string) error {
	_, err := s.client.DeleteObject(s.ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("s3store: delete %q: %w", key, err)
	}
	return nil
}

// Clear deletes every object under the prefix. Objects elsewhere in the
// bucket are untouched.
func (s *Store) Clear() error {
	keys, err := s.listKeys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.Remove(key); err != nil {
			return err
		}
	}
	return nil
}

// Entries lists the prefix and fetches every entry. Keys deleted
// between the list and the fetch are skipped.
func (s *Store) Entries() (map[string]store.Entry, error) {
	keys, err := s.listKeys()
	if err != nil {
		return nil, err
	}

	out := make(map[string]store.Entry, len(keys))
	for _, key := range keys {
		e, err := s.getEntry(key)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[key] = e
	}
	return out, nil
}

var (
	_ store.Store      = (*Store)(nil)
	_ store.Enumerator = (*Store)(nil)
)
