package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/keywatch-dev/keywatch/pkg/store"
)

// fakeS3 is an in-memory bucket implementing the API subset. When
// pageSize is set, listings are split so the paginator has to loop.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	pageSize int
	fail     error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.objects[*params.Key] = data
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	data, ok := f.objects[*params.Key]
	f.mu.Unlock()
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	delete(f.objects, *params.Key)
	f.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if params.Prefix == nil || strings.HasPrefix(k, *params.Prefix) {
			keys = append(keys, k)
		}
	}
	f.mu.Unlock()
	sort.Strings(keys)

	// The continuation token marks the last key of the previous page.
	if params.ContinuationToken != nil {
		after := *params.ContinuationToken
		for len(keys) > 0 && keys[0] <= after {
			keys = keys[1:]
		}
	}

	out := &s3.ListObjectsV2Output{}
	page := keys
	if f.pageSize > 0 && len(keys) > f.pageSize {
		page = keys[:f.pageSize]
		out.NextContinuationToken = aws.String(page[len(page)-1])
	}
	for _, k := range page {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail
}

func newTestStore(t *testing.T) (*Store, *fakeS3) {
	t.Helper()
	fake := newFakeS3()
	return New(fake, "bucket", "keywatch/"), fake
}

func TestRoundTripAllKinds(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.SetBool("b", true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	if err := s.SetInt("i", -42); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if err := s.SetFloat("f", 2.5); err != nil {
		t.Fatalf("SetFloat: %v", err)
	}
	if err := s.SetString("s", "hello"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := s.SetStringSlice("l", []string{"a", "b"}); err != nil {
		t.Fatalf("SetStringSlice: %v", err)
	}

	if v, err := s.GetBool("b"); err != nil || v != true {
		t.Errorf("GetBool = %v, %v", v, err)
	}
	if v, err := s.GetInt("i"); err != nil || v != -42 {
		t.Errorf("GetInt = %v, %v", v, err)
	}
	if v, err := s.GetFloat("f"); err != nil || v != 2.5 {
		t.Errorf("GetFloat = %v, %v", v, err)
	}
	if v, err := s.GetString("s"); err != nil || v != "hello" {
		t.Errorf("GetString = %q, %v", v, err)
	}
	if v, err := s.GetStringSlice("l"); err != nil || !reflect.DeepEqual(v, []string{"a", "b"}) {
		t.Errorf("GetStringSlice = %v, %v", v, err)
	}
}

func TestObjectLayout(t *testing.T) {
	s, fake := newTestStore(t)
	if err := s.SetInt("volume", 7); err != nil {
		t.Fatalf("SetInt: %v", err)
	}

	// One object per key: prefixed key, canonical JSON body.
	body, ok := fake.objects["keywatch/volume"]
	if !ok {
		t.Fatalf("object not stored under prefix; have %v", fake.objects)
	}
	if got, want := string(body), `{"type":"int","value":7}`; got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
}

func TestGetAbsent(t *testing.T) {
	s, _ := newTestStore(t)

	if _, err := s.GetString("missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWrongKind(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.SetInt("n", 7); err != nil {
		t.Fatalf("SetInt: %v", err)
	}

	_, err := s.GetString("n")
	if !errors.Is(err, store.ErrWrongKind) {
		t.Errorf("expected ErrWrongKind, got %v", err)
	}
	if errors.Is(err, store.ErrNotFound) {
		t.Errorf("wrong kind must not read as ErrNotFound")
	}
}

func TestKeysStripPrefix(t *testing.T) {
	s, fake := newTestStore(t)
	s.SetString("zebra", "z")
	s.SetString("apple", "a")

	// An object outside the prefix belongs to someone else.
	fake.objects["other/thing"] = []byte(`{"type":"bool","value":true}`)

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	want := []string{"apple", "zebra"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys = %v, want %v", keys, want)
	}
}

func TestKeysPaginates(t *testing.T) {
	s, fake := newTestStore(t)
	fake.pageSize = 2

	want := []string{"a", "b", "c", "d", "e"}
	for _, k := range want {
		if err := s.SetString(k, k); err != nil {
			t.Fatalf("SetString %s: %v", k, err)
		}
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys = %v, want %v", keys, want)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.SetString("k", "v"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	if err := s.Remove("k"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.GetString("k"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after Remove, got %v", err)
	}
	if err := s.Remove("k"); err != nil {
		t.Errorf("Remove of absent key: %v", err)
	}
}

func TestClearKeepsForeignObjects(t *testing.T) {
	s, fake := newTestStore(t)
	s.SetString("a", "1")
	s.SetString("b", "2")
	fake.objects["other/thing"] = []byte("not ours")

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys after Clear: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Keys after Clear = %v, want empty", keys)
	}
	if _, ok := fake.objects["other/thing"]; !ok {
		t.Error("Clear removed an object outside the prefix")
	}
}

func TestEntries(t *testing.T) {
	s, _ := newTestStore(t)
	s.SetBool("b", true)
	s.SetStringSlice("l", []string{"x", "y"})

	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Entries = %d entries, want 2", len(entries))
	}
	if e := entries["b"]; e.Kind != store.KindBool || !e.Bool {
		t.Errorf("entries[b] = %+v, want bool true", e)
	}
	if e := entries["l"]; e.Kind != store.KindStringSlice || !reflect.DeepEqual(e.Slice, []string{"x", "y"}) {
		t.Errorf("entries[l] = %+v, want [x y]", e)
	}
}

func TestContextBoundsOperations(t *testing.T) {
	fake := newFakeS3()
	ctx, cancel := context.WithCancel(context.Background())
	s := New(fake, "bucket", "keywatch/").WithContext(ctx)

	if err := s.SetString("k", "v"); err != nil {
		t.Fatalf("SetString before cancel: %v", err)
	}

	cancel()
	if _, err := s.GetString("k"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := s.SetString("k", "v2"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestHardErrorsPropagate(t *testing.T) {
	s, fake := newTestStore(t)
	errBoom := errors.New("throttled")
	fake.fail = errBoom

	if _, err := s.GetString("k"); !errors.Is(err, errBoom) {
		t.Errorf("GetString error = %v, want wrapped errBoom", err)
	}
	if _, err := s.Keys(); !errors.Is(err, errBoom) {
		t.Errorf("Keys error = %v, want wrapped errBoom", err)
	}
	if err := s.SetBool("k", true); !errors.Is(err, errBoom) {
		t.Errorf("SetBool error = %v, want wrapped errBoom", err)
	}
}
