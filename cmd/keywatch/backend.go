package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/keywatch-dev/keywatch/pkg/store"
	"github.com/keywatch-dev/keywatch/pkg/store/badgerstore"
	"github.com/keywatch-dev/keywatch/pkg/store/s3store"
)

// backendFlags are the store selection flags shared by every command
// that opens a backend.
type backendFlags struct {
	backend string
	path    string
	bucket  string
	prefix  string
	region  string
}

func (f *backendFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.backend, "backend", "b", "badger", "Store backend: memory, badger or s3")
	cmd.Flags().StringVar(&f.path, "path", defaultDBPath(), "Database directory (badger backend)")
	cmd.Flags().StringVar(&f.bucket, "bucket", "", "Bucket name (s3 backend)")
	cmd.Flags().StringVar(&f.prefix, "prefix", "keywatch/", "Object key prefix (s3 backend)")
	cmd.Flags().StringVar(&f.region, "region", "", "AWS region (s3 backend, defaults to SDK resolution)")
}

// open resolves the flags to a store. The returned closer releases the
// backend; for backends with nothing to release it is a no-op.
func (f *backendFlags) open(ctx context.Context) (store.Store, io.Closer, error) {
	switch f.backend {
	case "memory":
		return store.NewMemoryStore(), nopCloser{}, nil

	case "badger":
		cfg := badgerstore.DefaultConfig()
		cfg.Path = f.path
		st, err := badgerstore.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil

	case "s3":
		if f.bucket == "" {
			return nil, nil, fmt.Errorf("s3 backend requires --bucket")
		}
		var opts []func(*awsconfig.LoadOptions) error
		if f.region != "" {
			opts = append(opts, awsconfig.WithRegion(f.region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("load AWS config: %w", err)
		}
		st := s3store.New(s3.NewFromConfig(awsCfg), f.bucket, f.prefix).WithContext(ctx)
		return st, nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q (memory, badger or s3)", f.backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// defaultDBPath returns the default badger directory under the home
// directory, falling back to the working directory.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".keywatch"
	}
	return filepath.Join(home, ".keywatch", "db")
}

// writeEntry stores an entry through the setter matching its kind.
func writeEntry(st store.Store, key string, e store.Entry) error {
	switch e.Kind {
	case store.KindBool:
		return st.SetBool(key, e.Bool)
	case store.KindInt:
		return st.SetInt(key, e.Int)
	case store.KindFloat:
		return st.SetFloat(key, e.Float)
	case store.KindString:
		return st.SetString(key, e.Str)
	case store.KindStringSlice:
		return st.SetStringSlice(key, e.Slice)
	default:
		return fmt.Errorf("cannot store entry of %s", e.Kind)
	}
}
