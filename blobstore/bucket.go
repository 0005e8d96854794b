package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"gocloud.dev/blob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
	"gocloud.dev/gcp"

	// register the azblob:// and file:// schemes with the default mux
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
)

// Bucket is a Store backed by a gocloud.dev blob bucket.
type Bucket struct {
	bucket  *blob.Bucket
	base    *url.URL
	hclient *http.Client
	root    string
}

var _ Store = (*Bucket)(nil)

// OpenBucket provides a Store backed by the blob storage bucket at the
// given URL. The schemes "s3", "gs", "azblob" and "file" are
// supported; for the remote schemes, the URL path roots the store at a
// key prefix within the bucket.
func OpenBucket(ctx context.Context, u *url.URL, opts ...BucketOption) (*Bucket, error) {
	b := &Bucket{
		base:    u,
		hclient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(b)
	}

	var root string

	switch u.Scheme {
	case s3blob.Scheme, gcsblob.Scheme, "azblob":
		root = strings.Trim(u.Path, "/")
	case "file":
		// the path is the bucket directory itself, not a key prefix
	default:
		return nil, fmt.Errorf("invalid URL scheme %q", u.Scheme)
	}

	opener, err := b.newOpener(ctx, u.Scheme)
	if err != nil {
		return nil, fmt.Errorf("bucket opener: %w", err)
	}

	cu := cleanCdkURL(*u)

	bucket, err := opener.OpenBucketURL(ctx, &cu)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}

	b.bucket = bucket
	b.root = root

	return b, nil
}

// A BucketOption adjusts how OpenBucket reaches the bucket.
type BucketOption func(*Bucket)

// WithHTTPClient sets the HTTP client used for bucket access; handy
// for pointing tests at fake backends.
func WithHTTPClient(client *http.Client) BucketOption {
	return func(b *Bucket) {
		if client != nil {
			b.hclient = client
		}
	}
}

// URL returns the base URL the store was opened with.
func (b *Bucket) URL() string {
	return b.base.String()
}

// Close releases the underlying bucket resources.
func (b *Bucket) Close() error {
	return b.bucket.Close()
}

func (b *Bucket) key(key string) string {
	return path.Join(b.root, key)
}

func (b *Bucket) Put(ctx context.Context, key string, data []byte) error {
	if err := b.bucket.WriteAll(ctx, b.key(key), data, nil); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	return nil
}

func (b *Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.bucket.ReadAll(ctx, b.key(key))
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, fmt.Errorf("get %s: %w", key, ErrNotExist)
	}

	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	return data, nil
}

func (b *Bucket) List(ctx context.Context, prefix string) ([]Object, error) {
	full := prefix
	if b.root != "" {
		full = b.root + "/" + prefix
	}

	iter := b.bucket.List(&blob.ListOptions{Prefix: full})

	var objs []Object

	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			return objs, nil
		}

		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}

		key := obj.Key
		if b.root != "" {
			key = strings.TrimPrefix(key, b.root+"/")
		}

		objs = append(objs, Object{Key: key, ModTime: obj.ModTime})
	}
}

// create the correct kind of blob.BucketURLOpener for the given scheme
func (b *Bucket) newOpener(ctx context.Context, scheme string) (blob.BucketURLOpener, error) {
	switch scheme {
	case s3blob.Scheme:
		// see https://gocloud.dev/concepts/urls/#muxes
		return &s3blob.URLOpener{ConfigProvider: b.initS3Session()}, nil
	case gcsblob.Scheme:
		if os.Getenv("GOOGLE_ANON") == "true" {
			return &gcsblob.URLOpener{
				Client: gcp.NewAnonymousHTTPClient(b.hclient.Transport),
			}, nil
		}

		creds, err := gcp.DefaultCredentials(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve GCP credentials: %w", err)
		}

		client, err := gcp.NewHTTPClient(
			b.hclient.Transport,
			gcp.CredentialsTokenSource(creds))
		if err != nil {
			return nil, fmt.Errorf("failed to create GCP HTTP client: %w", err)
		}

		return &gcsblob.URLOpener{Client: client}, nil
	default:
		return blob.DefaultURLMux(), nil
	}
}

func (b *Bucket) initS3Session() *session.Session {
	config := aws.NewConfig()
	config = config.WithHTTPClient(b.hclient)

	if os.Getenv("AWS_ANON") == "true" {
		config = config.WithCredentials(credentials.AnonymousCredentials)
	}

	config = config.WithCredentialsChainVerboseErrors(true)

	return session.Must(session.NewSessionWithOptions(session.Options{
		Config:            *config,
		SharedConfigState: session.SharedConfigEnable,
	}))
}

// copy/sanitize the URL for the Go CDK - it doesn't like params it
// can't parse
func cleanCdkURL(u url.URL) url.URL {
	keep := map[string][]string{
		s3blob.Scheme:  {"region", "endpoint", "disableSSL", "s3ForcePathStyle"},
		gcsblob.Scheme: {"access_id", "private_key_path"},
		"azblob":       {"domain"},
	}

	allowed, ok := keep[u.Scheme]
	if !ok {
		return u
	}

	q := u.Query()

	for param := range q {
		found := false

		for _, a := range allowed {
			if param == a {
				found = true
			}
		}

		if !found {
			q.Del(param)
		}
	}

	if u.Scheme == s3blob.Scheme {
		if q.Get("endpoint") == "" && os.Getenv("AWS_S3_ENDPOINT") != "" {
			q.Set("endpoint", os.Getenv("AWS_S3_ENDPOINT"))
		}

		if q.Get("region") == "" {
			region := os.Getenv("AWS_REGION")
			if region == "" {
				region = os.Getenv("AWS_DEFAULT_REGION")
			}

			if region != "" {
				q.Set("region", region)
			}
		}
	}

	u.RawQuery = q.Encode()

	return u
}
