package blobstore

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hairyhenderson/go-gitsmart/blobstore"

const (
	typeKey   = attribute.Key("blobstore.type")
	keyKey    = attribute.Key("blobstore.key")
	prefixKey = attribute.Key("blobstore.prefix")
	sizeKey   = attribute.Key("blobstore.bytes")
	countKey  = attribute.Key("blobstore.objects")
)

type tracedStore struct {
	store  Store
	tracer trace.Tracer
}

type urlStore interface {
	URL() string
}

// Traced wraps a Store so that every operation produces a trace span.
// If the wrapped store implements ConditionalPutter, so does the
// returned one.
//
// In order to report traces, an OTel [trace.TracerProvider] must first
// be set up; see the gitservd example in this repository's examples
// directory for one approach. A provider can optionally be passed with
// [WithTracerProvider].
func Traced(store Store, opts ...TraceOption) Store {
	cfg := traceConfig{}
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	if cfg.tp == nil {
		cfg.tp = otel.GetTracerProvider()
	}

	ts := &tracedStore{
		store:  store,
		tracer: cfg.tp.Tracer(tracerName),
	}

	if cp, ok := store.(ConditionalPutter); ok {
		return &tracedCASStore{tracedStore: ts, cp: cp}
	}

	return ts
}

func (t *tracedStore) attribs(kv ...attribute.KeyValue) trace.SpanStartEventOption {
	if us, ok := t.store.(urlStore); ok {
		kv = append(kv, attribute.String("blobstore.base_url", us.URL()))
	}

	kv = append(kv, typeKey.String(fmt.Sprintf("%T", t.store)))

	return trace.WithAttributes(kv...)
}

func (t *tracedStore) Put(ctx context.Context, key string, data []byte) error {
	ctx, span := t.tracer.Start(ctx, "blobstore.Put",
		t.attribs(keyKey.String(key), sizeKey.Int(len(data))))
	defer span.End()

	return recordError(span, t.store.Put(ctx, key, data))
}

func (t *tracedStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := t.tracer.Start(ctx, "blobstore.Get", t.attribs(keyKey.String(key)))
	defer span.End()

	data, err := t.store.Get(ctx, key)

	span.SetAttributes(sizeKey.Int(len(data)))

	return data, recordError(span, err)
}

func (t *tracedStore) List(ctx context.Context, prefix string) ([]Object, error) {
	ctx, span := t.tracer.Start(ctx, "blobstore.List", t.attribs(prefixKey.String(prefix)))
	defer span.End()

	objs, err := t.store.List(ctx, prefix)

	span.SetAttributes(countKey.Int(len(objs)))

	return objs, recordError(span, err)
}

type tracedCASStore struct {
	*tracedStore
	cp ConditionalPutter
}

var _ ConditionalPutter = (*tracedCASStore)(nil)

func (t *tracedCASStore) PutIf(ctx context.Context, key string, data, expect []byte) error {
	ctx, span := t.tracer.Start(ctx, "blobstore.PutIf",
		t.attribs(keyKey.String(key), sizeKey.Int(len(data))))
	defer span.End()

	return recordError(span, t.cp.PutIf(ctx, key, data, expect))
}

// recordError records the given error on the span, and returns it. It
// does not set the span's status to error.
func recordError(span trace.Span, err error) error {
	span.RecordError(err)

	return err
}
