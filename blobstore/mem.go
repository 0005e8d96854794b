package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Mem is an in-memory Store. It implements ConditionalPutter with a
// genuine compare-and-swap, so it is the reference store for
// concurrency-sensitive tests and for the mem:// scheme.
//
// The zero value is not usable; call NewMem.
type Mem struct {
	mu   sync.RWMutex
	objs map[string]memObject
	last time.Time
}

type memObject struct {
	data    []byte
	modTime time.Time
}

var (
	_ Store             = (*Mem)(nil)
	_ ConditionalPutter = (*Mem)(nil)
)

// NewMem returns an empty in-memory store.
func NewMem() *Mem {
	return &Mem{objs: map[string]memObject{}}
}

// now returns a strictly increasing timestamp, so that successive
// writes are totally ordered even on coarse clocks.
func (m *Mem) now() time.Time {
	t := time.Now()
	if !t.After(m.last) {
		t = m.last.Add(time.Nanosecond)
	}

	m.last = t

	return t
}

func (m *Mem) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objs[key] = memObject{data: bytes.Clone(data), modTime: m.now()}

	return nil
}

func (m *Mem) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objs[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, ErrNotExist)
	}

	return bytes.Clone(obj.data), nil
}

func (m *Mem) List(_ context.Context, prefix string) ([]Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var objs []Object

	for key, obj := range m.objs {
		if strings.HasPrefix(key, prefix) {
			objs = append(objs, Object{Key: key, ModTime: obj.modTime})
		}
	}

	sort.Slice(objs, func(i, j int) bool { return objs[i].Key < objs[j].Key })

	return objs, nil
}

// PutIf writes data under key only if the stored bytes still equal
// expect (nil expect: the key must not exist). The comparison and the
// write happen under one lock, so concurrent conditional writers
// cannot both succeed.
func (m *Mem) PutIf(_ context.Context, key string, data, expect []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objs[key]

	switch {
	case expect == nil && ok:
		return fmt.Errorf("put %s: %w", key, ErrPrecondition)
	case expect != nil && !ok:
		return fmt.Errorf("put %s: %w", key, ErrPrecondition)
	case expect != nil && !bytes.Equal(obj.data, expect):
		return fmt.Errorf("put %s: %w", key, ErrPrecondition)
	}

	m.objs[key] = memObject{data: bytes.Clone(data), modTime: m.now()}

	return nil
}
