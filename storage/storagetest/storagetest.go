// Package storagetest provides Store doubles for package tests.
package storagetest

import (
	"context"
	"errors"
	"io"
	"sync"

	"govdocs/storage"
)

var ErrInjected = errors.New("injected storage failure")

// Flaky wraps a Store and fails Put once FailAfter successful writes have
// happened. A negative FailAfter never fails.
type Flaky struct {
	storage.Store

	mu        sync.Mutex
	FailAfter int
	puts      int
}

func NewFlaky(inner storage.Store, failAfter int) *Flaky {
	return &Flaky{Store: inner, FailAfter: failAfter}
}

func (f *Flaky) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	f.mu.Lock()
	fail := f.FailAfter >= 0 && f.puts >= f.FailAfter
	f.puts++
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.Store.Put(ctx, key, r, size, contentType)
}
