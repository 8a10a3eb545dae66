package middleware

import (
	"context"
	"sync"

	"github.com/benvon/carbon-tracker/internal/models"
)

type fakeSettings struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	sets   int
}

func newFakeSettings(kv map[string]string) *fakeSettings {
	if kv == nil {
		kv = map[string]string{}
	}
	return &fakeSettings{values: kv}
}

func (f *fakeSettings) Get(_ context.Context, key string) (*models.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return nil, nil
	}
	return &models.Setting{Key: key, Value: v}, nil
}

func (f *fakeSettings) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	f.sets++
	return nil
}

func (f *fakeSettings) put(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
}

func (f *fakeSettings) value(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}
