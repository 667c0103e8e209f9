package app

import (
	"bytes"
	"context"
	"sync"

	"github.com/vk/flowgridgo/internal/catalog"
	"github.com/vk/flowgridgo/internal/client"
	"github.com/vk/flowgridgo/internal/model"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// scriptedClient fakes the executor for app-level tests. onSubmit decides
// what status events a submitted scenario produces.
type scriptedClient struct {
	mu        sync.Mutex
	events    chan client.Event
	submitted []*model.Scenario
	ran       []client.StepPayload
	catalog   catalog.Catalog
	report    any

	onSubmit func(sc *model.Scenario) []client.Event
}

func newScriptedClient(cat catalog.Catalog) *scriptedClient {
	return &scriptedClient{events: make(chan client.Event, 64), catalog: cat}
}

func (f *scriptedClient) ResetSession(context.Context, map[string]any) error { return nil }

func (f *scriptedClient) SubmitScenario(_ context.Context, sc *model.Scenario) error {
	f.mu.Lock()
	f.submitted = append(f.submitted, sc)
	onSubmit := f.onSubmit
	f.mu.Unlock()
	if onSubmit != nil {
		for _, ev := range onSubmit(sc) {
			f.events <- ev
		}
	}
	return nil
}

func (f *scriptedClient) RunStep(_ context.Context, p client.StepPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, p)
	return nil
}

func (f *scriptedClient) Events() <-chan client.Event { return f.events }

func (f *scriptedClient) GenerateReport(context.Context) (any, error) { return f.report, nil }

func (f *scriptedClient) Stop(context.Context) error { return nil }

func (f *scriptedClient) FetchCatalog(context.Context) (catalog.Catalog, error) {
	return f.catalog, nil
}

func (f *scriptedClient) Close() error { return nil }
