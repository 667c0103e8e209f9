package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/flowgridgo/internal/catalog"
	"github.com/vk/flowgridgo/internal/ctxlog"
	"github.com/vk/flowgridgo/internal/model"
)

// Wire event names. Each command event has a paired response event; status
// events are pushed by the executor without a request.
const (
	eventSessionReset     = "session:reset"
	eventSessionReady     = "session:ready"
	eventScenarioSubmit   = "scenario:submit"
	eventScenarioAccepted = "scenario:accepted"
	eventStepRun          = "step:run"
	eventStepAccepted     = "step:accepted"
	eventStepStatus       = "step:status"
	eventRunDone          = "run:done"
	eventReportGenerate   = "report:generate"
	eventReportReady      = "report:ready"
	eventRunStop          = "run:stop"
	eventRunStopped       = "run:stopped"
	eventCatalogGet       = "catalog:get"
	eventCatalogData      = "catalog:data"
)

// eventBuffer absorbs status bursts while the orchestrator loop is busy.
const eventBuffer = 256

// Options configure the socket connection.
type Options struct {
	// URL is the executor endpoint, including the socket.io path.
	URL string

	// Namespace is the socket.io namespace, "/" when empty.
	Namespace string

	// Timeout bounds the initial connection and each command round-trip.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
}

// SocketClient is the socket.io implementation of Client.
type SocketClient struct {
	io      *socket.Socket
	timeout time.Duration

	events chan Event
	closed atomic.Bool

	// mu serializes command round-trips; the protocol pairs one response
	// event per command, so overlapping commands would steal each other's
	// responses.
	mu sync.Mutex
}

// Dial connects to the executor and starts listening for status events. It
// blocks until the connection is established or the timeout expires.
func Dial(ctx context.Context, opts Options) (*SocketClient, error) {
	logger := ctxlog.FromContext(ctx).With("component", "client", "url", opts.URL)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "/"
	}

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse executor URL: %w", err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	sockOpts := socket.DefaultOptions()
	sockOpts.SetPath(parsedURL.Path)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(namespace, sockOpts)

	c := &SocketClient{
		io:      io,
		timeout: timeout,
		events:  make(chan Event, eventBuffer),
	}

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to executor", "namespace", namespace, "sid", io.Id())
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if err, ok := errs[0].(error); ok {
				connected <- err
				return
			}
		}
		connected <- fmt.Errorf("connection refused")
	})

	io.On(types.EventName(eventStepStatus), func(data ...any) {
		ev, err := decodeEvent(firstArg(data))
		if err != nil {
			logger.Warn("Undecodable step status event dropped", "error", err)
			return
		}
		c.push(ev)
	})
	io.On(types.EventName(eventRunDone), func(data ...any) {
		ev, err := decodeEvent(firstArg(data))
		if err != nil {
			ev = Event{}
		}
		ev.Done = true
		c.push(ev)
	})

	io.Connect()

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case <-dialCtx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("timed out connecting to executor at %s", opts.URL)
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("failed to connect to executor: %w", err)
		}
	}
	return c, nil
}

// ResetSession clears remote state from a previous run and seeds the new
// session with the scenario's configuration.
func (c *SocketClient) ResetSession(ctx context.Context, config map[string]any) error {
	var payload any
	if len(config) > 0 {
		payload = map[string]any{"config": config}
	}
	_, err := c.request(ctx, eventSessionReset, payload, eventSessionReady)
	return err
}

// SubmitScenario ships the scenario document for a batch run.
func (c *SocketClient) SubmitScenario(ctx context.Context, sc *model.Scenario) error {
	doc, err := sc.Marshal()
	if err != nil {
		return err
	}
	_, err = c.request(ctx, eventScenarioSubmit, map[string]any{"document": string(doc)}, eventScenarioAccepted)
	return err
}

// RunStep hands a single step to the executor.
func (c *SocketClient) RunStep(ctx context.Context, step StepPayload) error {
	_, err := c.request(ctx, eventStepRun, step, eventStepAccepted)
	return err
}

// Events returns the stream of remote status updates.
func (c *SocketClient) Events() <-chan Event {
	return c.events
}

// GenerateReport asks the executor for the current session's run report.
func (c *SocketClient) GenerateReport(ctx context.Context) (any, error) {
	return c.request(ctx, eventReportGenerate, nil, eventReportReady)
}

// Stop aborts the in-flight run.
func (c *SocketClient) Stop(ctx context.Context) error {
	_, err := c.request(ctx, eventRunStop, nil, eventRunStopped)
	return err
}

// FetchCatalog retrieves the operations the executor supports.
func (c *SocketClient) FetchCatalog(ctx context.Context) (catalog.Catalog, error) {
	payload, err := c.request(ctx, eventCatalogGet, nil, eventCatalogData)
	if err != nil {
		return nil, err
	}
	return catalog.FromWireValue(payload)
}

// Close disconnects and closes the event stream.
func (c *SocketClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.io.Disconnect()
	close(c.events)
	return nil
}

// request emits a command and waits for its paired response event. A response
// payload carrying an "error" field fails the command.
func (c *SocketClient) request(ctx context.Context, command string, payload any, response string) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	done := make(chan any, 1)
	c.io.Once(types.EventName(response), func(data ...any) {
		done <- firstArg(data)
	})

	if payload == nil {
		c.io.Emit(command)
	} else {
		c.io.Emit(command, payload)
	}

	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	select {
	case <-opCtx.Done():
		return nil, fmt.Errorf("timed out waiting for %q after %q", response, command)
	case raw := <-done:
		if err := remoteError(raw); err != nil {
			return nil, fmt.Errorf("%s failed: %w", command, err)
		}
		return raw, nil
	}
}

// push hands a decoded event to the consumer without blocking. A socket.io
// handler can still fire while Close is closing the channel; the recover turns
// that shutdown race into a dropped event.
func (c *SocketClient) push(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			c.closed.Store(true)
		}
	}()

	if c.closed.Load() {
		return
	}
	select {
	case c.events <- ev:
	default:
	}
}

func firstArg(data []any) any {
	if len(data) > 0 {
		return data[0]
	}
	return nil
}

// remoteError extracts an executor-signalled failure from a response payload.
func remoteError(payload any) error {
	m, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	if msg, ok := m["error"].(string); ok && msg != "" {
		return fmt.Errorf("%s", msg)
	}
	return nil
}

// decodeEvent converts a raw socket.io payload into an Event. The payload
// arrives as generic JSON; a marshal round-trip maps it onto the struct.
func decodeEvent(payload any) (Event, error) {
	if payload == nil {
		return Event{}, fmt.Errorf("empty event payload")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to re-encode event payload: %w", err)
	}
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, fmt.Errorf("failed to decode event payload: %w", err)
	}
	return ev, nil
}
