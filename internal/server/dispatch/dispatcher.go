package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/playerhub/internal/clock"
	"github.com/dmitrijs2005/playerhub/internal/common"
	"github.com/dmitrijs2005/playerhub/internal/logging"
	"github.com/google/uuid"
)

var (
	errDirectTimeout   = errors.New("direct call timed out")
	errFallbackTimeout = errors.New("enqueue timed out")
)

// DirectResponse is what a player returns from a direct call.
type DirectResponse struct {
	Status  int
	Payload map[string]any
}

// Invoker performs the low-latency call against a player endpoint.
type Invoker interface {
	Invoke(ctx context.Context, endpoint, method string, payload map[string]any) (*DirectResponse, error)
}

// Message is the durable form of a command.
type Message struct {
	ID        string
	Command   string
	Payload   map[string]any
	Timestamp time.Time
}

// Queue stores messages for delivery when the player reconnects. The
// returned id is the queue's own entry id.
type Queue interface {
	Enqueue(ctx context.Context, deviceID string, msg Message) (string, error)
}

// Request addresses one command. Endpoint may be empty when the device
// never registered for direct calls.
type Request struct {
	DeviceID string
	Endpoint string
	Command  string
	Payload  map[string]any
}

// Result is reported back to the caller. MethodStatus is set only for
// direct delivery.
type Result struct {
	OK           bool           `json:"ok"`
	DeviceID     string         `json:"deviceId"`
	Command      string         `json:"command"`
	Payload      map[string]any `json:"payload"`
	MessageID    string         `json:"messageId"`
	MethodStatus *int           `json:"methodStatus,omitempty"`
	Mode         string         `json:"mode"`
}

type Options struct {
	DirectTimeout   time.Duration
	FallbackTimeout time.Duration
}

type Dispatcher struct {
	invoker Invoker
	queue   Queue
	clock   clock.Clock
	metrics *Metrics
	log     logging.Logger
	opts    Options
}

func NewDispatcher(invoker Invoker, queue Queue, clk clock.Clock, metrics *Metrics, log logging.Logger, opts Options) *Dispatcher {
	return &Dispatcher{
		invoker: invoker,
		queue:   queue,
		clock:   clk,
		metrics: metrics,
		log:     log.With("module", "dispatch"),
		opts:    opts,
	}
}

type directOutcome struct {
	resp *DirectResponse
	err  error
}

// Dispatch delivers req, trying the direct path first. It returns
// common.ErrDispatchFailed when the fallback fails too. Caller
// cancellation does not abort a command already being delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	if err := ValidateCommand(req.Command); err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)
	if req.Payload == nil {
		req.Payload = map[string]any{}
	}

	started := d.clock.Now()
	msgID := uuid.NewString()
	log := d.log.With("device_id", req.DeviceID, "command", req.Command, "message_id", msgID)

	if req.Endpoint != "" {
		resp, err := d.direct(ctx, req)
		if err == nil {
			d.metrics.observe(ModeDirect, d.clock.Now().Sub(started))
			status := resp.Status
			log.Info(ctx, "command delivered", "mode", ModeDirect, "status", status)
			return &Result{
				OK:           true,
				DeviceID:     req.DeviceID,
				Command:      req.Command,
				Payload:      resp.Payload,
				MessageID:    msgID,
				MethodStatus: &status,
				Mode:         ModeDirect,
			}, nil
		}
		log.Warn(ctx, "direct delivery failed, queueing", "error", err)
	}

	msg := Message{ID: msgID, Command: req.Command, Payload: req.Payload, Timestamp: d.clock.Now().UTC()}
	entryID, err := d.fallback(ctx, req.DeviceID, msg)
	if err != nil {
		d.metrics.observe("failed", d.clock.Now().Sub(started))
		log.Error(ctx, "command not delivered", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDispatchFailed, err)
	}

	d.metrics.observe(ModeQueued, d.clock.Now().Sub(started))
	log.Info(ctx, "command queued", "mode", ModeQueued, "entry_id", entryID)
	return &Result{
		OK:        true,
		DeviceID:  req.DeviceID,
		Command:   req.Command,
		Payload:   req.Payload,
		MessageID: msgID,
		Mode:      ModeQueued,
	}, nil
}

// direct races the call against DirectTimeout. The call's context is
// cancelled when the timer wins.
func (d *Dispatcher) direct(ctx context.Context, req Request) (*DirectResponse, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan directOutcome, 1)
	go func() {
		resp, err := d.invoker.Invoke(ctx, req.Endpoint, req.Command, req.Payload)
		done <- directOutcome{resp: resp, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		if out.resp.Status < 200 || out.resp.Status > 299 {
			return nil, fmt.Errorf("player answered status %d", out.resp.Status)
		}
		return out.resp, nil
	case <-d.clock.After(d.opts.DirectTimeout):
		return nil, errDirectTimeout
	}
}

func (d *Dispatcher) fallback(ctx context.Context, deviceID string, msg Message) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type enqueued struct {
		id  string
		err error
	}
	done := make(chan enqueued, 1)
	go func() {
		id, err := d.queue.Enqueue(ctx, deviceID, msg)
		done <- enqueued{id: id, err: err}
	}()

	select {
	case out := <-done:
		return out.id, out.err
	case <-d.clock.After(d.opts.FallbackTimeout):
		return "", errFallbackTimeout
	}
}
