// Package worker runs the pool that drains bus topics and hands each event to a handler.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/okian/kala/internal/adapters/mq/bus"
	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/pkg/logger"
	"github.com/okian/kala/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2
	defaultInboxSize        = 256
)

// Source is where the pool reads messages from.
type Source interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// Handler consumes decoded events.
type Handler interface {
	Handle(ctx context.Context, ev model.Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev model.Event) error

func (f HandlerFunc) Handle(ctx context.Context, ev model.Event) error { return f(ctx, ev) }

// delivery is one message together with the topic it arrived on.
type delivery struct {
	topic string
	msg   *message.Message
}

// Worker processes deliveries until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the inbox closes.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the message in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker decodes messages from the pool inbox and calls the handler.
type InMemoryWorker struct {
	inbox   <-chan delivery
	handler Handler
	name    string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

func newInMemoryWorker(inbox <-chan delivery, handler Handler, name string, log logger.Logger) *InMemoryWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &InMemoryWorker{
		inbox:    inbox,
		handler:  handler,
		name:     name,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   log.Named(name),
	}
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case d, ok := <-w.inbox:
			if !ok {
				return
			}
			w.process(ctx, d)
		}
	}
}

// Shutdown stops the worker. It is safe to call more than once.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process always acks: the gochannel subscriber holds back the next message until it does,
// and a failed live push is not worth redelivering.
func (w *InMemoryWorker) process(ctx context.Context, d delivery) {
	start := time.Now()
	defer d.msg.Ack()

	ev, err := bus.Decode(d.topic, d.msg)
	if err != nil {
		metrics.RecordErrorByComponent("dispatcher", "decode_error")
		w.logger.Error(ctx, "dropping undecodable message",
			logger.String("topic", d.topic),
			logger.String("messageId", d.msg.UUID),
			logger.Error(err),
		)
		return
	}
	if err := w.handler.Handle(ctx, ev); err != nil {
		metrics.RecordErrorByComponent("dispatcher", "handler_error")
		w.logger.Error(ctx, "handler failed",
			logger.String("topic", ev.Topic),
			logger.String("key", ev.Key),
			logger.Error(err),
		)
		return
	}
	metrics.RecordEventDispatched(ev.Topic, float64(time.Since(start).Microseconds())/1000)
}

// Pool subscribes to a set of topics and spreads their messages over a fixed number of workers.
type Pool struct {
	workers []*InMemoryWorker
	source  Source
	topics  []string
	inbox   chan delivery

	cancel  context.CancelFunc
	fanIn   sync.WaitGroup
	started bool
	mu      sync.Mutex
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one uses twice the CPU count.
func NewPool(workerCount int, source Source, handler Handler, topics []string, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	set := newSettings(opts)
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		source:  source,
		topics:  append([]string(nil), topics...),
		inbox:   make(chan delivery, defaultInboxSize),
		logger:  set.logger.Named(set.name),
	}
	for i := range workerCount {
		p.workers[i] = newInMemoryWorker(p.inbox, handler, "worker-"+strconv.Itoa(i), p.logger)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start subscribes to every topic and starts the workers. A pool starts at most once.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return fmt.Errorf("dispatcher already started")
	}

	subCtx, cancel := context.WithCancel(ctx)
	streams := make([]<-chan *message.Message, len(p.topics))
	for i, topic := range p.topics {
		ch, err := p.source.Subscribe(subCtx, topic)
		if err != nil {
			cancel()
			return fmt.Errorf("dispatcher subscribe: %w", err)
		}
		streams[i] = ch
	}
	p.cancel = cancel
	p.started = true

	for i, ch := range streams {
		p.fanIn.Add(1)
		go p.forward(subCtx, p.topics[i], ch)
	}
	go func() {
		p.fanIn.Wait()
		close(p.inbox)
	}()

	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateDispatcherWorkers(len(p.workers))
	p.logger.Info(ctx, "dispatcher started",
		logger.Int("workers", len(p.workers)),
		logger.Any("topics", p.topics),
	)
	return nil
}

func (p *Pool) forward(ctx context.Context, topic string, ch <-chan *message.Message) {
	defer p.fanIn.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			select {
			case p.inbox <- delivery{topic: topic, msg: msg}:
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}
}

// Shutdown stops the subscriptions and waits for every worker to finish its current message.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	started := p.started
	cancel := p.cancel
	p.mu.Unlock()
	if !started {
		return nil
	}

	cancel()
	var errs []error
	for _, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	metrics.UpdateDispatcherWorkers(0)
	if len(errs) > 0 {
		return fmt.Errorf("dispatcher shutdown: %d workers did not stop: %w", len(errs), errs[0])
	}
	p.logger.Info(ctx, "dispatcher stopped")
	return nil
}
