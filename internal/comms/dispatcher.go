package comms

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mzansiprolife/platform/pkg/logging"
)

// Notification kinds recorded in the send log.
const (
	KindSubmission = "submission"
	KindDonation   = "donation"
	KindAdmin      = "admin"
)

// Notification is one queued email with its log metadata.
type Notification struct {
	ID      string
	Kind    string
	Message EmailMessage
}

// Dispatcher fans queued notifications out to worker goroutines. Delivery is
// best-effort: failures are logged to the send log, never retried.
type Dispatcher struct {
	sender  EmailSender
	log     *LogStore
	logger  *logging.Logger
	queue   chan Notification
	workers int

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Buffer bounds the pending queue.
func NewDispatcher(sender EmailSender, log *LogStore, workers, buffer int, logger *logging.Logger) *Dispatcher {
	if sender == nil {
		sender = NewStubEmailSender(logger)
	}
	if workers <= 0 {
		workers = 2
	}
	if buffer <= 0 {
		buffer = 128
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		sender:  sender,
		log:     log,
		logger:  logger,
		queue:   make(chan Notification, buffer),
		workers: workers,
	}
}

// Start launches the worker goroutines. They consume the queue until ctx is
// canceled, deliver whatever is still buffered, then exit; Wait blocks until
// they are done.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx)
	}
	d.logger.Info("comms dispatcher started", "workers", d.workers, "buffer", cap(d.queue))
}

// Wait blocks until all workers have exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue queues a notification, blocking if the buffer is full until space
// frees up or ctx is done.
func (d *Dispatcher) Enqueue(ctx context.Context, kind string, msg EmailMessage) error {
	if ctx == nil {
		ctx = context.Background()
	}
	n := Notification{
		ID:      uuid.NewString(),
		Kind:    kind,
		Message: msg,
	}
	select {
	case d.queue <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case n := <-d.queue:
			d.deliver(n)
		}
	}
}

// drain delivers notifications already buffered at shutdown. Enqueues racing
// the cancel may still be dropped; accepted ones are not.
func (d *Dispatcher) drain() {
	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(n Notification) {
	// Delivery must not hang a worker forever.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entry := LogEntry{
		ID:        n.ID,
		Kind:      n.Kind,
		Recipient: n.Message.To,
		Subject:   n.Message.Subject,
		Status:    "sent",
		CreatedAt: time.Now().UTC(),
	}

	if err := d.sender.Send(ctx, n.Message); err != nil {
		d.logger.Error("comms: delivery failed", "id", n.ID, "kind", n.Kind, "to", n.Message.To, "error", err)
		entry.Status = "failed"
		entry.Error = err.Error()
	}

	if err := d.log.Record(ctx, entry); err != nil {
		d.logger.Error("comms: failed to record send log", "id", n.ID, "error", err)
	}
}
