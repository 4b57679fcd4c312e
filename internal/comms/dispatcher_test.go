package comms

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzansiprolife/platform/internal/donations"
	"github.com/mzansiprolife/platform/internal/submissions"
	"github.com/mzansiprolife/platform/pkg/logging"
)

// captureSender records sent messages and can be told to fail.
type captureSender struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error
}

func (c *captureSender) Send(_ context.Context, msg EmailMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestDispatcher_DeliversQueuedMessages(t *testing.T) {
	sender := &captureSender{}
	d := NewDispatcher(sender, nil, 3, 16, logging.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	for i := 0; i < 10; i++ {
		require.NoError(t, d.Enqueue(ctx, KindAdmin, EmailMessage{
			To:      "office@mzansiprolife.org.za",
			Subject: "hello",
		}))
	}

	waitFor(t, func() bool { return sender.count() == 10 })

	cancel()
	d.Wait()
}

func TestDispatcher_SendFailureDoesNotStopWorkers(t *testing.T) {
	sender := &captureSender{err: errors.New("smtp down")}
	d := NewDispatcher(sender, nil, 1, 4, logging.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	require.NoError(t, d.Enqueue(ctx, KindAdmin, EmailMessage{To: "a@b.co", Subject: "fails"}))

	// Recover the sender and confirm the worker still delivers.
	time.Sleep(20 * time.Millisecond)
	sender.mu.Lock()
	sender.err = nil
	sender.mu.Unlock()

	require.NoError(t, d.Enqueue(ctx, KindAdmin, EmailMessage{To: "a@b.co", Subject: "works"}))
	waitFor(t, func() bool { return sender.count() >= 1 })

	cancel()
	d.Wait()
}

func TestDispatcher_DrainsBufferOnShutdown(t *testing.T) {
	sender := &captureSender{}
	d := NewDispatcher(sender, nil, 2, 16, logging.New("error"))

	// Fill the buffer before any worker runs, then hand the workers an
	// already-canceled context: everything queued must still go out.
	for i := 0; i < 8; i++ {
		require.NoError(t, d.Enqueue(context.Background(), KindAdmin, EmailMessage{
			To:      "office@mzansiprolife.org.za",
			Subject: "queued",
		}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)
	d.Wait()

	assert.Equal(t, 8, sender.count())
}

func TestDispatcher_EnqueueHonorsContext(t *testing.T) {
	// Workers never started, buffer of one: the second enqueue must block
	// until the context expires.
	d := NewDispatcher(&captureSender{}, nil, 1, 1, logging.New("error"))

	require.NoError(t, d.Enqueue(context.Background(), KindAdmin, EmailMessage{Subject: "first"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Enqueue(ctx, KindAdmin, EmailMessage{Subject: "second"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNotifier_SubmissionReceived(t *testing.T) {
	sender := &captureSender{}
	d := NewDispatcher(sender, nil, 1, 4, logging.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	n := NewNotifier(d, "office@mzansiprolife.org.za", logging.New("error"))
	n.SubmissionReceived(ctx, &submissions.Submission{
		ID:    "sub-1",
		Type:  submissions.TypeAmbassador,
		Name:  "Thandi Nkosi",
		Email: "thandi@example.com",
	})

	waitFor(t, func() bool { return sender.count() == 1 })

	sender.mu.Lock()
	msg := sender.sent[0]
	sender.mu.Unlock()
	assert.Equal(t, "office@mzansiprolife.org.za", msg.To)
	assert.Contains(t, msg.Subject, "ambassador")
	assert.Contains(t, msg.Body, "Thandi Nkosi")
}

func TestNotifier_DonationPledged(t *testing.T) {
	sender := &captureSender{}
	d := NewDispatcher(sender, nil, 1, 4, logging.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	n := NewNotifier(d, "office@mzansiprolife.org.za", logging.New("error"))
	n.DonationPledged(ctx, &donations.Donation{
		Reference:   "MPL-TEST1234",
		DonorName:   "Sipho",
		Allocation:  donations.AllocationHeadOffice,
		AmountCents: 48000,
	})

	waitFor(t, func() bool { return sender.count() == 1 })

	sender.mu.Lock()
	msg := sender.sent[0]
	sender.mu.Unlock()
	assert.Contains(t, msg.Subject, "MPL-TEST1234")
	assert.Contains(t, msg.Subject, "R480")
}

func TestNotifier_NoOfficeAddressIsNoop(t *testing.T) {
	sender := &captureSender{}
	d := NewDispatcher(sender, nil, 1, 4, logging.New("error"))

	n := NewNotifier(d, "", logging.New("error"))
	n.SubmissionReceived(context.Background(), &submissions.Submission{Type: submissions.TypeJobs, Name: "X"})

	assert.Equal(t, 0, sender.count())
}
