package comms

import (
	"context"
	"fmt"

	"github.com/mzansiprolife/platform/internal/catalog"
	"github.com/mzansiprolife/platform/internal/donations"
	"github.com/mzansiprolife/platform/internal/submissions"
	"github.com/mzansiprolife/platform/pkg/logging"
)

// Notifier composes the office notification emails and hands them to the
// dispatcher. Failures only log; callers never block on email.
type Notifier struct {
	dispatcher *Dispatcher
	officeTo   string
	logger     *logging.Logger
}

// NewNotifier creates a notifier. officeTo is the shared office inbox.
func NewNotifier(dispatcher *Dispatcher, officeTo string, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Notifier{
		dispatcher: dispatcher,
		officeTo:   officeTo,
		logger:     logger,
	}
}

// SubmissionReceived notifies the office about a new questionnaire submission.
func (n *Notifier) SubmissionReceived(ctx context.Context, sub *submissions.Submission) {
	if n == nil || n.dispatcher == nil || n.officeTo == "" {
		return
	}

	msg := EmailMessage{
		To:      n.officeTo,
		Subject: fmt.Sprintf("New %s submission from %s", sub.Type, sub.Name),
		Body: fmt.Sprintf(
			"A new %s submission arrived.\n\nName: %s\nEmail: %s\nPhone: %s\n\nReview it in the back office.",
			sub.Type, sub.Name, sub.Email, sub.Phone,
		),
	}
	if err := n.dispatcher.Enqueue(ctx, KindSubmission, msg); err != nil {
		n.logger.Error("comms: failed to queue submission notification", "submission_id", sub.ID, "error", err)
	}
}

// DonationPledged notifies the office about a new donation pledge.
func (n *Notifier) DonationPledged(ctx context.Context, d *donations.Donation) {
	if n == nil || n.dispatcher == nil || n.officeTo == "" {
		return
	}

	msg := EmailMessage{
		To:      n.officeTo,
		Subject: fmt.Sprintf("Donation pledge %s (%s)", d.Reference, catalog.FormatRand(int(d.AmountCents))),
		Body: fmt.Sprintf(
			"A donation of %s was pledged.\n\nDonor: %s\nAllocation: %s %s\nReference: %s\n\nWatch the bank account for the EFT.",
			catalog.FormatRand(int(d.AmountCents)), d.DonorName, d.Allocation, d.Target, d.Reference,
		),
	}
	if err := n.dispatcher.Enqueue(ctx, KindDonation, msg); err != nil {
		n.logger.Error("comms: failed to queue donation notification", "reference", d.Reference, "error", err)
	}
}
