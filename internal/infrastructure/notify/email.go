package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/hempies/catalogsync/internal/domain"
	"github.com/hempies/catalogsync/internal/infrastructure/logger"
)

const (
	dateLayout     = "01/02/2006 03:04 PM"
	defaultTimeout = 30 * time.Second
)

// SendFunc is smtp.SendMail bounded by a context
type SendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailConfig holds SMTP settings
type EmailConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	Recipient string

	// Timeout bounds each delivery attempt, connect through QUIT
	Timeout         time.Duration
	MaxTries        uint
	InitialInterval time.Duration
	Send            SendFunc
	Now             func() time.Time
}

// EmailNotifier mails run lifecycle events to one recipient
type EmailNotifier struct {
	addr      string
	auth      smtp.Auth
	from      string
	recipient string
	timeout   time.Duration
	maxTries  uint
	interval  time.Duration
	send      SendFunc
	now       func() time.Time
	logger    *zap.Logger
}

// New returns an EmailNotifier, or a NopNotifier when no recipient is configured
func New(cfg EmailConfig, log *zap.Logger) domain.Notifier {
	if strings.TrimSpace(cfg.Recipient) == "" {
		return NopNotifier{}
	}
	return NewEmailNotifier(cfg, log)
}

// NewEmailNotifier creates an SMTP notifier
func NewEmailNotifier(cfg EmailConfig, log *zap.Logger) *EmailNotifier {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxTries := cfg.MaxTries
	if maxTries == 0 {
		maxTries = 3
	}
	interval := cfg.InitialInterval
	if interval == 0 {
		interval = 2 * time.Second
	}
	send := cfg.Send
	if send == nil {
		send = sendMail
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &EmailNotifier{
		addr:      net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		auth:      auth,
		from:      from,
		recipient: cfg.Recipient,
		timeout:   timeout,
		maxTries:  maxTries,
		interval:  interval,
		send:      send,
		now:       now,
		logger:    logger.OrNop(log).Named("notify"),
	}
}

// SyncStarted mails a start notice
func (n *EmailNotifier) SyncStarted(ctx context.Context, runID, trigger string) error {
	body := fmt.Sprintf("A %s catalog sync started at %s.\n\nRun: %s\n",
		trigger, n.now().Format(dateLayout), runID)
	return n.deliver(ctx, "Catalog sync started", body)
}

// SyncCompleted mails the run summary
func (n *EmailNotifier) SyncCompleted(ctx context.Context, runID string, result domain.SyncResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "The catalog sync finished at %s in %s.\n\n", result.FinishedAt.Format(dateLayout), result.Duration().Round(time.Second))
	writeSummary(&b, result)
	fmt.Fprintf(&b, "\nRun: %s\n", runID)
	return n.deliver(ctx, "Catalog sync completed", b.String())
}

// SyncFailed mails the error and whatever was done before it
func (n *EmailNotifier) SyncFailed(ctx context.Context, runID string, result domain.SyncResult, runErr error) error {
	var b strings.Builder
	fmt.Fprintf(&b, "The catalog sync failed at %s.\n\nError: %v\n\n", n.now().Format(dateLayout), runErr)
	b.WriteString("Progress before the failure:\n")
	writeSummary(&b, result)
	fmt.Fprintf(&b, "\nRun: %s\n", runID)
	return n.deliver(ctx, "Catalog sync failed", b.String())
}

func writeSummary(b *strings.Builder, result domain.SyncResult) {
	var total domain.RunStats
	total.Add(result.Vendors)
	total.Add(result.Products)

	for _, section := range []struct {
		name  string
		stats domain.RunStats
	}{{"Vendors", result.Vendors}, {"Products", result.Products}, {"Total", total}} {
		s := section.stats
		fmt.Fprintf(b, "%s: %d processed of %d, %d created, %d updated, %d removed, %d skipped (%d failed)\n",
			section.name, s.Processed, s.Total, s.Created, s.Updated, s.Removed, s.Skipped, s.Failed)
	}
}

// deliver sends one message, retrying with exponential backoff
func (n *EmailNotifier) deliver(ctx context.Context, subject, body string) error {
	msg := n.message(subject, body)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = n.interval

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()

		err := n.send(attemptCtx, n.addr, n.auth, n.from, []string{n.recipient}, msg)
		if err != nil {
			n.logger.Warn("sending mail failed",
				zap.String("subject", subject),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return struct{}{}, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(n.maxTries))
	if err != nil {
		return fmt.Errorf("send %q to %s: %w", subject, n.recipient, err)
	}

	n.logger.Info("mail sent", zap.String("subject", subject), zap.String("to", n.recipient))
	return nil
}

func (n *EmailNotifier) message(subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", n.recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", n.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// NopNotifier discards notifications
type NopNotifier struct{}

// SyncStarted does nothing
func (NopNotifier) SyncStarted(context.Context, string, string) error { return nil }

// SyncCompleted does nothing
func (NopNotifier) SyncCompleted(context.Context, string, domain.SyncResult) error { return nil }

// SyncFailed does nothing
func (NopNotifier) SyncFailed(context.Context, string, domain.SyncResult, error) error { return nil }
