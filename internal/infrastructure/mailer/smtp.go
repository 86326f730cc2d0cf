package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Transport modes.
const (
	ModePlain    = "plain"
	ModeStartTLS = "starttls"
	ModeTLS      = "tls"
)

// Config defines how SMTPNotifier reaches its relay.
type Config struct {
	Addr              string
	Mode              string
	Username          string
	Password          string
	From              string
	ReplyTo           string
	HeloDomain        string
	MaxConnections    int
	RatePerMinute     int
	CommandTimeout    time.Duration
	SubmissionTimeout time.Duration
	TLSConfig         *tls.Config
}

// SMTPNotifier sends HTML mail through an SMTP relay. Each Send opens one
// connection and makes exactly one delivery attempt.
type SMTPNotifier struct {
	cfg     Config
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time
}

// NewSMTPNotifier validates cfg and builds a notifier.
func NewSMTPNotifier(cfg Config, logger *zap.Logger) (*SMTPNotifier, error) {
	if cfg.Addr == "" {
		return nil, errors.New("smtp address is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	switch cfg.Mode {
	case "":
		cfg.Mode = ModeStartTLS
	case ModePlain, ModeStartTLS, ModeTLS:
	default:
		return nil, fmt.Errorf("unknown smtp mode %q", cfg.Mode)
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 1
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 10
	}
	if cfg.HeloDomain == "" {
		cfg.HeloDomain = "localhost"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SMTPNotifier{
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConnections)),
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), cfg.RatePerMinute),
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Send delivers one message to one recipient.
func (n *SMTPNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg, err := buildMessage(envelope{
		From:    n.cfg.From,
		To:      to,
		ReplyTo: n.cfg.ReplyTo,
		Subject: subject,
		HTML:    htmlBody,
		Date:    n.now(),
	})
	if err != nil {
		return err
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("smtp rate limit: %w", err)
	}
	if err := n.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("smtp connection slot: %w", err)
	}
	defer n.sem.Release(1)

	client, err := n.dial()
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", n.cfg.Addr, err)
	}
	defer client.Close()
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	if n.cfg.CommandTimeout > 0 {
		client.CommandTimeout = n.cfg.CommandTimeout
	}
	if n.cfg.SubmissionTimeout > 0 {
		client.SubmissionTimeout = n.cfg.SubmissionTimeout
	}

	if n.cfg.Mode != ModeStartTLS {
		if err := client.Hello(n.cfg.HeloDomain); err != nil {
			return n.wrap(ctx, "hello", err)
		}
	}
	if n.cfg.Username != "" {
		if err := client.Auth(sasl.NewPlainClient("", n.cfg.Username, n.cfg.Password)); err != nil {
			return n.wrap(ctx, "auth", err)
		}
	}
	if err := client.SendMail(n.cfg.From, []string{to}, bytes.NewReader(msg)); err != nil {
		return n.wrap(ctx, "send", err)
	}
	if err := client.Quit(); err != nil {
		n.logger.Debug("smtp quit failed", zap.Error(err))
	}
	return nil
}

func (n *SMTPNotifier) dial() (*gosmtp.Client, error) {
	switch n.cfg.Mode {
	case ModeTLS:
		return gosmtp.DialTLS(n.cfg.Addr, n.cfg.TLSConfig)
	case ModeStartTLS:
		return gosmtp.DialStartTLS(n.cfg.Addr, n.cfg.TLSConfig)
	default:
		return gosmtp.Dial(n.cfg.Addr)
	}
}

func (n *SMTPNotifier) wrap(ctx context.Context, stage string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("smtp %s: %w", stage, ctxErr)
	}
	return fmt.Errorf("smtp %s: %w", stage, err)
}

// NopNotifier logs instead of sending. Used when no relay is configured.
type NopNotifier struct {
	Logger *zap.Logger
}

func (n NopNotifier) Send(_ context.Context, to, subject, _ string) error {
	if n.Logger != nil {
		n.Logger.Info("smtp disabled, notification skipped", zap.String("to", to), zap.String("subject", subject))
	}
	return nil
}
