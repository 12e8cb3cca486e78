package notifications

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/ims-backend/pkg/logger"
	"github.com/angelmondragon/ims-backend/pkg/mailer"
	"github.com/angelmondragon/ims-backend/pkg/metrics"
)

const defaultSendTimeout = 15 * time.Second

// Recipient identifies who an email is addressed to.
type Recipient struct {
	Email        string
	Name         string
	EmployeeCode string
}

// Dispatcher renders and sends emails off the request path. Delivery failures
// are logged and counted, never returned to callers.
type Dispatcher struct {
	sender      mailer.Sender
	logg        *logger.Logger
	metrics     *metrics.EmailMetrics
	frontendURL string
	resetTTL    time.Duration
	timeout     time.Duration
	wg          sync.WaitGroup
}

type DispatcherConfig struct {
	FrontendURL string
	ResetTTL    time.Duration
	SendTimeout time.Duration
}

func NewDispatcher(sender mailer.Sender, logg *logger.Logger, m *metrics.EmailMetrics, cfg DispatcherConfig) *Dispatcher {
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "notifications", Output: io.Discard})
	}
	ttl := cfg.ResetTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Dispatcher{
		sender:      sender,
		logg:        logg,
		metrics:     m,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		resetTTL:    ttl,
		timeout:     timeout,
	}
}

func (d *Dispatcher) Welcome(ctx context.Context, to Recipient) {
	d.dispatch(ctx, TemplateWelcome, to, templateData{LoginURL: d.frontendURL + "/login"})
}

func (d *Dispatcher) PasswordReset(ctx context.Context, to Recipient, token string) {
	d.dispatch(ctx, TemplatePasswordReset, to, templateData{
		ResetURL: d.ResetURL(token),
		TTLHours: int(d.resetTTL.Hours()),
	})
}

func (d *Dispatcher) PasswordChanged(ctx context.Context, to Recipient) {
	d.dispatch(ctx, TemplatePasswordChanged, to, templateData{})
}

// ResetURL is the frontend page that consumes a reset token.
func (d *Dispatcher) ResetURL(token string) string {
	return d.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
}

// Wait blocks until in-flight sends finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, name string, to Recipient, data templateData) {
	if d == nil || d.sender == nil {
		return
	}
	data.Name = to.Name
	data.Email = to.Email
	data.EmployeeCode = to.EmployeeCode
	if data.Name == "" {
		data.Name = to.Email
	}

	ctx = d.logg.WithFields(context.WithoutCancel(ctx), map[string]any{"template": name, "to": to.Email})
	msg, err := render(name, to.Email, data)
	if err != nil {
		d.logg.Error(ctx, "email.render_failed", err)
		d.metrics.IncFailed(name)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		if err := d.sender.Send(sendCtx, msg); err != nil {
			d.logg.Error(ctx, "email.send_failed", err)
			d.metrics.IncFailed(name)
			return
		}
		d.metrics.IncSent(name)
		d.logg.Info(ctx, "email.sent")
	}()
}
