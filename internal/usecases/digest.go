package usecases

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Notifier delivers a digest message somewhere outside the process
type Notifier interface {
	Notify(text string) error
}

// Digest periodically reports the dashboard counts
type Digest struct {
	useCase  *MonitoringUseCase
	notifier Notifier
	cron     *cron.Cron
	now      func() time.Time
}

// NewDigest creates a digest job. notifier may be nil, in which case the
// digest is only logged.
func NewDigest(useCase *MonitoringUseCase, notifier Notifier) *Digest {
	return &Digest{
		useCase:  useCase,
		notifier: notifier,
		now:      time.Now,
	}
}

// Build renders the digest text
func (d *Digest) Build(ctx context.Context) (string, error) {
	counts, err := d.useCase.Counts(ctx)
	if err != nil {
		return "", err
	}
	return FormatCounts(counts) + "\n\n🕒 " + d.now().UTC().Format(timeLayout), nil
}

// Send builds the digest and hands it to the notifier
func (d *Digest) Send(ctx context.Context) error {
	text, err := d.Build(ctx)
	if err != nil {
		return eris.Wrap(err, "failed to build digest")
	}

	zap.L().Info("digest built", zap.String("text", text))
	if d.notifier == nil {
		return nil
	}
	if err := d.notifier.Notify(text); err != nil {
		return eris.Wrap(err, "failed to deliver digest")
	}
	return nil
}

// Schedule runs Send on the given cron spec until Stop is called
func (d *Digest) Schedule(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := d.Send(context.Background()); err != nil {
			zap.L().Error("scheduled digest failed", zap.Error(err))
		}
	})
	if err != nil {
		return eris.Wrapf(err, "failed to set up cron job %q", spec)
	}

	d.cron = c
	c.Start()
	zap.L().Info("digest scheduled", zap.String("schedule", spec))
	return nil
}

// Stop halts the schedule and waits for a running digest to finish
func (d *Digest) Stop() {
	if d.cron == nil {
		return
	}
	<-d.cron.Stop().Done()
}
