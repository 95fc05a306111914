package syncer

import (
	"log/slog"
	"time"
)

type Options struct {
	// StrictWrites guards every overwrite with the revision it was computed
	// against. Without it the last writer wins.
	StrictWrites bool
	WriteRetries int
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
	WriteTimeout time.Duration

	Notifier Notifier
	Observer Observer
	Logger   *slog.Logger
	Now      func() time.Time
}

func (o Options) withDefaults() Options {
	if o.WriteRetries < 0 {
		o.WriteRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 200 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 30 * time.Second
	}
	if o.MaxBackoff < o.RetryBackoff {
		o.MaxBackoff = o.RetryBackoff
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Notifier == nil {
		o.Notifier = LogNotifier{Logger: o.Logger}
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
