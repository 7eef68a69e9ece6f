package services

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/food-delivery-app/utils"
)

type options struct {
	notifier       Notifier
	faults         FaultInjector
	log            logrus.FieldLogger
	newOrderNumber func() string
	now            func() time.Time
}

// Option configures OrderProcessor and StatusUpdater.
type Option func(*options)

func defaultOptions() options {
	return options{
		notifier:       NopNotifier{},
		log:            utils.Logger,
		newOrderNumber: NewOrderNumber,
		now:            time.Now,
	}
}

func WithNotifier(n Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithFaultInjector installs a hook consulted after stock reservation.
// Only test wiring should pass one.
func WithFaultInjector(f FaultInjector) Option {
	return func(o *options) { o.faults = f }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func WithOrderNumberGenerator(gen func() string) Option {
	return func(o *options) {
		if gen != nil {
			o.newOrderNumber = gen
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
