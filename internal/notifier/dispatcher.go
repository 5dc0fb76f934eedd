package notifier

import (
	"context"

	"github.com/kyaniteli/daily-energy-strategy/internal/logging"
)

// Message is a rendered report ready for delivery.
type Message struct {
	Title    string
	HTML     string // webhook body
	MailHTML string // mail body, may reference the inline chart
	Markdown string
	Chart    []byte // PNG, optional
}

// Channel is one delivery route. A disabled channel is never contacted.
type Channel interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, msg *Message) error
}

// Result is the delivery outcome for one channel.
type Result struct {
	Channel string
	Skipped bool
	Err     error
}

// Dispatcher fans a message out to every enabled channel.
type Dispatcher struct {
	channels []Channel
	logger   *logging.Logger
}

// NewDispatcher creates a Dispatcher over channels.
func NewDispatcher(logger *logging.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels, logger: logger}
}

// Dispatch sends msg to each enabled channel in order. Failures are logged and
// reported in the results, never returned as a run error.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *Message) []Result {
	results := make([]Result, 0, len(d.channels))
	for _, ch := range d.channels {
		if !ch.Enabled() {
			d.logger.Info().Str("channel", ch.Name()).Msg("channel disabled, missing credentials")
			results = append(results, Result{Channel: ch.Name(), Skipped: true})
			continue
		}
		err := ch.Send(ctx, msg)
		if err != nil {
			d.logger.Error().Err(err).Str("channel", ch.Name()).Msg("delivery failed")
		} else {
			d.logger.Info().Str("channel", ch.Name()).Str("title", msg.Title).Msg("delivered")
		}
		results = append(results, Result{Channel: ch.Name(), Err: err})
	}
	return results
}

// Delivered counts channels that accepted the message.
func Delivered(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Skipped && r.Err == nil {
			n++
		}
	}
	return n
}
