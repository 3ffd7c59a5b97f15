package mintgate

import (
	"time"

	"github.com/mintgate/mintgate/catalog"
	"github.com/mintgate/mintgate/logger"
	"github.com/mintgate/mintgate/metrics"
	"github.com/mintgate/mintgate/pricing"
)

type Option func(*Client)

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) {
		c.rec = r
	}
}

// WithResolver replaces the HTTP catalog backend with a custom resolver.
func WithResolver(r catalog.Resolver) Option {
	return func(c *Client) {
		c.resolver = r
	}
}

// WithPriceOracle enables best-effort USD estimates on cost breakdowns.
// Without an oracle, breakdowns simply omit the USD fields.
func WithPriceOracle(o pricing.PriceOracle) Option {
	return func(c *Client) {
		c.oracle = o
	}
}

func WithTimeout(t time.Duration) Option {
	return func(c *Client) {
		c.timeout = t
	}
}

// WithPollInterval tunes how often step execution polls for confirmations.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = d
	}
}
