package live

import (
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/d60-Lab/feedsync/config"
)

// ReconnectPolicy controls what happens after the transport drops without a
// Disconnect. A nil policy (the default) leaves the channel Disconnected.
type ReconnectPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxAttempts     int
}

// PolicyFromConfig returns nil when reconnect is disabled.
func PolicyFromConfig(cfg config.ReconnectConfig) *ReconnectPolicy {
	if !cfg.Enabled {
		return nil
	}
	return &ReconnectPolicy{
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		MaxAttempts:     cfg.MaxAttempts,
	}
}

func (p *ReconnectPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.Reset()
	return b
}

func (p *ReconnectPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}
