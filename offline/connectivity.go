package offline

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/calygofire/calygo"
)

// Prober decides connectivity by polling the server health endpoint.
type Prober struct {
	client    *http.Client
	healthURL string
	interval  time.Duration
	l         calygo.Logger

	mu   sync.Mutex
	last bool
}

var _ ConnectivitySource = (*Prober)(nil)

func NewProber(client *http.Client, healthURL string, interval time.Duration, logger calygo.Logger) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = calygo.NopLogger{}
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Prober{
		client:    client,
		healthURL: healthURL,
		interval:  interval,
		l:         logger,
	}
}

// Online probes once and reports the result.
func (p *Prober) Online(ctx context.Context) bool {
	online := p.probe(ctx)
	p.mu.Lock()
	p.last = online
	p.mu.Unlock()
	return online
}

// Watch polls every interval and emits only when the result differs from the
// previous probe.
func (p *Prober) Watch(ctx context.Context) <-chan bool {
	ch := make(chan bool)
	go func() {
		defer close(ch)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			online := p.probe(ctx)
			p.mu.Lock()
			changed := online != p.last
			p.last = online
			p.mu.Unlock()
			if !changed {
				continue
			}

			select {
			case ch <- online:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (p *Prober) probe(ctx context.Context) bool {
	timeout := p.interval
	if timeout > 5*time.Second {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.healthURL, nil)
	if err != nil {
		p.l.Error("failed to build health request", "url", p.healthURL, "error", err)
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.l.Debug("health probe failed", "url", p.healthURL, "error", err)
		return false
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
