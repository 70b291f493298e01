package stream

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"depthrecon/internal/model"
)

// SnapshotPoller polls a snapshot endpoint on a fixed interval and forwards
// decoded snapshots on a bounded channel, dropping on full rather than
// blocking.
type SnapshotPoller struct {
	http     *resty.Client
	url      string
	interval time.Duration
	out      chan model.SnapshotUpdate
	logger   *slog.Logger
}

// NewSnapshotPoller builds a SnapshotPoller hitting url every interval, with
// a channel buffered to bufSize.
func NewSnapshotPoller(url string, interval time.Duration, bufSize int, logger *slog.Logger) *SnapshotPoller {
	if logger == nil {
		logger = slog.Default()
	}
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &SnapshotPoller{
		http:     client,
		url:      url,
		interval: interval,
		out:      make(chan model.SnapshotUpdate, bufSize),
		logger:   logger.With("component", "snapshot_poller"),
	}
}

// Updates returns the channel decoded snapshots are sent on. It is closed
// once Run returns.
func (p *SnapshotPoller) Updates() <-chan model.SnapshotUpdate {
	return p.out
}

// Run polls until ctx is canceled, then closes the output channel.
func (p *SnapshotPoller) Run(ctx context.Context) error {
	defer close(p.out)
	for {
		p.poll(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.interval):
		}
	}
}

func (p *SnapshotPoller) poll(ctx context.Context) {
	var snap model.SnapshotUpdate
	resp, err := p.http.R().SetContext(ctx).SetResult(&snap).Get(p.url)
	if err != nil {
		p.logger.Error("snapshot request failed", "error", err)
		return
	}
	if resp.IsError() {
		p.logger.Error("snapshot request failed", "status", resp.StatusCode())
		return
	}
	select {
	case p.out <- snap:
	default:
		p.logger.Warn("channel full, dropping snapshot")
	}
}
