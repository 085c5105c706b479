package transfer

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hekmon/transmissionrpc/v3"

	"mediacheck/internal/services"
)

// Transmission torrent status codes.
const (
	StatusStopped      = 0
	StatusCheckWait    = 1
	StatusCheck        = 2
	StatusDownloadWait = 3
	StatusDownload     = 4
	StatusSeedWait     = 5
	StatusSeed         = 6
)

// Torrent is the subset of torrent fields the oracle needs.
type Torrent struct {
	ID          int64
	Name        string
	DownloadDir string
	Status      int
	PercentDone float64
	DoneDate    time.Time
}

// Active reports whether the torrent is downloading or seeding (queued
// included). Stopped and verifying torrents are not active.
func (t Torrent) Active() bool {
	return t.Status >= StatusDownloadWait && t.Status <= StatusSeed
}

var (
	torrentFields = []string{"id", "name", "downloadDir", "status", "percentDone", "doneDate"}
	sessionFields = []string{"version", "rpc-version"}
)

// Client lists torrents over Transmission RPC.
type Client struct {
	rpc      *transmissionrpc.Client
	rejected *authWatch
}

// NewClient builds a client for endpoint. Credentials, when set, travel as
// basic auth; every request is bounded by timeout.
func NewClient(endpoint, username, password string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || u.Hostname() == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transfer", "client", "invalid rpc endpoint "+endpoint, err)
	}
	if username != "" || password != "" {
		u.User = url.UserPassword(username, password)
	}
	watch := &authWatch{next: http.DefaultTransport}
	rpc, err := transmissionrpc.New(u, &transmissionrpc.Config{
		CustomClient: &http.Client{Timeout: timeout, Transport: watch},
		UserAgent:    "mediacheck",
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transfer", "client", "build rpc client", err)
	}
	return &Client{rpc: rpc, rejected: watch}, nil
}

// Ping issues session-get to verify the service is reachable and the
// credentials are accepted.
func (c *Client) Ping(ctx context.Context) error {
	c.rejected.reset()
	if _, err := c.rpc.SessionArgumentsGet(ctx, sessionFields); err != nil {
		return c.wrap("session-get", err)
	}
	return nil
}

// Torrents lists every torrent known to the service.
func (c *Client) Torrents(ctx context.Context) ([]Torrent, error) {
	c.rejected.reset()
	raw, err := c.rpc.TorrentGet(ctx, torrentFields, nil)
	if err != nil {
		return nil, c.wrap("torrent-get", err)
	}
	torrents := make([]Torrent, 0, len(raw))
	for _, r := range raw {
		torrents = append(torrents, convertTorrent(r))
	}
	return torrents, nil
}

func (c *Client) wrap(method string, err error) error {
	if c.rejected.seen() {
		return services.Wrap(services.ErrConfiguration, "transfer", method, "credentials rejected", err)
	}
	return services.Wrap(services.ErrTransient, "transfer", method, "rpc failed", err)
}

func convertTorrent(r transmissionrpc.Torrent) Torrent {
	var t Torrent
	if r.ID != nil {
		t.ID = *r.ID
	}
	if r.Name != nil {
		t.Name = *r.Name
	}
	if r.DownloadDir != nil {
		t.DownloadDir = *r.DownloadDir
	}
	if r.Status != nil {
		t.Status = int(*r.Status)
	}
	if r.PercentDone != nil {
		t.PercentDone = *r.PercentDone
	}
	if r.DoneDate != nil {
		t.DoneDate = *r.DoneDate
	}
	return t
}

// authWatch remembers whether the server answered 401 so rejected
// credentials surface as a configuration error.
type authWatch struct {
	next     http.RoundTripper
	rejected atomic.Bool
}

func (w *authWatch) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := w.next.RoundTrip(req)
	if err == nil && resp.StatusCode == http.StatusUnauthorized {
		w.rejected.Store(true)
	}
	return resp, err
}

func (w *authWatch) reset() { w.rejected.Store(false) }

func (w *authWatch) seen() bool { return w.rejected.Load() }
