package transfer_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mediacheck/internal/config"
	"mediacheck/internal/logging"
	"mediacheck/internal/transfer"
)

type fakeLister struct {
	pingErr  error
	listErr  error
	torrents []transfer.Torrent
	lists    int
}

func (f *fakeLister) Ping(context.Context) error { return f.pingErr }

func (f *fakeLister) Torrents(context.Context) ([]transfer.Torrent, error) {
	f.lists++
	return f.torrents, f.listErr
}

func TestOracleMatchesActiveTransfers(t *testing.T) {
	lister := &fakeLister{torrents: []transfer.Torrent{
		{Name: "Seeding.Movie.2014", DownloadDir: "/downloads", Status: transfer.StatusSeed},
		{Name: "Done.Movie.2010", DownloadDir: "/downloads", Status: transfer.StatusStopped, DoneDate: time.Unix(1700000000, 0)},
		{Name: "Elsewhere.2012", DownloadDir: "/other", Status: transfer.StatusDownload},
	}}
	oracle := transfer.NewOracleWithLister(lister, time.Minute, logging.NewNop())
	ctx := context.Background()
	if err := oracle.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	tests := []struct {
		dir  string
		want bool
	}{
		{"/downloads/Seeding.Movie.2014", true},
		{"/media/library/Seeding.Movie.2014", true},
		{"/downloads/Done.Movie.2010", false},
		{"/media/Elsewhere.2012", true},
		{"/downloads/Unknown", false},
	}
	for _, tc := range tests {
		if got := oracle.IsActive(ctx, tc.dir); got != tc.want {
			t.Fatalf("IsActive(%q) = %v, want %v", tc.dir, got, tc.want)
		}
	}

	before := lister.lists
	oracle.IsActive(ctx, "/downloads/Seeding.Movie.2014")
	if lister.lists != before {
		t.Fatal("expected cached answer")
	}
}

func TestOracleFailsOpenWhenUnreachable(t *testing.T) {
	lister := &fakeLister{
		pingErr:  errors.New("connection refused"),
		torrents: []transfer.Torrent{{Name: "Busy", Status: transfer.StatusSeed}},
	}
	oracle := transfer.NewOracleWithLister(lister, time.Minute, logging.NewNop())
	if err := oracle.Connect(context.Background()); err == nil {
		t.Fatal("expected connect error to be reported")
	}
	if oracle.IsActive(context.Background(), "/downloads/Busy") {
		t.Fatal("unreachable service must answer inactive")
	}
	if lister.lists != 0 {
		t.Fatal("unreachable service must not be queried again")
	}
}

func TestOracleFailsOpenOnLookupError(t *testing.T) {
	lister := &fakeLister{listErr: errors.New("timeout")}
	oracle := transfer.NewOracleWithLister(lister, time.Minute, logging.NewNop())
	if err := oracle.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if oracle.IsActive(context.Background(), "/downloads/Any") {
		t.Fatal("lookup failure must answer inactive")
	}
}

func TestDisabledOracle(t *testing.T) {
	cfg := config.Default()
	oracle := transfer.NewOracle(&cfg, logging.NewNop())
	if err := oracle.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if oracle.Enabled() || oracle.IsActive(context.Background(), "/x") {
		t.Fatal("disabled oracle must answer inactive")
	}
}

func TestOracleWithUnusableEndpointFailsOpen(t *testing.T) {
	cfg := config.Default()
	cfg.Transmission.Enabled = true
	cfg.Transmission.Host = ""
	oracle := transfer.NewOracle(&cfg, logging.NewNop())
	if err := oracle.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if oracle.Enabled() || oracle.IsActive(context.Background(), "/dl/Live") {
		t.Fatal("oracle without a client must answer inactive")
	}
}

func TestOracleFromConfigAgainstServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transmission/rpc" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, tag := readRPC(r)
		writeRPC(w, "success", `{"torrents":[{"name":"Live","downloadDir":"/dl","status":4}]}`, tag)
	}))
	defer server.Close()

	cfg := config.Default()
	addr := server.Listener.Addr().(*net.TCPAddr)
	cfg.Transmission.Enabled = true
	cfg.Transmission.Host = addr.IP.String()
	cfg.Transmission.Port = addr.Port

	oracle := transfer.NewOracle(&cfg, logging.NewNop())
	if err := oracle.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !oracle.IsActive(context.Background(), "/dl/Live") {
		t.Fatal("expected active transfer")
	}
}

func TestMatches(t *testing.T) {
	tor := transfer.Torrent{Name: "Release", DownloadDir: "/dl"}
	if !transfer.Matches(tor, "/dl/Release/") || !transfer.Matches(tor, "/x/Release") || transfer.Matches(tor, "/dl/Other") {
		t.Fatal("Matches mismatch")
	}
	if transfer.Matches(transfer.Torrent{}, "/dl") {
		t.Fatal("unnamed torrent must not match")
	}
}
