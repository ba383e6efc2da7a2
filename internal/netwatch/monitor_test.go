package netwatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lumenisp/panel/internal/cache"
	"github.com/lumenisp/panel/internal/models"
	"github.com/lumenisp/panel/pkg/logger"
)

type fixedServers []models.Server

func (s fixedServers) FindAll() ([]models.Server, error) {
	return s, nil
}

type fakeSession struct {
	online map[string]string // address -> latency, absent means offline
	pinged []string
	closed bool
}

func (s *fakeSession) Ping(address string) (bool, string, error) {
	s.pinged = append(s.pinged, address)
	latency, ok := s.online[address]
	return ok, latency, nil
}

func (s *fakeSession) Close() { s.closed = true }

func newTestMonitor(t *testing.T, servers ServerLister, dial DialFunc) (*Monitor, *cache.Store) {
	t.Helper()
	cacheStore, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("cache.NewStore() error = %v", err)
	}
	return New(servers, cacheStore, dial, time.Minute, 0, logger.New()), cacheStore
}

func TestSweepRecordsStatus(t *testing.T) {
	srv := models.Server{ID: 1, Name: "core-1", IP: "10.0.0.1"}
	session := &fakeSession{online: map[string]string{"172.16.0.10": "3ms120us"}}
	dial := func(context.Context, models.Server) (PingSession, error) { return session, nil }

	m, cacheStore := newTestMonitor(t, fixedServers{srv}, dial)
	cacheStore.Write(1, "secrets", []map[string]interface{}{
		{"name": "bob01", "remote-address": "172.16.0.10", "disabled": "false"},
		{"name": "alice02", "remote-address": "172.16.0.11", "disabled": "false"},
	})

	m.Sweep(context.Background())

	statuses := cacheStore.ReadNetworkStatus()
	if len(statuses) != 2 {
		t.Fatalf("status entries = %d, want 2", len(statuses))
	}

	bob := statuses[cache.StatusKey(1, "bob01")]
	if !bob.IsOnline || bob.Latency != "3ms120us" {
		t.Errorf("bob01 status = %+v, want online with latency", bob)
	}
	alice := statuses[cache.StatusKey(1, "alice02")]
	if alice.IsOnline {
		t.Errorf("alice02 status = %+v, want offline", alice)
	}
	if !session.closed {
		t.Error("session not closed after sweep")
	}
}

func TestSweepFiltersTargets(t *testing.T) {
	srv := models.Server{ID: 1}
	session := &fakeSession{online: map[string]string{}}
	dial := func(context.Context, models.Server) (PingSession, error) { return session, nil }

	m, cacheStore := newTestMonitor(t, fixedServers{srv}, dial)
	cacheStore.Write(1, "secrets", []map[string]interface{}{
		{"name": "no-address", "disabled": "false"},
		{"name": "turned-off", "remote-address": "172.16.0.20", "disabled": "true"},
		{"name": "bool-disabled", "remote-address": "172.16.0.21", "disabled": true},
		{"name": "pingable", "remote-address": "172.16.0.22", "disabled": "false"},
	})

	m.Sweep(context.Background())

	if len(session.pinged) != 1 || session.pinged[0] != "172.16.0.22" {
		t.Errorf("pinged = %v, want only 172.16.0.22", session.pinged)
	}
}

func TestSweepSkipsServerWithoutSnapshot(t *testing.T) {
	srv := models.Server{ID: 7}
	dialed := false
	dial := func(context.Context, models.Server) (PingSession, error) {
		dialed = true
		return &fakeSession{}, nil
	}

	m, _ := newTestMonitor(t, fixedServers{srv}, dial)
	m.Sweep(context.Background())

	if dialed {
		t.Error("monitor dialed a server that has no cached secrets snapshot")
	}
}

func TestSweepToleratesConnectFailure(t *testing.T) {
	servers := fixedServers{{ID: 1}, {ID: 2}}
	sessions := map[int]*fakeSession{2: {online: map[string]string{"172.16.2.1": "1ms"}}}
	dial := func(_ context.Context, srv models.Server) (PingSession, error) {
		if srv.ID == 1 {
			return nil, fmt.Errorf("connect refused")
		}
		return sessions[srv.ID], nil
	}

	m, cacheStore := newTestMonitor(t, servers, dial)
	cacheStore.Write(1, "secrets", []map[string]interface{}{
		{"name": "down01", "remote-address": "172.16.1.1", "disabled": "false"},
	})
	cacheStore.Write(2, "secrets", []map[string]interface{}{
		{"name": "up01", "remote-address": "172.16.2.1", "disabled": "false"},
	})

	m.Sweep(context.Background())

	statuses := cacheStore.ReadNetworkStatus()
	if _, exists := statuses[cache.StatusKey(1, "down01")]; exists {
		t.Error("unreachable server produced status entries")
	}
	if !statuses[cache.StatusKey(2, "up01")].IsOnline {
		t.Error("sweep of remaining servers aborted by earlier failure")
	}
}

func TestSweepReentrancyGuard(t *testing.T) {
	srv := models.Server{ID: 1}
	block := make(chan struct{})
	var dials atomic.Int32
	dial := func(context.Context, models.Server) (PingSession, error) {
		dials.Add(1)
		<-block
		return &fakeSession{}, nil
	}

	m, cacheStore := newTestMonitor(t, fixedServers{srv}, dial)
	cacheStore.Write(1, "secrets", []map[string]interface{}{
		{"name": "bob01", "remote-address": "172.16.0.10", "disabled": "false"},
	})

	done := make(chan struct{})
	go func() {
		m.Sweep(context.Background())
		close(done)
	}()

	// Wait until the first sweep is inside dial, then tick again.
	for i := 0; i < 100 && dials.Load() == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	m.Sweep(context.Background())

	close(block)
	<-done

	if got := dials.Load(); got != 1 {
		t.Errorf("dials = %d; overlapping sweep was not skipped", got)
	}
}

func TestSecretsSnapshotServer(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		wantID int
		wantOK bool
	}{
		{name: "secrets snapshot", file: "cache_3_secrets.json", wantID: 3, wantOK: true},
		{name: "other resource", file: "cache_3_profiles.json", wantOK: false},
		{name: "network status", file: "network_status.json", wantOK: false},
		{name: "junk id", file: "cache_x_secrets.json", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := secretsSnapshotServer(tt.file)
			if ok != tt.wantOK || id != tt.wantID {
				t.Errorf("secretsSnapshotServer(%q) = (%d, %v), want (%d, %v)", tt.file, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}
