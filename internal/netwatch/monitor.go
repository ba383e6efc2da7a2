package netwatch

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lumenisp/panel/internal/cache"
	"github.com/lumenisp/panel/internal/models"
	"github.com/lumenisp/panel/internal/routeros"
	"github.com/lumenisp/panel/pkg/logger"
)

// PingSession is the slice of a router session the monitor needs.
// *routeros.Session satisfies it.
type PingSession interface {
	Ping(address string) (online bool, latency string, err error)
	Close()
}

// DialFunc opens a ping session against one server.
type DialFunc func(ctx context.Context, srv models.Server) (PingSession, error)

// RouterDialer returns the production DialFunc backed by the RouterOS API.
func RouterDialer(timeout time.Duration) DialFunc {
	return func(ctx context.Context, srv models.Server) (PingSession, error) {
		return routeros.Dial(ctx, routeros.Credentials{
			Host:     srv.IP,
			Port:     srv.Port,
			Username: srv.Username,
			Password: srv.Password,
		}, timeout)
	}
}

type ServerLister interface {
	FindAll() ([]models.Server, error)
}

// Monitor sweeps all servers on a fixed interval, pinging every cached
// secret that has a remote address and recording online/offline per
// customer. It is purely a consumer of the secrets snapshots written by the
// sync path and never triggers a live secrets fetch itself.
type Monitor struct {
	servers      ServerLister
	cache        *cache.Store
	dial         DialFunc
	interval     time.Duration
	initialDelay time.Duration
	logger       *logger.Logger

	sweeping atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	kickCh   chan int
	watcher  *fsnotify.Watcher
	wg       sync.WaitGroup
}

func New(servers ServerLister, cacheStore *cache.Store, dial DialFunc, interval, initialDelay time.Duration, log *logger.Logger) *Monitor {
	return &Monitor{
		servers:      servers,
		cache:        cacheStore,
		dial:         dial,
		interval:     interval,
		initialDelay: initialDelay,
		logger:       log,
		stopCh:       make(chan struct{}),
		kickCh:       make(chan int, 16),
	}
}

// Start launches the sweep loop. A watcher on the data directory nudges an
// early sweep of a server whose secrets snapshot was just rewritten; the
// watcher is best effort and the timer loop works without it.
func (m *Monitor) Start() {
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err := watcher.Add(m.cache.Dir()); err != nil {
			m.logger.Warn("Cache directory watch failed", "dir", m.cache.Dir(), "error", err.Error())
			watcher.Close()
		} else {
			m.watcher = watcher
			m.wg.Add(1)
			go m.watchSnapshots()
		}
	}

	m.wg.Add(1)
	go m.run()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Monitor) run() {
	defer m.wg.Done()

	select {
	case <-time.After(m.initialDelay):
	case <-m.stopCh:
		return
	}

	m.Sweep(context.Background())

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Sweep(context.Background())
		case serverID := <-m.kickCh:
			m.sweepOne(context.Background(), serverID)
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) watchSnapshots() {
	defer m.wg.Done()
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write != fsnotify.Write && event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			serverID, ok := secretsSnapshotServer(filepath.Base(event.Name))
			if !ok {
				continue
			}
			select {
			case m.kickCh <- serverID:
			default:
			}
		case _, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
		case <-m.stopCh:
			return
		}
	}
}

// secretsSnapshotServer extracts the server id from a secrets cache
// filename (cache_{id}_secrets.json).
func secretsSnapshotServer(name string) (int, bool) {
	if !strings.HasPrefix(name, "cache_") || !strings.HasSuffix(name, "_secrets.json") {
		return 0, false
	}
	idStr := strings.TrimSuffix(strings.TrimPrefix(name, "cache_"), "_secrets.json")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Sweep pings every monitorable secret of every server once. A tick that
// arrives while the previous sweep is still running is skipped rather than
// allowed to overlap against the same routers.
func (m *Monitor) Sweep(ctx context.Context) {
	if !m.sweeping.CompareAndSwap(false, true) {
		m.logger.Warn("Sweep still running, skipping tick")
		return
	}
	defer m.sweeping.Store(false)

	servers, err := m.servers.FindAll()
	if err != nil {
		m.logger.Error("Sweep aborted, cannot list servers", "error", err.Error())
		return
	}

	for _, srv := range servers {
		checked, err := m.sweepServer(ctx, srv)
		if err != nil {
			m.logger.Warn("Server sweep failed", "server_id", srv.ID, "error", err.Error())
			continue
		}
		if checked > 0 {
			m.logger.Info("Server sweep finished", "server_id", srv.ID, "targets", checked)
		}
	}
}

func (m *Monitor) sweepOne(ctx context.Context, serverID int) {
	if !m.sweeping.CompareAndSwap(false, true) {
		return
	}
	defer m.sweeping.Store(false)

	servers, err := m.servers.FindAll()
	if err != nil {
		return
	}
	for _, srv := range servers {
		if srv.ID != serverID {
			continue
		}
		if _, err := m.sweepServer(ctx, srv); err != nil {
			m.logger.Warn("Server sweep failed", "server_id", srv.ID, "error", err.Error())
		}
		return
	}
}

// sweepServer pings the monitorable secrets of one server over a single
// session and batch-writes the status entries once at the end.
func (m *Monitor) sweepServer(ctx context.Context, srv models.Server) (int, error) {
	snap, found := m.cache.Read(srv.ID, "secrets")
	if !found {
		return 0, nil
	}

	type target struct {
		name    string
		address string
	}
	var targets []target
	for _, row := range snap.Data {
		name, _ := row["name"].(string)
		address, _ := row["remote-address"].(string)
		if name == "" || address == "" || routeros.ParseDisabled(row["disabled"]) {
			continue
		}
		targets = append(targets, target{name: name, address: address})
	}
	if len(targets) == 0 {
		return 0, nil
	}

	sess, err := m.dial(ctx, srv)
	if err != nil {
		return 0, err
	}
	defer sess.Close()

	now := time.Now().Format(time.RFC3339)
	entries := make(map[string]cache.NetworkStatus, len(targets))
	for _, tgt := range targets {
		online, latency, err := sess.Ping(tgt.address)
		if err != nil {
			online, latency = false, ""
		}
		entries[cache.StatusKey(srv.ID, tgt.name)] = cache.NetworkStatus{
			IsOnline:  online,
			LastCheck: now,
			Latency:   latency,
		}
	}

	if err := m.cache.UpdateNetworkStatus(entries); err != nil {
		return len(targets), err
	}
	return len(targets), nil
}
