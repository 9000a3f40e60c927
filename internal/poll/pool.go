package poll

import (
	"sync"
	"time"

	"gpuwatch/pkg/sshutil"
)

// Pool caches SSH connections per host alias so a connection survives across
// poll cycles instead of being re-dialed every interval. Dead connections are
// detected and replaced on the next Get.
type Pool struct {
	mu          sync.Mutex
	connections map[string]*poolEntry
	dialTimeout time.Duration
	configPath  string
}

type poolEntry struct {
	client   *sshutil.Client
	lastUsed time.Time
}

// NewPool creates an SSH connection pool. dialTimeout bounds the TCP dial and
// handshake for a new connection; configPath is the SSH config file used to
// resolve aliases.
func NewPool(dialTimeout time.Duration, configPath string) *Pool {
	if dialTimeout == 0 {
		dialTimeout = 10 * time.Second
	}
	return &Pool{
		connections: make(map[string]*poolEntry),
		dialTimeout: dialTimeout,
		configPath:  configPath,
	}
}

// Get retrieves the cached connection for alias, or dials a new one.
// A stale or broken cached connection is closed and replaced.
func (p *Pool) Get(alias string) (*sshutil.Client, error) {
	p.mu.Lock()
	entry, exists := p.connections[alias]
	p.mu.Unlock()

	if exists && entry.client != nil {
		if p.isAlive(entry.client) {
			p.mu.Lock()
			entry.lastUsed = time.Now()
			p.mu.Unlock()
			return entry.client, nil
		}
		p.Drop(alias)
	}

	client, err := sshutil.Dial(alias, p.dialTimeout, p.configPath)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.connections[alias] = &poolEntry{
		client:   client,
		lastUsed: time.Now(),
	}
	p.mu.Unlock()

	return client, nil
}

// Drop closes and removes the connection for alias, forcing a fresh dial on
// the next Get. Used after a command timeout so the abandoned session's
// transport is released.
func (p *Pool) Drop(alias string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.connections[alias]; ok {
		if entry.client != nil {
			_ = entry.client.Close()
		}
		delete(p.connections, alias)
	}
}

// Close closes all connections in the pool and clears it.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for alias, entry := range p.connections {
		if entry.client != nil {
			_ = entry.client.Close()
		}
		delete(p.connections, alias)
	}
}

// Size returns the number of pooled connections.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.connections)
}

// isAlive checks if a connection is still usable by opening a session.
func (p *Pool) isAlive(client *sshutil.Client) bool {
	if client == nil || client.Client == nil {
		return false
	}

	session, err := client.NewSession()
	if err != nil {
		return false
	}
	_ = session.Close()
	return true
}
