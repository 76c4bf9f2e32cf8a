package imapsync

import (
	"fmt"
	"log"
	"sync"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/config"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/events"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/services"
)

// Manager owns one runner per configured account. The account set is
// fixed at construction; runners are started lazily on the first connect
// and live until Shutdown.
type Manager struct {
	bus  *events.Bus
	logs *services.LogService

	mu      sync.Mutex
	runners map[string]*accountRunner
	order   []string
	started bool
	stopped bool
}

// NewManager resolves every account's credentials up front so a bad
// encryption key fails at startup, not mid-run
func NewManager(cfg *config.Config, bus *events.Bus, logs *services.LogService) (*Manager, error) {
	if err := cfg.ValidateAccounts(); err != nil {
		return nil, err
	}

	m := &Manager{
		bus:     bus,
		logs:    logs,
		runners: make(map[string]*accountRunner, len(cfg.Accounts)),
	}

	for _, acc := range cfg.Accounts {
		if _, dup := m.runners[acc.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate account id %q", config.ErrInvalidAccount, acc.ID)
		}
		password, err := cfg.ResolvePassword(acc)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", acc.ID, err)
		}
		m.runners[acc.ID] = newAccountRunner(acc, password, bus, logs)
		m.order = append(m.order, acc.ID)
	}

	return m, nil
}

// ensureStarted launches the runner goroutines once
func (m *Manager) ensureStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.stopped {
		return
	}
	for _, r := range m.runners {
		r.start()
	}
	m.started = true
}

// ConnectAll triggers a connect on every account and returns the per
// account results keyed by id. Each account connects independently; one
// failure never blocks the others.
func (m *Manager) ConnectAll() map[string]error {
	m.ensureStarted()

	var wg sync.WaitGroup
	results := make(map[string]error, len(m.order))
	var resMu sync.Mutex

	for _, id := range m.order {
		r := m.runners[id]
		wg.Add(1)
		go func(id string, r *accountRunner) {
			defer wg.Done()
			err := m.requestConnect(r)
			resMu.Lock()
			results[id] = err
			resMu.Unlock()
		}(id, r)
	}
	wg.Wait()

	return results
}

// requestConnect submits a connect request and waits for live mode
func (m *Manager) requestConnect(r *accountRunner) error {
	req := connectRequest{reply: make(chan error, 1)}
	select {
	case r.connectReq <- req:
	case <-r.stop:
		return ErrShuttingDown
	}
	select {
	case err := <-req.reply:
		return err
	case <-r.stop:
		return ErrShuttingDown
	}
}

// Reconnect tears down any existing session for the account and rebuilds
// it, returning once live mode is armed or the connect failed
func (m *Manager) Reconnect(accountID string) error {
	m.ensureStarted()

	r, ok := m.runners[accountID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrAccountNotFound, accountID)
	}
	return m.requestConnect(r)
}

// DisconnectAll tears down every session; accounts stay registered and
// can be reconnected later
func (m *Manager) DisconnectAll() {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if !started {
		return
	}

	var wg sync.WaitGroup
	for _, id := range m.order {
		r := m.runners[id]
		wg.Add(1)
		go func(r *accountRunner) {
			defer wg.Done()
			req := disconnectRequest{reply: make(chan struct{})}
			select {
			case r.disconnectReq <- req:
				<-req.reply
			case <-r.stop:
			}
		}(r)
	}
	wg.Wait()

	log.Printf("[Sync] all accounts disconnected")
}

// Status returns a snapshot of one account's sync state
func (m *Manager) Status(accountID string) (events.AccountStatus, error) {
	r, ok := m.runners[accountID]
	if !ok {
		return events.AccountStatus{}, fmt.Errorf("%w: %q", ErrAccountNotFound, accountID)
	}
	return r.snapshot(), nil
}

// Statuses returns snapshots for every account in configuration order
func (m *Manager) Statuses() []events.AccountStatus {
	out := make([]events.AccountStatus, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.runners[id].snapshot())
	}
	return out
}

// Watermark exposes an account's current watermark
func (m *Manager) Watermark(accountID string) (uint32, error) {
	r, ok := m.runners[accountID]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrAccountNotFound, accountID)
	}
	return r.watermarkSnapshot(), nil
}

// AccountIDs lists the configured accounts in order
func (m *Manager) AccountIDs() []string {
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	return ids
}

// Shutdown stops every runner permanently and waits for them to exit
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	started := m.started
	m.mu.Unlock()

	for _, r := range m.runners {
		close(r.stop)
	}
	if started {
		for _, r := range m.runners {
			<-r.finished
		}
	}

	log.Printf("[Sync] manager stopped")
}
