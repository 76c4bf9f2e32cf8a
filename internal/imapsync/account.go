package imapsync

import (
	"log"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/config"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/database/models"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/events"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/parser"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/services"
)

// State identifies where an account is in its sync lifecycle
type State string

const (
	StateIdle             State = "idle"
	StateConnecting       State = "connecting"
	StateBackfilling      State = "backfilling"
	StateLive             State = "live"
	StateReconnectPending State = "reconnect_pending"
	StateDisconnected     State = "disconnected"
)

const (
	// keepaliveInterval restarts IDLE well inside common server timeouts
	// so silently dead connections surface quickly
	keepaliveInterval = 29 * time.Second

	// reconnectDelay is the pause before the single automatic reconnect
	// attempt after an unsolicited close
	reconnectDelay = 2 * time.Second

	// updateBuffer sizes the channel for unilateral server updates
	updateBuffer = 128
)

// connectRequest asks the runner to establish (or rebuild) its session.
// reply is nil for automatic reconnects; otherwise it receives nil once
// live mode is armed, or the connect error.
type connectRequest struct {
	reply chan error
}

// disconnectRequest asks the runner to tear the session down; the
// account lands in the disconnected state until the next connect
type disconnectRequest struct {
	reply chan struct{}
}

type sessionEnd int

const (
	sessionEndedError sessionEnd = iota // connect/bootstrap failed, runner idles
	sessionEndedDrop                    // unsolicited close, auto reconnect follows
	sessionEndedManual                  // disconnect request or reconnect handover
	sessionEndedStop                    // process shutdown
)

type sessionOutcome struct {
	kind sessionEnd
	next *connectRequest // set on reconnect handover
}

// accountRunner owns everything mutable about one account: session,
// status record, watermark. All mutations happen on the runner goroutine;
// everything else reads snapshot copies.
type accountRunner struct {
	acc      config.AccountConfig
	password string

	bus  *events.Bus
	logs *services.LogService

	connectReq    chan connectRequest
	disconnectReq chan disconnectRequest
	stop          chan struct{}
	finished      chan struct{}

	mu        sync.Mutex
	status    events.AccountStatus
	watermark uint32

	backfilled bool // runner goroutine only
}

func newAccountRunner(acc config.AccountConfig, password string, bus *events.Bus, logs *services.LogService) *accountRunner {
	return &accountRunner{
		acc:           acc,
		password:      password,
		bus:           bus,
		logs:          logs,
		connectReq:    make(chan connectRequest),
		disconnectReq: make(chan disconnectRequest),
		stop:          make(chan struct{}),
		finished:      make(chan struct{}),
		status: events.AccountStatus{
			AccountID: acc.ID,
			State:     string(StateIdle),
		},
	}
}

func (r *accountRunner) start() {
	go r.run()
}

// mutate applies fn to the status record and publishes the new snapshot.
// Every field change goes through here so status-changed events track
// each mutation.
func (r *accountRunner) mutate(fn func(*events.AccountStatus)) {
	r.mu.Lock()
	fn(&r.status)
	snap := r.status
	r.mu.Unlock()
	r.bus.PublishStatus(events.StatusChanged{Status: snap, At: time.Now()})
}

func (r *accountRunner) setState(s State) {
	r.mutate(func(st *events.AccountStatus) {
		st.State = string(s)
	})
}

func (r *accountRunner) snapshot() events.AccountStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *accountRunner) watermarkSnapshot() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watermark
}

// run is the account's lifecycle loop. Only this goroutine touches the
// session or advances the watermark.
func (r *accountRunner) run() {
	defer close(r.finished)
	defer r.mutate(func(st *events.AccountStatus) {
		st.State = string(StateDisconnected)
		st.Connected = false
	})

	var pending *connectRequest
	for {
		if pending == nil {
			select {
			case <-r.stop:
				return
			case req := <-r.connectReq:
				pending = &req
			case dreq := <-r.disconnectReq:
				// No session to tear down
				close(dreq.reply)
				continue
			}
		}

		req := pending
		pending = nil

		outcome := r.runSession(req)
		switch outcome.kind {
		case sessionEndedStop:
			return
		case sessionEndedManual:
			pending = outcome.next
		case sessionEndedError:
			// Stay idle; the next connect is caller-initiated
		case sessionEndedDrop:
			r.setState(StateReconnectPending)
			select {
			case <-r.stop:
				return
			case <-time.After(reconnectDelay):
				pending = &connectRequest{}
			case creq := <-r.connectReq:
				pending = &creq
			case dreq := <-r.disconnectReq:
				r.setState(StateDisconnected)
				close(dreq.reply)
			}
		}
	}
}

// runSession drives one full connect -> backfill/catch-up -> live cycle.
// It returns when the session ends for any reason.
func (r *accountRunner) runSession(req *connectRequest) sessionOutcome {
	r.setState(StateConnecting)

	c, err := connect(r.acc, r.password)
	if err != nil {
		return r.failBeforeLive(req, err)
	}

	log.Printf("[Sync] %s: connected to %s", r.acc.ID, r.acc.Addr())
	r.logs.LogSyncConnect(r.acc.ID, nil)
	r.mutate(func(st *events.AccountStatus) {
		st.Connected = true
		st.LastError = ""
	})

	// Until live mode is armed, a watcher closes the connection on
	// shutdown or disconnect so an in-flight search/fetch cannot block
	// teardown. The live loop then takes over both channels itself.
	preLiveDone := make(chan struct{})
	discFired := make(chan struct{})
	pendingDisc := make(chan disconnectRequest, 1)
	go func() {
		select {
		case <-r.stop:
			c.Close()
		case dreq := <-r.disconnectReq:
			pendingDisc <- dreq
			close(discFired)
			c.Close()
		case <-preLiveDone:
		}
	}()

	mbox, err := c.Select(models.FolderInbox, true)
	if err != nil {
		return r.classifyBootstrapError(req, c, discFired, pendingDisc, err)
	}

	r.setState(StateBackfilling)

	if !r.backfilled {
		uids, serr := searchAllUIDs(c)
		if serr == nil {
			serr = r.fetchAndPublish(c, uids, "backfill")
		}
		if serr != nil {
			return r.classifyBootstrapError(req, c, discFired, pendingDisc, serr)
		}
		r.backfilled = true
	} else {
		// Catch up on anything that arrived while disconnected
		if cerr := r.incrementalFetch(c, mbox.UidNext); cerr != nil {
			return r.classifyBootstrapError(req, c, discFired, pendingDisc, cerr)
		}
	}

	// Watermark starts just below the mailbox's next UID so backfill and
	// live fetch ranges meet without a gap
	r.mu.Lock()
	if mbox.UidNext > 0 && mbox.UidNext-1 > r.watermark {
		r.watermark = mbox.UidNext - 1
	}
	r.mu.Unlock()

	close(preLiveDone)

	// The watcher may have fired between backfill completion and here
	select {
	case <-discFired:
		dreq := <-pendingDisc
		r.goDisconnected("requested")
		close(dreq.reply)
		return sessionOutcome{kind: sessionEndedManual}
	default:
	}

	return r.runLive(c, req, discFired, pendingDisc)
}

// failBeforeLive records a failed connect attempt and answers the caller
func (r *accountRunner) failBeforeLive(req *connectRequest, err error) sessionOutcome {
	log.Printf("[Sync] %s: %v", r.acc.ID, err)
	r.logs.LogSyncConnect(r.acc.ID, err)
	r.mutate(func(st *events.AccountStatus) {
		st.State = string(StateIdle)
		st.Connected = false
		st.LastError = err.Error()
	})
	if req.reply != nil {
		req.reply <- err
	}
	return sessionOutcome{kind: sessionEndedError}
}

// classifyBootstrapError decides whether a pre-live failure was caused by
// shutdown, a disconnect request, or a genuine error
func (r *accountRunner) classifyBootstrapError(req *connectRequest, c *client.Client, discFired chan struct{}, pendingDisc chan disconnectRequest, err error) sessionOutcome {
	select {
	case <-r.stop:
		if req.reply != nil {
			req.reply <- ErrShuttingDown
		}
		return sessionOutcome{kind: sessionEndedStop}
	default:
	}

	select {
	case <-discFired:
		dreq := <-pendingDisc
		r.goDisconnected("requested")
		close(dreq.reply)
		if req.reply != nil {
			req.reply <- ErrShuttingDown
		}
		return sessionOutcome{kind: sessionEndedManual}
	default:
	}

	c.Logout()
	return r.failBeforeLive(req, err)
}

func (r *accountRunner) goDisconnected(reason string) {
	r.logs.LogSyncDisconnect(r.acc.ID, reason)
	r.mutate(func(st *events.AccountStatus) {
		st.State = string(StateDisconnected)
		st.Connected = false
	})
}

// runLive arms IDLE and services new-mail notifications until the session
// ends. Grounded on the restart-IDLE-per-event pattern: each notification
// or keepalive tick stops the current IDLE, does its work, and arms a
// fresh one.
func (r *accountRunner) runLive(c *client.Client, req *connectRequest, discFired chan struct{}, pendingDisc chan disconnectRequest) sessionOutcome {
	r.setState(StateLive)
	if req.reply != nil {
		req.reply <- nil
	}

	updates := make(chan client.Update, updateBuffer)
	c.Updates = updates

	stopIdle := make(chan struct{})
	doneIdle := make(chan error, 1)
	go func() { doneIdle <- c.Idle(stopIdle, nil) }()

	for {
		select {
		case <-r.stop:
			close(stopIdle)
			<-doneIdle
			c.Logout()
			return sessionOutcome{kind: sessionEndedStop}

		case dreq := <-r.disconnectReq:
			close(stopIdle)
			<-doneIdle
			c.Logout()
			r.goDisconnected("requested")
			close(dreq.reply)
			return sessionOutcome{kind: sessionEndedManual}

		case creq := <-r.connectReq:
			// Reconnect always tears down and rebuilds
			close(stopIdle)
			<-doneIdle
			c.Logout()
			r.logs.LogSyncDisconnect(r.acc.ID, "reconnect")
			r.mutate(func(st *events.AccountStatus) {
				st.Connected = false
			})
			return sessionOutcome{kind: sessionEndedManual, next: &creq}

		case update := <-updates:
			close(stopIdle)
			<-doneIdle

			if _, ok := update.(*client.MailboxUpdate); ok {
				if err := r.liveCycle(c); err != nil {
					// Cycle aborted, watermark unchanged; the next
					// notification retries the same range
					log.Printf("[Sync] %s: live fetch: %v", r.acc.ID, err)
				}
			}

			stopIdle = make(chan struct{})
			doneIdle = make(chan error, 1)
			go func() { doneIdle <- c.Idle(stopIdle, nil) }()

		case <-time.After(keepaliveInterval):
			close(stopIdle)
			<-doneIdle
			stopIdle = make(chan struct{})
			doneIdle = make(chan error, 1)
			go func() { doneIdle <- c.Idle(stopIdle, nil) }()

		case idleErr := <-doneIdle:
			// IDLE ended without being asked to: the connection is gone
			select {
			case <-r.stop:
				c.Logout()
				return sessionOutcome{kind: sessionEndedStop}
			default:
			}
			select {
			case <-discFired:
				dreq := <-pendingDisc
				r.goDisconnected("requested")
				close(dreq.reply)
				return sessionOutcome{kind: sessionEndedManual}
			default:
			}

			log.Printf("[Sync] %s: connection lost: %v", r.acc.ID, idleErr)
			r.logs.LogSyncDisconnect(r.acc.ID, "unsolicited")
			r.mutate(func(st *events.AccountStatus) {
				st.Connected = false
				if idleErr != nil {
					st.LastError = idleErr.Error()
				} else {
					st.LastError = "connection closed by server"
				}
			})
			return sessionOutcome{kind: sessionEndedDrop}
		}
	}
}

// liveCycle re-reads mailbox status and fetches everything above the
// watermark
func (r *accountRunner) liveCycle(c *client.Client) error {
	mbox, err := c.Select(models.FolderInbox, true)
	if err != nil {
		return err
	}
	return r.incrementalFetch(c, mbox.UidNext)
}

// incrementalFetch runs one watermark-bounded fetch cycle
func (r *accountRunner) incrementalFetch(c *client.Client, uidNext uint32) error {
	wm := r.watermarkSnapshot()
	start := liveFetchStart(wm, uidNext)

	uids, err := searchUIDsSince(c, start, wm)
	if err != nil {
		return err
	}
	if len(uids) == 0 {
		return nil
	}
	return r.fetchAndPublish(c, uids, "live_fetch")
}

// fetchAndPublish retrieves the given UIDs, parses each, publishes the
// results, and advances the watermark only after the whole cycle
// succeeded. On error the watermark is untouched so the same range is
// retried later; duplicate delivery is acceptable, loss is not.
func (r *accountRunner) fetchAndPublish(c *client.Client, uids []uint32, action string) error {
	if len(uids) == 0 {
		return nil
	}

	var (
		published int
		failures  int
		maxUID    uint32
	)

	err := fetchUIDs(c, uids, func(msg *imap.Message) {
		if msg.Uid > maxUID {
			maxUID = msg.Uid
		}

		nm, perr := parser.Parse(r.acc.ID, msg)
		if perr != nil {
			// The UID is consumed either way; dropping is final
			failures++
			log.Printf("[Sync] %s: dropping message uid=%d: %v", r.acc.ID, msg.Uid, perr)
			r.logs.LogParseFailure(r.acc.ID, msg.Uid, perr)
			return
		}

		if r.bus.PublishMessage(nm) {
			published++
		}
	})
	if err != nil {
		r.logs.LogSyncCycle(r.acc.ID, action, published, r.watermarkSnapshot(), err)
		return err
	}

	r.mu.Lock()
	if maxUID > r.watermark {
		r.watermark = maxUID
	}
	wm := r.watermark
	r.mu.Unlock()

	r.mutate(func(st *events.AccountStatus) {
		st.TotalSynced += int64(published)
		st.ParseFailures += int64(failures)
		st.LastSync = time.Now()
	})

	log.Printf("[Sync] %s: %s fetched %d messages, watermark %d", r.acc.ID, action, published, wm)
	r.logs.LogSyncCycle(r.acc.ID, action, published, wm, nil)
	return nil
}
