package services

import (
	"log"
	"sync"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/database/models"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/events"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/functions"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/parser"
)

// DefaultPipelineWorkers is how many messages are processed concurrently
const DefaultPipelineWorkers = 4

// Pipeline drains the sync event bus: every fetched message is indexed,
// categorized, and routed to notifications. Re-deliveries of an already
// stored message are recognized at the indexing step and skipped, so a
// message is categorized and notified at most once.
type Pipeline struct {
	bus        *events.Bus
	store      *StoreService
	processor  *functions.Processor
	notify     *NotifyService
	logService *LogService

	workers int
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewPipeline creates a new Pipeline instance
func NewPipeline(bus *events.Bus, store *StoreService, processor *functions.Processor,
	notify *NotifyService, logService *LogService) *Pipeline {
	return &Pipeline{
		bus:        bus,
		store:      store,
		processor:  processor,
		notify:     notify,
		logService: logService,
		workers:    DefaultPipelineWorkers,
		stop:       make(chan struct{}),
	}
}

// Start launches the worker goroutines
func (p *Pipeline) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.runWorker()
	}

	p.wg.Add(1)
	go p.runStatusDrain()

	log.Printf("[Process] pipeline started with %d workers", p.workers)
}

// Stop signals the workers and waits for them to finish their current
// message. Buffered messages left on the bus are not processed.
func (p *Pipeline) Stop() {
	p.once.Do(func() {
		close(p.stop)
	})
	p.wg.Wait()
	log.Printf("[Process] pipeline stopped")
}

// runWorker consumes messages until stopped
func (p *Pipeline) runWorker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stop:
			return
		case msg := <-p.bus.Messages():
			if msg == nil {
				continue
			}
			p.handleMessage(msg)
		}
	}
}

// handleMessage runs one message through index, categorize, and notify
func (p *Pipeline) handleMessage(msg *parser.NormalizedMessage) {
	email, created, err := p.store.Index(msg)
	if err != nil {
		p.logService.LogError(msg.AccountID, models.LogModuleIndex, "index", err.Error(), nil)
		return
	}
	if !created {
		return
	}

	category, processedBy := p.processor.Categorize(email.Subject, email.Body, email.FromAddr)
	if err := p.store.SetCategory(email.UID, category, processedBy); err != nil {
		p.logService.LogError(email.AccountID, models.LogModuleProcess, "categorize", err.Error(), nil)
		return
	}
	email.Category = category
	p.logService.LogCategorized(email.AccountID, email.UID, category, processedBy, nil)

	p.notify.NotifyCategorized(email)
}

// runStatusDrain consumes status snapshots so the status channel never
// backs up, surfacing transitions in the process log
func (p *Pipeline) runStatusDrain() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stop:
			return
		case sc := <-p.bus.Statuses():
			if sc.Status.LastError != "" && !sc.Status.Connected {
				log.Printf("[Sync] %s state=%s error=%s",
					sc.Status.AccountID, sc.Status.State, sc.Status.LastError)
			}
		}
	}
}
