package jobs

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/store"
)

// Autosave periodically flushes the catalog dataset to disk. It is a no-op
// scheduler when the store runs without persistence.
type Autosave struct {
	cron  *cron.Cron
	store *store.Store
}

// NewAutosave creates the autosave scheduler.
// schedule is a cron expression or a descriptor like "@every 5m".
func NewAutosave(st *store.Store, schedule string) (*Autosave, error) {
	a := &Autosave{
		cron:  cron.New(),
		store: st,
	}
	if _, err := a.cron.AddFunc(schedule, a.run); err != nil {
		return nil, fmt.Errorf("failed to add autosave job: %w", err)
	}
	return a, nil
}

// Start starts the scheduler
func (a *Autosave) Start() {
	if !a.store.Persisting() {
		log.Println("⚠️ Persistence disabled, autosave not scheduled")
		return
	}
	a.cron.Start()
	log.Println("⏰ Autosave scheduler started")
}

// Stop stops the scheduler
func (a *Autosave) Stop() {
	a.cron.Stop()
	log.Println("⏰ Autosave scheduler stopped")
}

func (a *Autosave) run() {
	if err := a.store.Save(); err != nil {
		log.Printf("❌ Autosave failed: %v", err)
		return
	}
	log.Println("💾 Dataset autosaved")
}
