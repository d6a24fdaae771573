package viewmodel

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/activitytracker/internal/constants"
	"github.com/julianstephens/activitytracker/internal/errors"
	"github.com/julianstephens/activitytracker/internal/event"
	"github.com/julianstephens/activitytracker/internal/logger"
	"github.com/julianstephens/activitytracker/internal/models"
	"github.com/julianstephens/activitytracker/internal/storage"
	"github.com/julianstephens/activitytracker/internal/utils"
)

// ErrNotInitialized is returned by Publish before Initialize or after Stop
var ErrNotInitialized = errors.New("viewmodel not initialized")

// Options configures a ViewModel
type Options struct {
	// Dispatcher delivers change notifications. One is created when nil.
	Dispatcher *event.Dispatcher
	Logger     *log.Logger
	Timestamps *utils.Timestamps
}

// ActivityTotal is the summed duration of one activity label
type ActivityTotal struct {
	Activity string
	Hours    float64
	Entries  int
}

// ViewModel mediates between a view and a storage.Model. It serializes
// model access and announces changes on the dispatcher.
type ViewModel struct {
	mu          sync.Mutex
	model       storage.Model
	dispatcher  *event.Dispatcher
	ts          *utils.Timestamps
	logger      *log.Logger
	initialized bool
}

// New wraps model. The dispatcher is not started until Initialize.
func New(model storage.Model, opts Options) (*ViewModel, error) {
	if model == nil {
		return nil, errors.InvalidArgument("viewmodel requires a model")
	}
	l := logger.OrDiscard(opts.Logger)
	d := opts.Dispatcher
	if d == nil {
		d = event.NewDispatcher(event.Options{Logger: l})
	}
	ts := opts.Timestamps
	if ts == nil {
		ts = utils.Default()
	}
	return &ViewModel{
		model:      model,
		dispatcher: d,
		ts:         ts,
		logger:     l,
	}, nil
}

// Initialize starts the dispatcher. Safe to call more than once.
func (vm *ViewModel) Initialize() {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vm.dispatcher.Start()
	vm.initialized = true
	vm.logger.Debug("viewmodel initialized", "store", vm.model.StoreURI())
}

// Stop halts the dispatcher and marks the viewmodel uninitialized
func (vm *ViewModel) Stop() {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vm.dispatcher.Stop()
	vm.initialized = false
	vm.logger.Debug("viewmodel stopped")
}

// Initialized reports whether Initialize has been called since the last Stop
func (vm *ViewModel) Initialized() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.initialized
}

// Dispatcher exposes the event dispatcher for subscriptions
func (vm *ViewModel) Dispatcher() *event.Dispatcher {
	return vm.dispatcher
}

// Timestamps returns the timestamp rules used for new entries
func (vm *ViewModel) Timestamps() *utils.Timestamps {
	return vm.ts
}

// Subscribe registers handler for events published under key
func (vm *ViewModel) Subscribe(key string, handler event.Handler) string {
	return vm.dispatcher.Subscribe(key, handler)
}

// Publish forwards e to the dispatcher. Before Initialize it logs a warning
// and returns ErrNotInitialized.
func (vm *ViewModel) Publish(key string, e event.Event) error {
	if !vm.Initialized() {
		vm.logger.Warn("cannot publish event, viewmodel not initialized", "queue", key, "type", e.Type)
		return ErrNotInitialized
	}
	return vm.dispatcher.Publish(key, e)
}

// notify publishes a model event; a stopped viewmodel only logs
func (vm *ViewModel) notify(name string, payload map[string]any) {
	err := vm.Publish(constants.EventsModel, event.New(name, payload))
	if err != nil && !errors.Is(err, ErrNotInitialized) {
		vm.logger.Error("failed to publish event", "type", name, "err", err)
	}
}

// StoreURI returns the model's default location
func (vm *ViewModel) StoreURI() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.model.StoreURI()
}

// OwnerLabel returns the model's owner label
func (vm *ViewModel) OwnerLabel() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.model.OwnerLabel()
}

// Entries returns a copy of the entries in insertion order
func (vm *ViewModel) Entries() []models.ActivityEntry {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.model.Entries()
}

// AddEntry validates in, appends it to the model and announces it
func (vm *ViewModel) AddEntry(in models.EntryInput) (models.ActivityEntry, error) {
	entry, err := models.NewActivityEntryWith(vm.ts, in)
	if err != nil {
		return models.ActivityEntry{}, err
	}

	vm.mu.Lock()
	added, err := vm.model.Append(entry)
	vm.mu.Unlock()
	if err != nil {
		return models.ActivityEntry{}, err
	}

	vm.notify(constants.EventEntryAdded, map[string]any{
		"id":       added.ID(),
		"activity": added.Activity(),
	})
	return added, nil
}

// Save persists the model to uri, or its own location when uri is empty
func (vm *ViewModel) Save(uri string) error {
	vm.mu.Lock()
	err := vm.model.Save(uri)
	target := vm.target(uri)
	vm.mu.Unlock()
	if err != nil {
		return err
	}
	vm.notify(constants.EventModelSaved, map[string]any{"uri": target})
	return nil
}

// Load replaces the model with the document at uri
func (vm *ViewModel) Load(uri string) error {
	vm.mu.Lock()
	err := vm.model.Load(uri)
	target := vm.target(uri)
	count := vm.model.Len()
	vm.mu.Unlock()
	if err != nil {
		return err
	}
	vm.notify(constants.EventModelLoaded, map[string]any{"uri": target, "entries": count})
	return nil
}

// Reload re-reads the model's own store and announces a change. Used when
// the store is modified by another process.
func (vm *ViewModel) Reload() error {
	vm.mu.Lock()
	err := vm.model.Load("")
	target := vm.model.StoreURI()
	vm.mu.Unlock()
	if err != nil {
		return err
	}
	vm.notify(constants.EventModelChanged, map[string]any{"uri": target})
	return nil
}

func (vm *ViewModel) target(uri string) string {
	if uri == "" {
		return vm.model.StoreURI()
	}
	return uri
}

// Summary totals hours per activity, ordered by first appearance
func (vm *ViewModel) Summary() []ActivityTotal {
	entries := vm.Entries()

	index := make(map[string]int)
	var totals []ActivityTotal
	for _, e := range entries {
		i, ok := index[e.Activity()]
		if !ok {
			i = len(totals)
			index[e.Activity()] = i
			totals = append(totals, ActivityTotal{Activity: e.Activity()})
		}
		totals[i].Hours += e.Duration()
		totals[i].Entries++
	}
	return totals
}

// TotalHours sums every entry's duration
func (vm *ViewModel) TotalHours() float64 {
	var total float64
	for _, e := range vm.Entries() {
		total += e.Duration()
	}
	return total
}
