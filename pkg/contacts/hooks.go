package contacts

import (
	"sync"

	"github.com/davisshaver/audiencesync/pkg/provider"
)

// ContactFilter may replace or annotate the contact on its way to the
// wire. Filters run synchronously in registration order; each receives
// the previous filter's output, so the last writer wins.
type ContactFilter func(contact *provider.Contact, listIDs []string, service string) *provider.Contact

// ListsFilter may reshape the requested list IDs before resolution.
type ListsFilter func(listIDs []string, contact *provider.Contact, service string) []string

// Hooks is the engine's extension surface: ordered filter chains that
// thread a value through each callback, and fire-and-forget notification
// callbacks whose return values are ignored.
//
// Registration is safe for concurrent use; callbacks themselves run
// in-process on every call and should be side-effect-considerate.
type Hooks struct {
	mu sync.RWMutex

	contactFilters []ContactFilter
	listsFilters   []ListsFilter

	preAdd       []func(PreAddEvent)
	subscribed   []func(SubscribedEvent)
	upserted     []func(UpsertedEvent)
	listsUpdated []func(ListsUpdatedEvent)
	deleted      []func(DeletedEvent)
}

// NewHooks creates an empty hook set.
func NewHooks() *Hooks {
	return &Hooks{}
}

// FilterContact registers a contact filter.
func (h *Hooks) FilterContact(f ContactFilter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.contactFilters = append(h.contactFilters, f)
}

// FilterLists registers a lists filter.
func (h *Hooks) FilterLists(f ListsFilter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listsFilters = append(h.listsFilters, f)
}

// OnPreAdd registers a pre-write notification callback.
func (h *Hooks) OnPreAdd(f func(PreAddEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.preAdd = append(h.preAdd, f)
}

// OnSubscribed registers a post-subscribe notification callback.
func (h *Hooks) OnSubscribed(f func(SubscribedEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribed = append(h.subscribed, f)
}

// OnUpserted registers a post-upsert notification callback.
func (h *Hooks) OnUpserted(f func(UpsertedEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.upserted = append(h.upserted, f)
}

// OnListsUpdated registers a post-list-update notification callback.
func (h *Hooks) OnListsUpdated(f func(ListsUpdatedEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listsUpdated = append(h.listsUpdated, f)
}

// OnDeleted registers a post-delete notification callback.
func (h *Hooks) OnDeleted(f func(DeletedEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleted = append(h.deleted, f)
}

func (h *Hooks) applyContactFilters(c *provider.Contact, listIDs []string, service string) *provider.Contact {
	h.mu.RLock()
	filters := h.contactFilters
	h.mu.RUnlock()

	for _, f := range filters {
		if next := f(c, listIDs, service); next != nil {
			c = next
		}
	}
	return c
}

func (h *Hooks) applyListsFilters(listIDs []string, c *provider.Contact, service string) []string {
	h.mu.RLock()
	filters := h.listsFilters
	h.mu.RUnlock()

	for _, f := range filters {
		listIDs = f(listIDs, c, service)
	}
	return listIDs
}

func (h *Hooks) emitPreAdd(e PreAddEvent) {
	h.mu.RLock()
	cbs := h.preAdd
	h.mu.RUnlock()
	for _, cb := range cbs {
		cb(e)
	}
}

func (h *Hooks) emitSubscribed(e SubscribedEvent) {
	h.mu.RLock()
	cbs := h.subscribed
	h.mu.RUnlock()
	for _, cb := range cbs {
		cb(e)
	}
}

func (h *Hooks) emitUpserted(e UpsertedEvent) {
	h.mu.RLock()
	cbs := h.upserted
	h.mu.RUnlock()
	for _, cb := range cbs {
		cb(e)
	}
}

func (h *Hooks) emitListsUpdated(e ListsUpdatedEvent) {
	h.mu.RLock()
	cbs := h.listsUpdated
	h.mu.RUnlock()
	for _, cb := range cbs {
		cb(e)
	}
}

func (h *Hooks) emitDeleted(e DeletedEvent) {
	h.mu.RLock()
	cbs := h.deleted
	h.mu.RUnlock()
	for _, cb := range cbs {
		cb(e)
	}
}
