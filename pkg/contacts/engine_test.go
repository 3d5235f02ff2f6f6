package contacts_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davisshaver/audiencesync/pkg/contacts"
	"github.com/davisshaver/audiencesync/pkg/lists"
	"github.com/davisshaver/audiencesync/pkg/provider"
)

type upsertCall struct {
	contact   *provider.Contact
	providers []string
}

// fakeProvider implements the base provider contract only. Optional
// capabilities live on the embedding fakes below.
type fakeProvider struct {
	upsertErr   error
	upsertPanic any
	existing    *provider.Contact

	upsertCalls []upsertCall
	getCalls    int
}

func (p *fakeProvider) Service() string { return "fake" }

func (p *fakeProvider) UpsertContact(_ context.Context, c *provider.Contact, subscribe []*lists.List) (*provider.Contact, error) {
	ids := make([]string, len(subscribe))
	for i, l := range subscribe {
		ids[i] = l.ProviderID
	}
	p.upsertCalls = append(p.upsertCalls, upsertCall{contact: c.Clone(), providers: ids})
	if p.upsertPanic != nil {
		panic(p.upsertPanic)
	}
	if p.upsertErr != nil {
		return nil, p.upsertErr
	}
	return c.Clone(), nil
}

func (p *fakeProvider) GetContact(_ context.Context, email string) (*provider.Contact, error) {
	p.getCalls++
	if p.existing == nil || p.existing.Email != email {
		return nil, provider.ErrContactNotFound
	}
	return p.existing.Clone(), nil
}

func (p *fakeProvider) ReaderErrorMessage(ref provider.ErrorRef, _ error) string {
	return "Something went wrong subscribing " + ref.Email
}

type listManagerCall struct {
	email       string
	add, remove []string
}

type fakeListManager struct {
	fakeProvider

	current    []string
	currentErr error
	updateErr  error

	currentCalls int
	updateCalls  []listManagerCall
}

func (p *fakeListManager) ContactLists(_ context.Context, _ string) ([]string, error) {
	p.currentCalls++
	return p.current, p.currentErr
}

func (p *fakeListManager) UpdateContactLists(_ context.Context, email string, add, remove []string, _ string) error {
	p.updateCalls = append(p.updateCalls, listManagerCall{email: email, add: add, remove: remove})
	return p.updateErr
}

type fakeDeleter struct {
	fakeProvider

	deleteErr error
	deleted   []string
}

func (p *fakeDeleter) DeleteContact(_ context.Context, email string) error {
	p.deleted = append(p.deleted, email)
	return p.deleteErr
}

type fakeSource struct {
	byID  map[string]*lists.List
	order []string
}

func newFakeSource(ids ...string) *fakeSource {
	s := &fakeSource{byID: make(map[string]*lists.List, len(ids))}
	for _, id := range ids {
		s.byID[id] = &lists.List{PublicID: id, ProviderID: "prov-" + id, Active: true}
		s.order = append(s.order, id)
	}
	return s
}

func (s *fakeSource) Resolve(_ context.Context, publicID string) (*lists.List, error) {
	l, ok := s.byID[publicID]
	if !ok {
		return nil, lists.ErrNotFound
	}
	return l, nil
}

func (s *fakeSource) KnownIDs(_ context.Context) ([]string, error) {
	return s.order, nil
}

type fakeQueue struct {
	intents []contacts.SubscribeIntent
	err     error
}

func (q *fakeQueue) Enqueue(_ context.Context, intent contacts.SubscribeIntent) error {
	if q.err != nil {
		return q.err
	}
	q.intents = append(q.intents, intent)
	return nil
}

func TestEngineUpsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("injects origin metadata", func(t *testing.T) {
		t.Parallel()

		p := &fakeProvider{}
		e := contacts.New(p, newFakeSource("weekly"))

		in := &provider.Contact{Email: "reader@example.com", Metadata: map[string]string{"plan": "basic"}}
		result, err := e.Upsert(ctx, in, []string{"weekly"}, "test", nil)
		require.NoError(t, err)
		require.NotNil(t, result)

		require.Len(t, p.upsertCalls, 1)
		sent := p.upsertCalls[0].contact
		require.Equal(t, "1", sent.Metadata["origin_newspack"])
		require.Equal(t, "basic", sent.Metadata["plan"])
		require.Equal(t, []string{"prov-weekly"}, p.upsertCalls[0].providers)

		// The caller's value must not be mutated.
		require.NotContains(t, in.Metadata, "origin_newspack")
	})

	t.Run("injects origin metadata with nil metadata map", func(t *testing.T) {
		t.Parallel()

		p := &fakeProvider{}
		e := contacts.New(p, newFakeSource())

		_, err := e.Upsert(ctx, &provider.Contact{Email: "reader@example.com"}, nil, "test", nil)
		require.NoError(t, err)
		require.Equal(t, "1", p.upsertCalls[0].contact.Metadata["origin_newspack"])
	})

	t.Run("rejects empty email", func(t *testing.T) {
		t.Parallel()

		e := contacts.New(&fakeProvider{}, newFakeSource())

		_, err := e.Upsert(ctx, &provider.Contact{}, nil, "test", nil)
		require.Error(t, err)
		require.Equal(t, contacts.CodeInvalidUser, contacts.ErrorCode(err))

		_, err = e.Upsert(ctx, nil, nil, "test", nil)
		require.Equal(t, contacts.CodeInvalidUser, contacts.ErrorCode(err))
	})

	t.Run("rejects missing provider after pre-add", func(t *testing.T) {
		t.Parallel()

		e := contacts.New(nil, newFakeSource())

		var preAdds int
		e.Hooks().OnPreAdd(func(contacts.PreAddEvent) { preAdds++ })

		_, err := e.Upsert(ctx, &provider.Contact{Email: "reader@example.com"}, nil, "test", nil)
		require.Equal(t, contacts.CodeInvalidProvider, contacts.ErrorCode(err))
		require.Equal(t, 1, preAdds)
	})

	t.Run("aggregates unknown lists without blocking valid ones", func(t *testing.T) {
		t.Parallel()

		p := &fakeProvider{}
		e := contacts.New(p, newFakeSource("weekly", "daily"), contacts.WithDebugErrors(true))

		_, err := e.Upsert(ctx, &provider.Contact{Email: "reader@example.com"},
			[]string{"weekly", "bogus", "daily"}, "test", nil)
		require.Error(t, err)

		var list *contacts.ErrorList
		require.ErrorAs(t, err, &list)
		require.Equal(t, []string{contacts.CodeInvalidList}, list.Codes())

		// The provider write still happened with the two valid lists.
		require.Len(t, p.upsertCalls, 1)
		require.Equal(t, []string{"prov-weekly", "prov-daily"}, p.upsertCalls[0].providers)
	})

	t.Run("reader-safe message without debug errors", func(t *testing.T) {
		t.Parallel()

		p := &fakeProvider{upsertErr: &provider.Error{Code: "fake_api_error", Message: "HTTP 500: stack trace"}}
		e := contacts.New(p, newFakeSource())

		_, err := e.Upsert(ctx, &provider.Contact{Email: "reader@example.com"}, nil, "test", nil)
		require.Error(t, err)
		require.Equal(t, contacts.CodeUpsertContact, contacts.ErrorCode(err))
		require.NotContains(t, err.Error(), "stack trace")
		require.Contains(t, err.Error(), "reader@example.com")
	})

	t.Run("full aggregate with debug errors", func(t *testing.T) {
		t.Parallel()

		p := &fakeProvider{upsertErr: &provider.Error{Code: "fake_api_error", Message: "boom"}}
		e := contacts.New(p, newFakeSource(), contacts.WithDebugErrors(true))

		_, err := e.Upsert(ctx, &provider.Contact{Email: "reader@example.com"}, []string{"bogus"}, "test", nil)

		var list *contacts.ErrorList
		require.ErrorAs(t, err, &list)
		require.Equal(t, []string{contacts.CodeInvalidList, "fake_api_error"}, list.Codes())
	})

	t.Run("provider panic becomes add-contact error", func(t *testing.T) {
		t.Parallel()

		p := &fakeProvider{upsertPanic: "adapter exploded"}
		e := contacts.New(p, newFakeSource(), contacts.WithDebugErrors(true))

		_, err := e.Upsert(ctx, &provider.Contact{Email: "reader@example.com"}, nil, "test", nil)

		var list *contacts.ErrorList
		require.ErrorAs(t, err, &list)
		require.Equal(t, []string{contacts.CodeAddContact}, list.Codes())
		require.Contains(t, list.Messages()[0], "adapter exploded")
	})

	t.Run("existing hint is re-fetched, never trusted", func(t *testing.T) {
		t.Parallel()

		fresh := &provider.Contact{Email: "reader@example.com", Name: "Fresh Name"}
		p := &fakeProvider{existing: fresh}
		e := contacts.New(p, newFakeSource())

		stale := &provider.Contact{Email: "reader@example.com", Name: "Stale Name"}
		_, err := e.Upsert(ctx, &provider.Contact{Email: "reader@example.com"}, nil, "test", stale)
		require.NoError(t, err)

		require.Equal(t, 1, p.getCalls)
		require.NotNil(t, p.upsertCalls[0].contact.Existing)
		require.Equal(t, "Fresh Name", p.upsertCalls[0].contact.Existing.Name)
	})

	t.Run("nil hint skips the existing fetch", func(t *testing.T) {
		t.Parallel()

		p := &fakeProvider{}
		e := contacts.New(p, newFakeSource())

		_, err := e.Upsert(ctx, &provider.Contact{Email: "reader@example.com"}, nil, "test", nil)
		require.NoError(t, err)
		require.Zero(t, p.getCalls)
		require.Nil(t, p.upsertCalls[0].contact.Existing)
	})

	t.Run("contact and lists filters run in order", func(t *testing.T) {
		t.Parallel()

		p := &fakeProvider{}
		e := contacts.New(p, newFakeSource("weekly", "daily"))

		e.Hooks().FilterContact(func(c *provider.Contact, _ []string, _ string) *provider.Contact {
			c.Name = "First"
			return c
		})
		e.Hooks().FilterContact(func(c *provider.Contact, _ []string, _ string) *provider.Contact {
			c.Name += " Second"
			return c
		})
		// A nil return leaves the previous value in place.
		e.Hooks().FilterContact(func(*provider.Contact, []string, string) *provider.Contact {
			return nil
		})
		e.Hooks().FilterLists(func(ids []string, _ *provider.Contact, _ string) []string {
			return append(ids, "daily")
		})

		_, err := e.Upsert(ctx, &provider.Contact{Email: "reader@example.com"}, []string{"weekly"}, "test", nil)
		require.NoError(t, err)
		require.Equal(t, "First Second", p.upsertCalls[0].contact.Name)
		require.Equal(t, []string{"prov-weekly", "prov-daily"}, p.upsertCalls[0].providers)
	})

	t.Run("upserted event fires on success and failure", func(t *testing.T) {
		t.Parallel()

		p := &fakeProvider{upsertErr: errors.New("down")}
		e := contacts.New(p, newFakeSource())

		var events []contacts.UpsertedEvent
		e.Hooks().OnUpserted(func(ev contacts.UpsertedEvent) { events = append(events, ev) })

		_, err := e.Upsert(ctx, &provider.Contact{Email: "reader@example.com"}, nil, "signup", nil)
		require.Error(t, err)
		require.Len(t, events, 1)
		require.Error(t, events[0].Err)
		require.Equal(t, "signup", events[0].Reason)
	})
}

func TestEngineSubscribe(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("narrows metadata to status and name", func(t *testing.T) {
		t.Parallel()

		p := &fakeProvider{}
		e := contacts.New(p, newFakeSource("weekly"))

		in := &provider.Contact{
			Email: "reader@example.com",
			Metadata: map[string]string{
				"status":     "active",
				"name":       "Reader",
				"utm_source": "twitter",
			},
		}

		var subscribed []contacts.SubscribedEvent
		e.Hooks().OnSubscribed(func(ev contacts.SubscribedEvent) { subscribed = append(subscribed, ev) })

		result, err := e.Subscribe(ctx, in, []string{"weekly"}, false, "signup")
		require.NoError(t, err)
		require.False(t, result.Queued)

		sent := p.upsertCalls[0].contact.Metadata
		require.Equal(t, "active", sent["status"])
		require.Equal(t, "Reader", sent["name"])
		require.NotContains(t, sent, "utm_source")

		// The event keeps the full original metadata.
		require.Len(t, subscribed, 1)
		require.Equal(t, "twitter", subscribed[0].Contact.Metadata["utm_source"])
	})

	t.Run("reports updating for a known contact", func(t *testing.T) {
		t.Parallel()

		p := &fakeProvider{existing: &provider.Contact{Email: "reader@example.com"}}
		e := contacts.New(p, newFakeSource())

		result, err := e.Subscribe(ctx, &provider.Contact{Email: "reader@example.com"}, nil, false, "signup")
		require.NoError(t, err)
		require.True(t, result.Updating)
	})

	t.Run("async enqueues without touching the provider", func(t *testing.T) {
		t.Parallel()

		p := &fakeProvider{}
		q := &fakeQueue{}
		e := contacts.New(p, newFakeSource(), contacts.WithIntentQueue(q))

		result, err := e.Subscribe(ctx, &provider.Contact{Email: "reader@example.com"}, []string{"weekly"}, true, "signup")
		require.NoError(t, err)
		require.True(t, result.Queued)
		require.Nil(t, result.Contact)

		require.Empty(t, p.upsertCalls)
		require.Zero(t, p.getCalls)
		require.Len(t, q.intents, 1)
		require.NotEmpty(t, q.intents[0].ID)
		require.Equal(t, "reader@example.com", q.intents[0].Contact.Email)
		require.Equal(t, []string{"weekly"}, q.intents[0].ListIDs)
	})

	t.Run("async flag ignored without a queue", func(t *testing.T) {
		t.Parallel()

		p := &fakeProvider{}
		e := contacts.New(p, newFakeSource())

		result, err := e.Subscribe(ctx, &provider.Contact{Email: "reader@example.com"}, nil, true, "signup")
		require.NoError(t, err)
		require.False(t, result.Queued)
		require.Len(t, p.upsertCalls, 1)
	})

	t.Run("enqueue failure surfaces", func(t *testing.T) {
		t.Parallel()

		q := &fakeQueue{err: errors.New("queue down")}
		e := contacts.New(&fakeProvider{}, newFakeSource(), contacts.WithIntentQueue(q))

		_, err := e.Subscribe(ctx, &provider.Contact{Email: "reader@example.com"}, nil, true, "signup")
		require.ErrorContains(t, err, "queue down")
	})

	t.Run("rejects empty email before enqueueing", func(t *testing.T) {
		t.Parallel()

		q := &fakeQueue{}
		e := contacts.New(&fakeProvider{}, newFakeSource(), contacts.WithIntentQueue(q))

		_, err := e.Subscribe(ctx, &provider.Contact{}, nil, true, "signup")
		require.Equal(t, contacts.CodeInvalidUser, contacts.ErrorCode(err))
		require.Empty(t, q.intents)
	})
}

func TestEngineUpdateLists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("computes the minimal delta", func(t *testing.T) {
		t.Parallel()

		p := &fakeListManager{current: []string{"a", "b"}}
		e := contacts.New(p, newFakeSource("a", "b", "c"))

		status, err := e.UpdateLists(ctx, "reader@example.com", []string{"b", "c"}, "prefs")
		require.NoError(t, err)
		require.Equal(t, contacts.ListsUpdated, status)

		require.Len(t, p.updateCalls, 1)
		require.Equal(t, []string{"c"}, p.updateCalls[0].add)
		require.Equal(t, []string{"a"}, p.updateCalls[0].remove)
	})

	t.Run("ignores desired IDs outside the known universe", func(t *testing.T) {
		t.Parallel()

		p := &fakeListManager{current: nil}
		e := contacts.New(p, newFakeSource("a"))

		status, err := e.UpdateLists(ctx, "reader@example.com", []string{"a", "ghost"}, "prefs")
		require.NoError(t, err)
		require.Equal(t, contacts.ListsUpdated, status)
		require.Equal(t, []string{"a"}, p.updateCalls[0].add)
	})

	t.Run("no-op short circuits without a provider write", func(t *testing.T) {
		t.Parallel()

		p := &fakeListManager{current: []string{"a", "b"}}
		e := contacts.New(p, newFakeSource("a", "b"))

		status, err := e.UpdateLists(ctx, "reader@example.com", []string{"a", "b"}, "prefs")
		require.NoError(t, err)
		require.Equal(t, contacts.ListsUnchanged, status)
		require.Empty(t, p.updateCalls)
	})

	t.Run("unsupported provider", func(t *testing.T) {
		t.Parallel()

		e := contacts.New(&fakeProvider{}, newFakeSource("a"))

		status, err := e.UpdateLists(ctx, "reader@example.com", []string{"a"}, "prefs")
		require.Equal(t, contacts.ListsUnchanged, status)
		require.Equal(t, contacts.CodeNotSupported, contacts.ErrorCode(err))
	})

	t.Run("missing provider", func(t *testing.T) {
		t.Parallel()

		e := contacts.New(nil, newFakeSource("a"))

		_, err := e.UpdateLists(ctx, "reader@example.com", []string{"a"}, "prefs")
		require.Equal(t, contacts.CodeInvalidProvider, contacts.ErrorCode(err))
	})

	t.Run("current-lists failure aborts before the write", func(t *testing.T) {
		t.Parallel()

		p := &fakeListManager{currentErr: errors.New("api down")}
		e := contacts.New(p, newFakeSource("a"))

		_, err := e.UpdateLists(ctx, "reader@example.com", []string{"a"}, "prefs")
		require.ErrorContains(t, err, "api down")
		require.Empty(t, p.updateCalls)
	})

	t.Run("explicit delta emits the update event", func(t *testing.T) {
		t.Parallel()

		p := &fakeListManager{}
		e := contacts.New(p, newFakeSource("a", "b"))

		var events []contacts.ListsUpdatedEvent
		e.Hooks().OnListsUpdated(func(ev contacts.ListsUpdatedEvent) { events = append(events, ev) })

		err := e.AddAndRemoveLists(ctx, "reader@example.com", []string{"a"}, []string{"b"}, "prefs")
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.Equal(t, []string{"a"}, events[0].Added)
		require.Equal(t, []string{"b"}, events[0].Removed)
	})
}

func TestEngineDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("deletes via the optional capability", func(t *testing.T) {
		t.Parallel()

		p := &fakeDeleter{}
		e := contacts.New(p, newFakeSource())

		var events []contacts.DeletedEvent
		e.Hooks().OnDeleted(func(ev contacts.DeletedEvent) { events = append(events, ev) })

		require.NoError(t, e.Delete(ctx, "reader@example.com", "gdpr"))
		require.Equal(t, []string{"reader@example.com"}, p.deleted)
		require.Len(t, events, 1)
		require.Equal(t, "gdpr", events[0].Reason)
	})

	t.Run("provider without delete support", func(t *testing.T) {
		t.Parallel()

		e := contacts.New(&fakeProvider{}, newFakeSource())

		err := e.Delete(ctx, "reader@example.com", "gdpr")
		require.Equal(t, contacts.CodeInvalidProviderMethod, contacts.ErrorCode(err))
	})

	t.Run("guards empty email and missing provider", func(t *testing.T) {
		t.Parallel()

		e := contacts.New(&fakeDeleter{}, newFakeSource())
		require.Equal(t, contacts.CodeInvalidUser, contacts.ErrorCode(e.Delete(ctx, "", "gdpr")))

		e = contacts.New(nil, newFakeSource())
		require.Equal(t, contacts.CodeInvalidProvider, contacts.ErrorCode(e.Delete(ctx, "reader@example.com", "gdpr")))
	})
}
