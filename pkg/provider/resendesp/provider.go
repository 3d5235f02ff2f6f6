// Package resendesp adapts the Resend Audiences/Contacts API to the
// provider contract.
//
// Resend scopes contacts to audiences, so each subscription list maps to
// an audience via List.ProviderID. The adapter implements the base
// contract plus the delete capability; Resend cannot enumerate the
// audiences a contact belongs to, so list management is deliberately not
// implemented and the engine's capability probing reports not_supported.
package resendesp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/davisshaver/audiencesync/pkg/cache"
	"github.com/davisshaver/audiencesync/pkg/lists"
	"github.com/davisshaver/audiencesync/pkg/provider"
)

// ServiceName is the stable identifier used in audit events.
const ServiceName = "resend"

const errCode = "resend_api_error"

// contactsAPI is the slice of the Resend SDK the adapter uses.
type contactsAPI interface {
	CreateWithContext(ctx context.Context, params *resend.CreateContactRequest) (resend.CreateContactResponse, error)
	UpdateWithContext(ctx context.Context, params *resend.UpdateContactRequest) (resend.UpdateContactResponse, error)
	GetWithContext(ctx context.Context, audienceID, id string) (resend.Contact, error)
	RemoveWithContext(ctx context.Context, audienceID, id string) (resend.RemoveContactResponse, error)
}

// Provider is the Resend ESP adapter.
type Provider struct {
	contacts contactsAPI
	cfg      Config

	cache    cache.Cache[*provider.Contact]
	cacheTTL time.Duration
}

// Option configures the provider.
type Option func(*Provider)

// WithContactCache caches GetContact results, invalidated on every
// write. Keeps repeated existing-state reads off the Resend API.
func WithContactCache(c cache.Cache[*provider.Contact], ttl time.Duration) Option {
	return func(p *Provider) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

// withContactsAPI swaps the SDK client; tests use it.
func withContactsAPI(api contactsAPI) Option {
	return func(p *Provider) {
		p.contacts = api
	}
}

// New creates a Resend adapter.
func New(cfg Config, opts ...Option) *Provider {
	p := &Provider{
		contacts: resend.NewClient(cfg.APIKey).Contacts,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Service implements provider.Provider.
func (p *Provider) Service() string { return ServiceName }

// UpsertContact implements provider.Provider. The contact is written to
// every requested list's audience, or to the default audience when no
// lists were requested. Resend contacts carry no custom fields, so
// metadata other than the subscription status is dropped at the wire.
func (p *Provider) UpsertContact(ctx context.Context, contact *provider.Contact, subscribe []*lists.List) (*provider.Contact, error) {
	audiences := make([]string, 0, max(len(subscribe), 1))
	for _, l := range subscribe {
		audiences = append(audiences, l.ProviderID)
	}
	if len(audiences) == 0 {
		audiences = append(audiences, p.cfg.DefaultAudienceID)
	}

	first, last := splitName(contact.Name)
	unsubscribed := contact.Metadata["status"] == "unsubscribed"

	for _, audienceID := range audiences {
		existing, err := p.contacts.GetWithContext(ctx, audienceID, contact.Email)
		switch {
		case err == nil:
			_, err = p.contacts.UpdateWithContext(ctx, &resend.UpdateContactRequest{
				AudienceId:   audienceID,
				Id:           existing.Id,
				FirstName:    first,
				LastName:     last,
				Unsubscribed: unsubscribed,
			})
			if err != nil {
				return nil, apiError("update contact", err)
			}
		case isNotFound(err):
			_, err = p.contacts.CreateWithContext(ctx, &resend.CreateContactRequest{
				AudienceId:   audienceID,
				Email:        contact.Email,
				FirstName:    first,
				LastName:     last,
				Unsubscribed: unsubscribed,
			})
			if err != nil {
				return nil, apiError("create contact", err)
			}
		default:
			return nil, apiError("get contact", err)
		}
	}

	p.invalidate(ctx, contact.Email)

	out := &provider.Contact{
		Email:    contact.Email,
		Name:     contact.Name,
		Metadata: map[string]string{"status": statusLabel(unsubscribed)},
	}
	return out, nil
}

// GetContact implements provider.Provider, looking the contact up in the
// default audience.
func (p *Provider) GetContact(ctx context.Context, email string) (*provider.Contact, error) {
	if p.cache != nil {
		if c, err := p.cache.Get(ctx, cacheKey(email)); err == nil {
			return c, nil
		}
	}

	rc, err := p.contacts.GetWithContext(ctx, p.cfg.DefaultAudienceID, email)
	if err != nil {
		if isNotFound(err) {
			return nil, provider.ErrContactNotFound
		}
		return nil, apiError("get contact", err)
	}

	c := &provider.Contact{
		Email:    rc.Email,
		Name:     strings.TrimSpace(rc.FirstName + " " + rc.LastName),
		Metadata: map[string]string{"status": statusLabel(rc.Unsubscribed)},
	}

	if p.cache != nil {
		_ = p.cache.Set(ctx, cacheKey(email), c, p.cacheTTL)
	}
	return c, nil
}

// DeleteContact implements provider.Deleter, removing the contact from
// the default audience.
func (p *Provider) DeleteContact(ctx context.Context, email string) error {
	if _, err := p.contacts.RemoveWithContext(ctx, p.cfg.DefaultAudienceID, email); err != nil {
		return apiError("remove contact", err)
	}
	p.invalidate(ctx, email)
	return nil
}

// ReaderErrorMessage implements provider.Provider.
func (p *Provider) ReaderErrorMessage(ref provider.ErrorRef, _ error) string {
	if len(ref.ListIDs) > 0 {
		return fmt.Sprintf("We could not subscribe %s to the selected newsletters. Please try again.", ref.Email)
	}
	return fmt.Sprintf("We could not update the subscription for %s. Please try again.", ref.Email)
}

func (p *Provider) invalidate(ctx context.Context, email string) {
	if p.cache != nil {
		_ = p.cache.Delete(ctx, cacheKey(email))
	}
}

func cacheKey(email string) string {
	return strings.ToLower(email)
}

func apiError(op string, err error) *provider.Error {
	return &provider.Error{Code: errCode, Message: op + ": " + err.Error()}
}

// isNotFound sniffs the SDK's untyped errors for a missing-contact
// response.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not_found") || strings.Contains(msg, "not found")
}

func statusLabel(unsubscribed bool) string {
	if unsubscribed {
		return "unsubscribed"
	}
	return "subscribed"
}

func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	parts := strings.SplitN(name, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
