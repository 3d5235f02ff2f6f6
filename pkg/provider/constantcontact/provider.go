// Package constantcontact adapts the Constant Contact v3 API to the
// provider contract.
//
// Unlike Resend, Constant Contact exposes a contact's full list
// membership, so this adapter implements the optional delete and
// list-management capabilities on top of the base contract. Requests are
// authenticated with an OAuth2 client-credentials token source that
// refreshes itself.
package constantcontact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/davisshaver/audiencesync/pkg/lists"
	"github.com/davisshaver/audiencesync/pkg/provider"
)

// ServiceName is the stable identifier used in audit events.
const ServiceName = "constant_contact"

const errCode = "constant_contact_api_error"

// Provider is the Constant Contact ESP adapter.
type Provider struct {
	http    *http.Client
	baseURL string
	source  lists.Source
}

// New creates a Constant Contact adapter. The lists source is used to
// translate between public list IDs and Constant Contact list UUIDs.
func New(ctx context.Context, cfg Config, source lists.Source) *Provider {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	return &Provider{
		http:    cc.Client(ctx),
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		source:  source,
	}
}

// NewWithClient creates an adapter on a caller-supplied HTTP client;
// tests use it to stub the API.
func NewWithClient(client *http.Client, baseURL string, source lists.Source) *Provider {
	return &Provider{
		http:    client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		source:  source,
	}
}

// Service implements provider.Provider.
func (p *Provider) Service() string { return ServiceName }

// ccContact is the subset of the v3 contact resource the adapter reads.
type ccContact struct {
	ContactID    string `json:"contact_id"`
	EmailAddress struct {
		Address          string `json:"address"`
		PermissionToSend string `json:"permission_to_send"`
	} `json:"email_address"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	ListMemberships []string `json:"list_memberships"`
	UpdateSource    string   `json:"update_source,omitempty"`
}

// UpsertContact implements provider.Provider via the sign_up_form
// endpoint, Constant Contact's native create-or-update. Metadata other
// than the subscription status is dropped at the wire; v3 custom fields
// require pre-provisioned field IDs.
func (p *Provider) UpsertContact(ctx context.Context, contact *provider.Contact, subscribe []*lists.List) (*provider.Contact, error) {
	first, last := splitName(contact.Name)

	memberships := make([]string, 0, len(subscribe))
	for _, l := range subscribe {
		memberships = append(memberships, l.ProviderID)
	}

	body := map[string]any{
		"email_address": contact.Email,
		"first_name":    first,
		"last_name":     last,
	}
	if len(memberships) > 0 {
		body["list_memberships"] = memberships
	}

	var resp struct {
		ContactID string `json:"contact_id"`
		Action    string `json:"action"`
	}
	if err := p.do(ctx, http.MethodPost, "/contacts/sign_up_form", body, &resp); err != nil {
		return nil, err
	}

	return p.GetContact(ctx, contact.Email)
}

// GetContact implements provider.Provider.
func (p *Provider) GetContact(ctx context.Context, email string) (*provider.Contact, error) {
	cc, err := p.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	publicIDs, err := p.toPublicIDs(ctx, cc.ListMemberships)
	if err != nil {
		return nil, err
	}

	c := &provider.Contact{
		Email: cc.EmailAddress.Address,
		Name:  strings.TrimSpace(cc.FirstName + " " + cc.LastName),
		Metadata: map[string]string{
			"status": cc.EmailAddress.PermissionToSend,
			"lists":  strings.Join(publicIDs, ","),
		},
	}
	return c, nil
}

// DeleteContact implements provider.Deleter.
func (p *Provider) DeleteContact(ctx context.Context, email string) error {
	cc, err := p.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	return p.do(ctx, http.MethodDelete, "/contacts/"+cc.ContactID, nil, nil)
}

// ContactLists implements provider.ListManager, reporting membership as
// public list IDs. Memberships with no configured public ID are omitted.
func (p *Provider) ContactLists(ctx context.Context, email string) ([]string, error) {
	cc, err := p.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return p.toPublicIDs(ctx, cc.ListMemberships)
}

// UpdateContactLists implements provider.ListManager. Constant Contact
// has no delta endpoint, so the adapter folds the add/remove sets into
// the contact's membership locally and writes the result back in one
// PUT.
func (p *Provider) UpdateContactLists(ctx context.Context, email string, add, remove []string, _ string) error {
	cc, err := p.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	membership := make(map[string]struct{}, len(cc.ListMemberships))
	for _, id := range cc.ListMemberships {
		membership[id] = struct{}{}
	}
	for _, publicID := range add {
		l, err := p.source.Resolve(ctx, publicID)
		if err != nil {
			continue
		}
		membership[l.ProviderID] = struct{}{}
	}
	for _, publicID := range remove {
		l, err := p.source.Resolve(ctx, publicID)
		if err != nil {
			continue
		}
		delete(membership, l.ProviderID)
	}

	updated := make([]string, 0, len(membership))
	for id := range membership {
		updated = append(updated, id)
	}
	cc.ListMemberships = updated
	cc.UpdateSource = "Contact"

	return p.do(ctx, http.MethodPut, "/contacts/"+cc.ContactID, cc, nil)
}

// ReaderErrorMessage implements provider.Provider.
func (p *Provider) ReaderErrorMessage(ref provider.ErrorRef, _ error) string {
	if len(ref.ListIDs) > 0 {
		return fmt.Sprintf("We could not subscribe %s to the selected newsletters. Please try again.", ref.Email)
	}
	return fmt.Sprintf("We could not update the subscription for %s. Please try again.", ref.Email)
}

func (p *Provider) findByEmail(ctx context.Context, email string) (*ccContact, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("include", "list_memberships")
	q.Set("status", "all")

	var resp struct {
		Contacts []ccContact `json:"contacts"`
	}
	if err := p.do(ctx, http.MethodGet, "/contacts?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Contacts) == 0 {
		return nil, provider.ErrContactNotFound
	}
	return &resp.Contacts[0], nil
}

// toPublicIDs maps Constant Contact list UUIDs back to public list IDs
// via the configured lists universe.
func (p *Provider) toPublicIDs(ctx context.Context, providerIDs []string) ([]string, error) {
	known, err := p.source.KnownIDs(ctx)
	if err != nil {
		return nil, err
	}

	byProviderID := make(map[string]string, len(known))
	for _, publicID := range known {
		l, err := p.source.Resolve(ctx, publicID)
		if err != nil {
			continue
		}
		byProviderID[l.ProviderID] = publicID
	}

	var out []string
	for _, id := range providerIDs {
		if publicID, ok := byProviderID[id]; ok {
			out = append(out, publicID)
		}
	}
	return out, nil
}

func (p *Provider) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("constantcontact: marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("constantcontact: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return &provider.Error{Code: errCode, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &provider.Error{Code: errCode, Message: apiMessage(resp)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("constantcontact: decode response: %w", err)
		}
	}
	return nil
}

// apiMessage extracts the first error message from a v3 error payload,
// falling back to the HTTP status.
func apiMessage(resp *http.Response) string {
	var payload []struct {
		ErrorKey     string `json:"error_key"`
		ErrorMessage string `json:"error_message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(data, &payload); err == nil && len(payload) > 0 {
		return payload[0].ErrorMessage
	}
	return resp.Status
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
