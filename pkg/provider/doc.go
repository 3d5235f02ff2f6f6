// Package provider defines the capability contract every ESP backend
// implements, plus a registry for selecting the active backend by name.
//
// The base [Provider] interface covers what every backend must support:
// read a contact, upsert a contact, translate errors for readers. Optional
// behaviors are separate capability interfaces probed with type assertions
// at the call site:
//
//	if d, ok := p.(provider.Deleter); ok {
//	    err = d.DeleteContact(ctx, email)
//	}
//
// ESPs are read/write-asymmetric in practice: Resend can delete a contact
// but cannot enumerate its audiences, while Constant Contact can do both.
// Capabilities therefore stay opt-in rather than bloating the base contract.
//
// Adapters live in subpackages (resendesp, constantcontact) and report
// structured API failures as [*Error] so the reconciliation engine can
// aggregate provider-native error codes verbatim.
package provider
