// Package api exposes subscription management over HTTP: subscribe,
// delete, replace list membership, and inspect the lists catalog. All
// writes funnel through the reconciliation engine; the handlers add
// nothing but transport concerns (decoding, sanitization, status
// mapping).
package api
