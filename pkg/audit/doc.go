// Package audit records an append-only trail of field changes.
//
// Every successful mutation of a user, group or item field writes one Record
// holding the acting principal, the table and row, the field, and its previous
// and new value. Credential changes record only a "changed" marker.
//
// Records are written through the same database handle as the change they
// describe, so a rolled back request leaves no trail behind.
package audit
