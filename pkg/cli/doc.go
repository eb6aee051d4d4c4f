// Package cli implements labstock-admin, the operator tool that works
// directly against the labstock database.
//
// # Commands
//
// digest: Derive the 64 character credential a client sends for a passphrase
//
//	labstock-admin digest "correct horse battery staple"
//	echo -n "correct horse battery staple" | labstock-admin digest
//
// migrate: Apply the embedded schema migrations
//
//	labstock-admin migrate --config labstock.yaml
//
// bootstrap: Create the administrator group and principal on an empty database
//
//	labstock-admin bootstrap --user root --passphrase "..." --migrate
//
// sweep-tokens: Delete tokens idle for longer than the given duration
//
//	labstock-admin sweep-tokens --idle 72h
//
// version: Print build information
//
//	labstock-admin version -o json
//
// # Configuration
//
// Every command that touches the database loads the same layered
// configuration as the server. The file comes from --config, falling back to
// LABSTOCK_CONFIG.
package cli
