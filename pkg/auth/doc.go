// Package auth provides session resolution and capability checks for the
// labstock API.
//
// # Overview
//
// A client signs in with a principal name and a credential digest and receives
// an opaque access token. Every later request presents the token either as a
// bearer token or in the access_token cookie. The Resolver maps the token to a
// Session and records the last access time and origin of the principal.
//
// # Capabilities
//
// A group carries a permission string: a list of capability names separated by
// commas or whitespace. Evaluate answers whether a session may perform an
// action:
//
//	switch auth.Evaluate(session, "user.manage") {
//	case auth.Granted:
//	case auth.NoSession:  // 401
//	case auth.Forbidden:  // 403
//	}
//
// An empty capability marks a public operation. The capability "*" grants
// everything and is used by the bootstrap administrator group.
//
// # Credentials
//
// Clients never send a plaintext password. The credential is a 64-character
// uppercase hexadecimal digest computed client side, which is stored as a
// bcrypt hash. Tokens are stored as their SHA-256 hex digest only.
package auth
