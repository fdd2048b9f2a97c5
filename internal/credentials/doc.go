// Package credentials resolves the gateway bearer token.
//
// Sources, in order:
//
//  1. The configured environment variable (OPENCLAW_TOKEN by default)
//  2. The secrets table of the SQLite store
//  3. A plain token file
//
// Save writes to the secrets table when one is configured and to the token
// file otherwise. Token acquisition and rotation are out of scope: the token
// is whatever the operator supplies.
package credentials
