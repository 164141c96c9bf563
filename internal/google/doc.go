// Package google handles OAuth2 for the Google Calendar API.
//
// The OAuth client is read from the client-secret JSON downloaded from the
// Google Cloud console. Tokens live in a JSON file next to the cache and are
// re-saved whenever the oauth2 library refreshes them.
//
// First-time consent uses the loopback redirect flow with PKCE. How the
// consent URL reaches the user is decided by the injected URLPresenter: the
// CLI opens a browser and prints the URL, tests follow the redirect directly.
package google
