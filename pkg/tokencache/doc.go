// Package tokencache obtains and caches OAuth2 client-credentials tokens
// for the external APIs the service calls, one cache per API, each with
// independent expiry tracking.
package tokencache
