// Package api is the HTTP surface of the service: route registration,
// request decoding, and the mapping from service errors to status codes.
package api
