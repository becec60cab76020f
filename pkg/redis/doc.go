// Package redis connects go-redis clients with retries and exposes a health
// check. The service uses Redis for cross-instance OAuth state replay protection.
package redis
