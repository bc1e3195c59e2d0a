// Package store persists the single bearer credential: an in-process cache
// in front of a durable whole-value backend. Reads never fail; backend
// problems degrade to "absent" and are reported through the injected logger.
package store
