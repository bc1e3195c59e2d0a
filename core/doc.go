// Package core contains the canonical storefront session domain: contracts,
// entities, and the session coordinator. Lower-level adapters (transport,
// token storage) must depend on this package; core must not depend on any
// adapter package.
package core
