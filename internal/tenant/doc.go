/*
Package tenant maps tenant identifiers to their root directories.

# Roots

Roots is the cache consulted by the path sandbox. Entries are populated on
first use from a RootResolver and are immutable until Invalidate removes
them. Concurrent misses for one tenant share a single lookup, and a lookup
that started before an invalidation never writes its answer back.

Lookups run behind a circuit breaker. ErrTenantNotFound is a definitive
answer and does not count towards tripping it.

# Resolvers

	VolumeResolver   root = <base>/<tenant id>
	Directory        explicit id -> root map loaded from YAML or TOML

A tenants file looks like:

	tenants:
	  srv-A: /srv/volumes/a
	  srv-B: volumes/b        # relative to the file's directory
*/
package tenant
