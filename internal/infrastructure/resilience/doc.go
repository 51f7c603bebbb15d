/*
Package resilience provides a circuit breaker for collaborators that may
become unavailable, such as the tenant directory behind root lookups.

# States

- Closed: calls pass through and failures are counted
- Open: calls fail immediately with ErrCircuitOpen
- Half-Open: a limited number of trial calls decide whether to close again

	Closed --[ReadyToTrip]-> Open --[Timeout]-> Half-Open --[MaxRequests successes]-> Closed
	                                                |
	                                            [failure]
	                                                v
	                                              Open

# Usage

	breaker := resilience.New("tenant-roots", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, tenant.ErrTenantNotFound)
		},
	})

	err := breaker.Execute(func() error {
		root, err = resolver.ResolveRoot(ctx, id)
		return err
	})

IsSuccessful lets definitive answers such as "no such tenant" count as
successes so that bad input cannot trip the breaker.
*/
package resilience
