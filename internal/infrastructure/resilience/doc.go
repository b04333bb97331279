/*
Package resilience provides the circuit breaker that guards calls to the
remote plugin registry.

# States

  - Closed: calls pass through; counts reset every Window
  - Open: calls fail with ErrCircuitOpen until Cooldown elapses
  - Half-Open: up to MaxProbes trial calls decide between Closed and Open

	Closed --[ShouldTrip]-> Open --[Cooldown]-> Half-Open --[probes ok]-> Closed
	                                               |
	                                           [failure]
	                                               v
	                                             Open

Errors for which IsFailure returns false (for example a 404 from the
registry) are recorded as successes: the upstream answered.

# Usage

	breaker := resilience.New("registry", resilience.Settings{
		Cooldown:   30 * time.Second,
		ShouldTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 5 },
	})

	body, err := resilience.Call(breaker, func() ([]byte, error) {
		return fetch(ctx, path)
	})
*/
package resilience
