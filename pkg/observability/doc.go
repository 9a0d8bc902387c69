/*
Package observability turns wizard lifecycle events into Prometheus metrics
and structured log lines.

Metrics.Hooks returns a domain.LifecycleHooks to pass to the wizard controller,
the session manager and the deliverer. Merge combines it with other hook sets.
*/
package observability
