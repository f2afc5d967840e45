/*
Package observability turns engine lifecycle events into Prometheus metrics
and structured log lines.

Both are plain domain.LifecycleHooks values and can be combined with
domain.CombineHooks before being handed to the engine.
*/
package observability
