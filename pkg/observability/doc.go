/*
Package observability turns the engine's lifecycle hooks into Prometheus metrics.

Metrics are registered on a caller-supplied registerer so that tests and
embedders can keep them off the global default registry.
*/
package observability
