/*
Package observability turns engine lifecycle events into Prometheus metrics and
structured log lines.

Both are plain domain.LifecycleHooks values, so they compose with domain.ChainHooks
and with any hooks a host installs itself.
*/
package observability
