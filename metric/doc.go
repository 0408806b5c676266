// Package metric manages Prometheus metric registration for the
// client library.
//
// Metrics are optional everywhere: components accept a nil *Registry
// and skip instrumentation entirely. Applications that want
// observability create one Registry, pass it through the config, and
// expose Handler() on an HTTP mux of their choosing.
//
// Registration is namespaced by component name so two connections in
// one process cannot collide; duplicate registration is rejected with
// an invalid-parameter error rather than a panic.
package metric
