package provider

// RegisterBuiltins adds every built-in provider type to r. Called once
// by cmd/nightwatch at startup before the taskmanager loads any tasks.
func RegisterBuiltins(r *Registry) {
	r.Register("HttpRequest", HTTPDescriptor, NewHTTPChecker)
	r.Register("Ping", PingDescriptor, NewPingChecker)
	r.Register("SqlRequest", SQLDescriptor, NewSQLChecker)
	r.Register("MetricsGraph", MetricsGraphDescriptor, NewMetricsGraphChecker)
}
