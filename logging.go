package session

// LoggerProvider hands out named loggers so embedding applications can route
// our components into their own logging setup.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// ResolveLogger picks the effective logger for a component: an explicit
// logger wins, then a provider lookup by name, then the printf fallback.
// The fallback never counts as explicit, so a provider supplied later can
// still take over. It returns both so callers can keep re-resolving when
// either changes.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if _, isDefault := logger.(defLogger); logger != nil && !isDefault {
		return provider, logger
	}

	if provider != nil {
		if l := provider.GetLogger(name); l != nil {
			return provider, l
		}
	}

	return provider, defLogger{}
}
