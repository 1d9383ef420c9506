package player

import "sync"

// The process-wide service. Audio has to survive view navigation, so
// one long-lived instance is constructed at startup and every consumer
// shares it through Default rather than re-deriving its own.
var (
	defaultMu  sync.Mutex
	defaultSvc *Service
)

// InitDefault constructs the shared service once. Subsequent calls
// return the existing instance and ignore their arguments.
func InitDefault(res Resource, config Config) *Service {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultSvc == nil {
		defaultSvc = New(res, config)
	}
	return defaultSvc
}

// Default returns the shared service, or nil before InitDefault.
func Default() *Service {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultSvc
}

// SetDefault replaces the shared service, for dependency injection in
// tests. The previous instance, if any, is destroyed.
func SetDefault(s *Service) {
	defaultMu.Lock()
	prev := defaultSvc
	defaultSvc = s
	defaultMu.Unlock()
	if prev != nil && prev != s {
		prev.Destroy()
	}
}

// ResetDefault destroys and clears the shared service, for test
// isolation.
func ResetDefault() {
	SetDefault(nil)
}
