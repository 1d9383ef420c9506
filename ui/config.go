package ui

// Config contains TUI-specific configuration.
type Config struct {
	// BackendURL is the base URL of the generation backend.
	BackendURL string `env:"TABLEREAD_BACKEND_URL" envDefault:"http://localhost:8000"`

	// Autoplay starts playback as soon as a generated line is ready.
	Autoplay bool `env:"TABLEREAD_AUTOPLAY" envDefault:"true"`

	EnableMouse bool

	// CastingExportDir is where casting documents are written for
	// editing; the UI watches exported files for changes.
	CastingExportDir string `env:"TABLEREAD_CASTING_DIR"`

	// Project preselects a project by name on startup.
	Project string
}
