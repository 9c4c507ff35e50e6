package logging

// Component constants for structured logging
const (
	ComponentStartup   = "startup"
	ComponentShutdown  = "shutdown"
	ComponentHTTP      = "http"
	ComponentAccess    = "access"
	ComponentRenderer  = "renderer"
	ComponentQuantizer = "quantizer"
	ComponentWorkers   = "workers"
	ComponentFonts     = "fonts"
	ComponentThemes    = "themes"
	ComponentDatabase  = "database"
	ComponentAuth      = "auth"
	ComponentCLI       = "cli"
)
