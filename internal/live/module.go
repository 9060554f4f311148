package live

import "go.uber.org/fx"

// Module provides the process-wide live stream registry.
var Module = fx.Provide(NewRegistry)
