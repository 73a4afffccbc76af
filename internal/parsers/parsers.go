// Package parsers imports all grammar packages to trigger their init() registration.
// Import this package for side effects only.
package parsers

import (
	// Import all grammar packages to register them with the registry.
	_ "pnr_parser/internal/parsers/generic"
	_ "pnr_parser/internal/parsers/sabresc"
)
