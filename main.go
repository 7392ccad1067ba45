// =============================================================================
// UWV Sickness Notification XML Generator - Main Entry Point
// =============================================================================
//
// USAGE:
//   uwvzw process       - Convert spreadsheet uploads into UwvML envelopes
//   uwvzw validate      - Validate configuration or envelopes against the XSD
//   uwvzw extract-body  - Extract the first message body of an envelope
//   uwvzw tag-datasets  - Tag catalogue datasets with message types
//   uwvzw version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : Cobra command definitions
//   - internal/  : Pipeline packages (readers, normalizer, builders, schema)
//   - pkg/       : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/uwv-zw-xml/cmd"
)

func main() {
	cmd.Execute()
}
