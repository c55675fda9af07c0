package assets

import _ "embed"

// ModelsData holds the raw JSON catalogue of chat providers.
//
//go:embed models.json
var ModelsData []byte
