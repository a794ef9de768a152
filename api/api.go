// Package api holds the OpenAPI document of the instance server admin API.
package api

import _ "embed"

// OpenAPI is the admin API document, used for request validation.
//
//go:embed instanceserver.openapi.yaml
var OpenAPI []byte
