package swagger

import _ "embed"

// OpenAPI is the OpenAPI 3 document describing the survey and submission API.
//
//go:embed openapi.yaml
var OpenAPI []byte
