package assets

import "embed"

const ServiceName = "pdfmailer"

// SwaggerUI holds the static api doc page, swagger.json is regenerated by the apidoc command.
//
//go:embed swaggerui
var SwaggerUI embed.FS
