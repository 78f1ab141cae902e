package genapidoc

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mitchellh/cli"
	"github.com/segmentio/encoding/json"
	"github.com/yusufsyaifudin/openapidoc/utils"
	"github.com/yusufsyaifudin/pdfmailer/pkg/validator"
)

const defaultOutDir = "assets/swaggerui"

type ApiDocCfg struct {
	ServerURL string `validate:"required,url"`
}

type ApiDoc struct {
	Config ApiDocCfg
}

var _ cli.Command = (*ApiDoc)(nil)

func NewApiDocCmd(cfg ApiDocCfg) (*ApiDoc, error) {
	err := validator.Validate(cfg)
	if err != nil {
		err = fmt.Errorf("genapidocs: validation error: %w", err)
		return nil, err
	}

	return &ApiDoc{Config: cfg}, nil
}

func (a *ApiDoc) Help() string {
	return strings.TrimSpace(`
Usage: pdfmailer apidoc [-out assets/swaggerui]

  Generate swagger.json and swagger.yaml served under /swaggerui.
`)
}

func (a *ApiDoc) Synopsis() string {
	return "generate apidoc json to be served on server"
}

// Run .
// all json responses follow respbuilder structure, except /api/pdf which returns raw body.
func (a *ApiDoc) Run(args []string) int {
	ctx := context.Background()

	var outDir string
	flagSet := flag.NewFlagSet("apidoc", flag.ContinueOnError)
	flagSet.StringVar(&outDir, "out", defaultOutDir, "output directory")
	if err := flagSet.Parse(args); err != nil {
		log.Println(err)
		return 1
	}

	doc := Build(ctx, a.Config.ServerURL)

	j, err := doc.MarshalJSON()
	if err != nil {
		err = fmt.Errorf("cannot marshal openapi3 doc: %w", err)
		log.Println(err)
		return 1
	}

	var i interface{}
	err = json.Unmarshal(j, &i)
	if err != nil {
		err = fmt.Errorf("cannot unmarshal openapi3 doc: %w", err)
		log.Println(err)
		return 1
	}

	y, err := utils.YamlMarshalIndent(i)
	if err != nil {
		err = fmt.Errorf("cannot marshal YAML openapi3 doc: %w", err)
		log.Println(err)
		return 1
	}

	err = WriteFile(j, filepath.Join(outDir, "swagger.json"))
	if err != nil {
		log.Println(err)
		return 1
	}

	err = WriteFile(y, filepath.Join(outDir, "swagger.yaml"))
	if err != nil {
		log.Println(err)
		return 1
	}

	return 0
}

// Build assembles openapi document of every endpoint.
func Build(ctx context.Context, serverURL string) *openapi3.T {
	info := &openapi3.Info{
		Title:       "PDF Mailer",
		Description: "Send PAN-matched pdf documents by email, one by one or in paced batch.",
		Version:     "1.0.0",
	}

	servers := openapi3.Servers{
		{
			URL:         serverURL,
			Description: "Localhost",
		},
	}

	components := openapi3.Components{
		ExtensionProps: openapi3.ExtensionProps{},
		Schemas:        map[string]*openapi3.SchemaRef{},
		Parameters:     map[string]*openapi3.ParameterRef{},
		Headers:        map[string]*openapi3.HeaderRef{},
		RequestBodies:  map[string]*openapi3.RequestBodyRef{},
		Responses:      map[string]*openapi3.ResponseRef{},
		SecuritySchemes: map[string]*openapi3.SecuritySchemeRef{
			bearerAuth: {
				Value: &openapi3.SecurityScheme{
					Type:   "http",
					Scheme: "bearer",
				},
			},
		},
		Examples:  map[string]*openapi3.ExampleRef{},
		Links:     map[string]*openapi3.LinkRef{},
		Callbacks: map[string]*openapi3.CallbackRef{},
	}
	paths := make(map[string]*openapi3.PathItem)

	for _, e := range Endpoints(ctx) {
		Register(ctx, components, paths, e)
	}

	return &openapi3.T{
		OpenAPI:    "3.0.0",
		Components: components,
		Info:       info,
		Servers:    servers,
		Paths:      paths,
	}
}
