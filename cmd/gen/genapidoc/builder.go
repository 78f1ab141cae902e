package genapidoc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/yusufsyaifudin/openapidoc/schema"
)

const bearerAuth = "bearerAuth"

// Response documents one status code. Body is the example value which schema is generated from,
// Content is used instead when the body is not JSON.
type Response struct {
	Description string
	Body        interface{}
	Content     openapi3.Content
	ArrayOf     bool
}

// Endpoint is one route on the api doc.
type Endpoint struct {
	Name        string
	Method      string
	Path        string
	Tag         string
	Summary     string
	Description string
	Auth        bool
	Params      []*openapi3.Parameter

	// Request is the JSON example body, RequestContent is used for non-JSON body such as multipart.
	Request        interface{}
	RequestContent openapi3.Content

	Responses map[int]Response
}

// Register adds schema of e into components and the operation into paths.
func Register(ctx context.Context, components openapi3.Components, paths map[string]*openapi3.PathItem, e Endpoint) {
	op := openapi3.NewOperation()
	op.Tags = []string{e.Tag}
	op.Summary = e.Summary
	op.Description = e.Description
	op.OperationID = e.Name

	for _, p := range e.Params {
		op.AddParameter(p)
	}

	if e.Auth {
		op.Security = &openapi3.SecurityRequirements{
			openapi3.SecurityRequirement{bearerAuth: []string{}},
		}
	}

	switch {
	case e.Request != nil:
		outReq := MustNewSchemaGenerator(ctx, e.Name+".", e.Request)
		for s, ref := range outReq.Schemas {
			components.Schemas[s] = ref
		}

		reqBody := openapi3.NewRequestBody()
		reqBody.WithJSONSchemaRef(schemaRef(outReq.ParentSchemaName))
		components.RequestBodies[e.Name] = &openapi3.RequestBodyRef{
			Value: reqBody,
		}

		op.RequestBody = &openapi3.RequestBodyRef{
			Ref: fmt.Sprintf("#/components/requestBodies/%s", e.Name), // refer to generated name we define above
		}

	case e.RequestContent != nil:
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().WithContent(e.RequestContent),
		}
	}

	for status, resp := range e.Responses {
		out := openapi3.NewResponse().WithDescription(resp.Description)
		switch {
		case resp.Body != nil:
			outResp := MustNewSchemaGenerator(ctx, fmt.Sprintf("%s.Resp%d.", e.Name, status), resp.Body)
			for s, ref := range outResp.Schemas {
				components.Schemas[s] = ref
			}

			ref := schemaRef(outResp.ParentSchemaName)
			if resp.ArrayOf {
				ref = &openapi3.SchemaRef{Value: &openapi3.Schema{Type: "array", Items: ref}}
			}

			out = out.WithJSONSchemaRef(ref)

		case resp.Content != nil:
			out = out.WithContent(resp.Content)
		}

		op.AddResponse(status, out)
	}

	item, exist := paths[e.Path]
	if !exist {
		item = &openapi3.PathItem{}
		paths[e.Path] = item
	}

	item.SetOperation(e.Method, op)
}

func schemaRef(name string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Ref: fmt.Sprintf("#/components/schemas/%s", name),
	}
}

func pathParam(name, desc string, example interface{}) *openapi3.Parameter {
	p := openapi3.NewPathParameter(name).WithDescription(desc)
	p.Schema = &openapi3.SchemaRef{Value: &openapi3.Schema{Type: "string"}}
	p.Example = example
	p.Required = true
	return p
}

func queryParam(name, typ, desc string, example interface{}) *openapi3.Parameter {
	p := openapi3.NewQueryParameter(name).WithDescription(desc)
	p.Schema = &openapi3.SchemaRef{Value: &openapi3.Schema{Type: typ}}
	p.Example = example
	p.Required = false
	return p
}

func multipartFile(field string) openapi3.Content {
	s := openapi3.NewObjectSchema().WithProperty(field, openapi3.NewStringSchema().WithFormat("binary"))
	s.Required = []string{field}
	return openapi3.NewContentWithSchema(s, []string{"multipart/form-data"})
}

func MustNewSchemaGenerator(ctx context.Context, prefix string, value interface{}) schema.GenerateOut {
	g, err := schema.NewGenerator(schema.WithLog(os.Stdout), schema.WithSchemaPrefix(prefix))
	if err != nil {
		panic(err)
	}

	out, err := g.Generate(ctx, value)
	if err != nil {
		panic(err)
	}

	return out
}

// WriteFile creates parent directory of fileName when needed and overwrites its content.
func WriteFile(content []byte, fileName string) (err error) {
	dir := path.Dir(fileName)
	err = os.MkdirAll(dir, os.ModePerm)
	if err != nil {
		err = fmt.Errorf("cannot create directory %s: %w", dir, err)
		return
	}

	file, err := os.OpenFile(fileName, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		err = fmt.Errorf("cannot open file %s: %w", fileName, err)
		return
	}

	defer func() {
		if _err := file.Close(); _err != nil && !errors.Is(_err, os.ErrClosed) {
			err = fmt.Errorf("cannot close file: %s: %w", fileName, _err)
		}
	}()

	_, err = file.Write(content)
	if err != nil {
		err = fmt.Errorf("cannot overwrite file %s: %w", fileName, err)
		return
	}

	return
}
