package http

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var rawSpec []byte

var loadSwagger = sync.OnceValues(func() (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("parse openapi spec: %w", err)
	}
	return doc, nil
})

// GetSwagger returns the parsed OpenAPI description served at /openapi.yaml.
func GetSwagger() (*openapi3.T, error) {
	return loadSwagger()
}
