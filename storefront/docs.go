package storefront

import "github.com/swaggo/swag"

// apiDoc describes the JSON endpoints served next to the HTML pages.
type apiDoc struct{}

func (apiDoc) ReadDoc() string {
	return `{
  "swagger": "2.0",
  "info": {"title": "Storefront", "version": "1.0"},
  "basePath": "/",
  "paths": {
    "/healthz": {
      "get": {
        "summary": "Health check",
        "produces": ["application/json"],
        "responses": {
          "200": {"description": "all dependencies reachable"},
          "503": {"description": "a dependency is down"}
        }
      }
    },
    "/metrics": {
      "get": {
        "summary": "Prometheus metrics",
        "produces": ["text/plain"],
        "responses": {"200": {"description": "metrics in text exposition format"}}
      }
    }
  }
}`
}

func init() {
	swag.Register(swag.Name, apiDoc{})
}
