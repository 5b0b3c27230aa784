// Package api defines the image manager REST API. The API is described by the
// OpenAPI document in imgmgr.yaml which is embedded in the binary so the server
// can validate requests against it. Implement ServerInterface and pass it to
// RegisterHandlers to serve the API.
package api

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

//go:embed imgmgr.yaml
var openapiDoc []byte

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /versions)
	ListVersions(ctx echo.Context) error
	// (GET /versions/{id})
	GetVersion(ctx echo.Context, id string) error
	// (DELETE /versions/{id})
	DeleteVersion(ctx echo.Context, id string) error
	// (GET /pnor)
	GetPnorInfo(ctx echo.Context) error
	// (GET /cmd/stop)
	CmdStop(ctx echo.Context) error
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

// ListVersions converts echo context to params.
func (w *ServerInterfaceWrapper) ListVersions(ctx echo.Context) error {
	return w.Handler.ListVersions(ctx)
}

// GetVersion converts echo context to params.
func (w *ServerInterfaceWrapper) GetVersion(ctx echo.Context) error {
	id, err := bindId(ctx)
	if err != nil {
		return err
	}
	return w.Handler.GetVersion(ctx, id)
}

// DeleteVersion converts echo context to params.
func (w *ServerInterfaceWrapper) DeleteVersion(ctx echo.Context) error {
	id, err := bindId(ctx)
	if err != nil {
		return err
	}
	return w.Handler.DeleteVersion(ctx, id)
}

// GetPnorInfo converts echo context to params.
func (w *ServerInterfaceWrapper) GetPnorInfo(ctx echo.Context) error {
	return w.Handler.GetPnorInfo(ctx)
}

// CmdStop converts echo context to params.
func (w *ServerInterfaceWrapper) CmdStop(ctx echo.Context) error {
	return w.Handler.CmdStop(ctx)
}

// bindId binds the "id" path parameter
func bindId(ctx echo.Context) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", ctx.Param("id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter id: %s", err))
	}
	return id, nil
}

// EchoRouter is implemented by both echo.Echo and echo.Group
type EchoRouter interface {
	DELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers adds each server route to the EchoRouter.
func RegisterHandlers(router EchoRouter, si ServerInterface) {
	RegisterHandlersWithBaseURL(router, si, "")
}

// RegisterHandlersWithBaseURL registers handlers, and prepends BaseURL to the
// paths, so that the paths can be served under a prefix.
func RegisterHandlersWithBaseURL(router EchoRouter, si ServerInterface, baseURL string) {
	wrapper := ServerInterfaceWrapper{
		Handler: si,
	}
	router.GET(baseURL+"/versions", wrapper.ListVersions)
	router.GET(baseURL+"/versions/:id", wrapper.GetVersion)
	router.DELETE(baseURL+"/versions/:id", wrapper.DeleteVersion)
	router.GET(baseURL+"/pnor", wrapper.GetPnorInfo)
	router.GET(baseURL+"/cmd/stop", wrapper.CmdStop)
}

// GetSwagger returns the OpenAPI document for the API
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromData(openapiDoc)
	if err != nil {
		return nil, fmt.Errorf("error loading OpenAPI document: %w", err)
	}
	return swagger, nil
}
