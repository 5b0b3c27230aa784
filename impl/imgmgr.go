// Package impl implements the image manager REST API defined in api/imgmgr.yaml.
// This file is lean to simplify handling any changes to the API - each function
// simply calls a handler in 'handlers.go'.
package impl

import (
	"github.com/aceeric/imgmgr/impl/pipeline"

	"github.com/labstack/echo/v4"
)

type ImgMgr struct {
	manager    *pipeline.Manager
	pnorFile   string
	shutdownCh chan bool
}

// NewImgMgr creates and returns an ImgMgr struct that serves the versions held by
// the passed manager. The ImgMgr struct implements the api.ServerInterface interface.
// Host firmware versions are read from 'pnorFile' if it is not empty. The stop
// command sends on 'shutdownCh'.
func NewImgMgr(manager *pipeline.Manager, pnorFile string, shutdownCh chan bool) *ImgMgr {
	return &ImgMgr{
		manager:    manager,
		pnorFile:   pnorFile,
		shutdownCh: shutdownCh,
	}
}

// GET /versions
func (r *ImgMgr) ListVersions(ctx echo.Context) error {
	return r.handleListVersions(ctx)
}

// GET /versions/{id}
func (r *ImgMgr) GetVersion(ctx echo.Context, id string) error {
	return r.handleGetVersion(ctx, id)
}

// DELETE /versions/{id}
func (r *ImgMgr) DeleteVersion(ctx echo.Context, id string) error {
	return r.handleDeleteVersion(ctx, id)
}

// GET /pnor
func (r *ImgMgr) GetPnorInfo(ctx echo.Context) error {
	return r.handleGetPnorInfo(ctx)
}

// GET /cmd/stop
func (r *ImgMgr) CmdStop(ctx echo.Context) error {
	return r.handleCmdStop(ctx)
}
