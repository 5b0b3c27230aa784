package impl

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aceeric/imgmgr/api/models"
	"github.com/aceeric/imgmgr/impl/identity"
	"github.com/aceeric/imgmgr/impl/metrics"
	"github.com/aceeric/imgmgr/impl/registry"
	"github.com/aceeric/imgmgr/impl/release"
	"github.com/aceeric/imgmgr/impl/version"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"
)

// GET /versions
func (r *ImgMgr) handleListVersions(ctx echo.Context) error {
	metrics.IncApiHits()
	versions := r.manager.Versions()
	infos := make([]models.VersionInfo, 0, len(versions))
	for _, v := range versions {
		infos = append(infos, r.toInfo(v))
	}
	return ctx.JSON(http.StatusOK, infos)
}

// GET /versions/{id}
func (r *ImgMgr) handleGetVersion(ctx echo.Context, id string) error {
	metrics.IncApiHits()
	if !identity.IsValid(id) {
		return ctx.JSON(http.StatusBadRequest, message("invalid version id: %q", id))
	}
	v, exists := r.manager.Get(id)
	if !exists {
		log.Debugf("request for version id %s that is not installed - returning 404", id)
		return ctx.JSON(http.StatusNotFound, message("version %s is not installed", id))
	}
	return ctx.JSON(http.StatusOK, r.toInfo(v))
}

// DELETE /versions/{id}. Removing a version that isn't installed is not an error
// so the request can be retried.
func (r *ImgMgr) handleDeleteVersion(ctx echo.Context, id string) error {
	metrics.IncApiHits()
	if !identity.IsValid(id) {
		return ctx.JSON(http.StatusBadRequest, message("invalid version id: %q", id))
	}
	if _, exists := r.manager.Get(id); !exists {
		return ctx.JSON(http.StatusOK, message("version %s is not installed", id))
	}
	if err := r.manager.Erase(id); err != nil {
		if errors.Is(err, registry.ErrFunctional) {
			log.Warnf("refusing to remove functional version %s", id)
			return ctx.JSON(http.StatusConflict, message("version %s is functional and cannot be removed", id))
		}
		log.Errorf("error removing version %s: %s", id, err)
		return ctx.JSON(http.StatusInternalServerError, message("error removing version %s", id))
	}
	return ctx.JSON(http.StatusOK, message("version %s removed", id))
}

// GET /pnor. The VERSION file is read on every call since a host firmware
// update changes it.
func (r *ImgMgr) handleGetPnorInfo(ctx echo.Context) error {
	metrics.IncApiHits()
	if r.pnorFile == "" {
		return ctx.JSON(http.StatusNotFound, message("host firmware information is not configured"))
	}
	info, err := release.ReadPnorInfo(r.pnorFile)
	if err != nil {
		log.Warnf("unable to read host firmware versions from %s: %s", r.pnorFile, err)
		return ctx.JSON(http.StatusNotFound, message("unable to read host firmware information"))
	}
	return ctx.JSON(http.StatusOK, models.PnorInfo{
		BiosVersion:        info.BIOSVersion,
		BuildVersion:       info.BuildVersion,
		BuildrootVersion:   info.BuildrootVersion,
		SkibootVersion:     info.SkibootVersion,
		HostbootVersion:    info.HostbootVersion,
		LinuxVersion:       info.LinuxVersion,
		PetitbootVersion:   info.PetitbootVersion,
		MachineVersion:     info.MachineVersion,
		OccVersion:         info.OccVersion,
		HostbootBinVersion: info.HostbootBinVersion,
		CappVersion:        info.CappVersion,
		SbeVersion:         info.SbeVersion,
		Purpose:            info.Purpose.String(),
	})
}

// GET /cmd/stop
func (r *ImgMgr) handleCmdStop(ctx echo.Context) error {
	log.Info("stop command received")
	if r.shutdownCh != nil {
		r.shutdownCh <- true
	}
	return ctx.JSON(http.StatusOK, message("stopping"))
}

// toInfo converts a version to its API representation. Whether the version is
// functional is decided at the time of the call.
func (r *ImgMgr) toInfo(v version.Version) models.VersionInfo {
	info := models.VersionInfo{
		Id:         v.Id,
		Version:    v.Version,
		Purpose:    v.Purpose.String(),
		Path:       v.Path,
		Functional: r.manager.IsFunctional(v),
	}
	if v.ExtendedVersion != "" {
		info.ExtendedVersion = &v.ExtendedVersion
	}
	if v.MachineName != "" {
		info.MachineName = &v.MachineName
	}
	return info
}

func message(format string, args ...any) models.Message {
	return models.Message{Message: fmt.Sprintf(format, args...)}
}
