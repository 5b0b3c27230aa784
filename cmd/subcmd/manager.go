package subcmd

import (
	"fmt"
	"time"

	"github.com/aceeric/imgmgr/impl/config"
	"github.com/aceeric/imgmgr/impl/extractor"
	"github.com/aceeric/imgmgr/impl/notify"
	"github.com/aceeric/imgmgr/impl/pipeline"
	"github.com/aceeric/imgmgr/impl/registry"
	"github.com/aceeric/imgmgr/impl/release"
	"github.com/aceeric/imgmgr/impl/runner"
	"github.com/aceeric/imgmgr/impl/serialize"
)

// newManager builds an image manager from the global configuration and loads
// the versions already on the file system into its registry. If 'n' is nil
// registry changes are only logged.
func newManager(n notify.Notifier) (*pipeline.Manager, error) {
	reg := registry.New(release.Functional(config.GetReleaseFile(), config.GetActiveVersion()))
	if _, err := serialize.FromFilesystem(reg, config.GetUploadPath()); err != nil {
		return nil, fmt.Errorf("error loading versions from %s: %s", config.GetUploadPath(), err)
	}
	r := runner.NewExecRunner(time.Duration(config.GetExtractTimeout()) * time.Millisecond)
	x := extractor.New(r, config.GetTarPath())
	return pipeline.NewManager(config.GetUploadPath(), x, reg, n), nil
}
