package subcmd

import (
	"context"
	"fmt"

	"github.com/aceeric/imgmgr/impl/config"
)

// Ingest ingests the archive from the '--archive' arg and prints the id of the
// version. If the version was already installed the id is printed and nothing
// else happens. The archive is removed either way.
func Ingest() error {
	mgr, err := newManager(nil)
	if err != nil {
		return err
	}
	id, err := mgr.Ingest(context.Background(), config.GetArchive())
	if err != nil {
		return fmt.Errorf("error ingesting %s: %s", config.GetArchive(), err)
	}
	fmt.Println(id)
	return nil
}
