package subcmd

import (
	"errors"
	"fmt"

	"github.com/aceeric/imgmgr/impl/config"
	"github.com/aceeric/imgmgr/impl/registry"
)

// Delete removes the version with the id from the '--id' arg. Removing a version
// that isn't installed is not an error.
func Delete() error {
	mgr, err := newManager(nil)
	if err != nil {
		return err
	}
	id := config.GetId()
	if _, exists := mgr.Get(id); !exists {
		fmt.Printf("version %s is not installed\n", id)
		return nil
	}
	if err := mgr.Erase(id); err != nil {
		if errors.Is(err, registry.ErrFunctional) {
			return fmt.Errorf("version %s is functional and cannot be removed", id)
		}
		return err
	}
	fmt.Printf("version %s removed\n", id)
	return nil
}
