package subcmd

import (
	"fmt"

	"github.com/aceeric/imgmgr/impl/config"
)

// List lists the versions on the file system to the console.
func List() error {
	mgr, err := newManager(nil)
	if err != nil {
		return err
	}
	if config.GetListConfig().Header {
		fmt.Println("ID VERSION PURPOSE FUNCTIONAL PATH")
	}
	for _, v := range mgr.Versions() {
		fmt.Printf("%s %s %s %t %s\n", v.Id, v.Version, v.Purpose, mgr.IsFunctional(v), v.Path)
	}
	return nil
}
