package main

import (
	"fmt"
	"os"

	"github.com/aceeric/imgmgr/cmd/subcmd"
	"github.com/aceeric/imgmgr/impl/config"
	"github.com/aceeric/imgmgr/impl/globals"
)

// set by the build
var (
	buildVer string
	buildDtm string
)

func main() {
	os.Exit(realMain())
}

// realMain runs the command from the command line and returns the process exit code.
// Separate from main to support unit testing.
func realMain() int {
	command, err := getCfg()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := globals.ConfigureLogging(config.GetLogLevel(), config.GetLogFile()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	switch command {
	case "serve":
		err = subcmd.Serve(buildVer, buildDtm)
	case "ingest":
		err = subcmd.Ingest()
	case "list":
		err = subcmd.List()
	case "delete":
		err = subcmd.Delete()
	case "version":
		fmt.Printf("imgmgr version: %s build date: %s\n", buildVer, buildDtm)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
