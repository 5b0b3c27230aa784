package main

import (
	"fmt"
	"path/filepath"

	"github.com/aceeric/imgmgr/impl/cmdline"
	"github.com/aceeric/imgmgr/impl/config"
)

// getCfg settles the global configuration and returns the sub-command to run.
//
// Values given on the command line win. If '--config-file' was given, the file is
// loaded first and the command line merged over it, with defaults filling in
// anything neither one set. Otherwise the parsed command line, defaults included,
// is the configuration.
//
// The upload path is made absolute: it is passed to tar as a -C argument and is
// the parent of every version path reported by the API.
func getCfg() (string, error) {
	fromCmdline, parsed, err := cmdline.Parse()
	if err != nil {
		return "", err
	}
	switch {
	case fromCmdline.ConfigFile:
		if err := config.Load(parsed.ConfigFile); err != nil {
			return "", err
		}
		config.Merge(fromCmdline, parsed)
	default:
		config.Set(parsed)
	}
	uploadPath, err := filepath.Abs(config.GetUploadPath())
	if err != nil {
		return "", fmt.Errorf("invalid upload path %s: %w", config.GetUploadPath(), err)
	}
	config.SetUploadPath(uploadPath)
	return fromCmdline.Command, nil
}
