package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// Config holds the parsed command line arguments
type Config struct {
	uploadPath       string
	serverURL        string
	workers          int64
	iterationSeconds int64
	tallySeconds     int64
	waitSeconds      int64
	delete           bool
	shuffle          bool
}

// ParseArgs parses the passed command line arguments. If the user asked for help the
// returned bool is false.
func ParseArgs(args []string) (Config, bool, error) {
	config := Config{}
	ran := false
	cmd := &cli.Command{
		Name:  "driver",
		Usage: "drives image archives into a running image manager and tallies the ingest rate",
		// define this or the parser terminates the program
		ExitErrHandler: func(_ context.Context, _ *cli.Command, _ error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "upload-path",
				Usage:       "The upload directory of the image manager under test",
				Required:    true,
				Destination: &config.uploadPath,
				Validator: func(path string) error {
					if fi, err := os.Stat(path); err != nil || !fi.IsDir() {
						return fmt.Errorf("not a directory")
					}
					return nil
				},
			},
			&cli.StringFlag{
				Name:        "server-url",
				Value:       "http://localhost:8080",
				Usage:       "The REST API of the image manager under test",
				Destination: &config.serverURL,
			},
			&cli.Int64Flag{
				Name:        "workers",
				Value:       4,
				Usage:       "The maximum number of concurrent uploaders",
				Destination: &config.workers,
			},
			&cli.Int64Flag{
				Name:        "iteration-seconds",
				Value:       60,
				Usage:       "How long to run at each level of concurrency",
				Destination: &config.iterationSeconds,
			},
			&cli.Int64Flag{
				Name:        "tally-seconds",
				Value:       15,
				Usage:       "The interval between ingest rate reports",
				Destination: &config.tallySeconds,
			},
			&cli.Int64Flag{
				Name:        "wait-seconds",
				Value:       30,
				Usage:       "How long to wait for an uploaded archive to be listed before counting it failed",
				Destination: &config.waitSeconds,
			},
			&cli.BoolFlag{
				Name:        "delete",
				Usage:       "Deletes each version once it is listed, keeping the upload directory small",
				Destination: &config.delete,
			},
			&cli.BoolFlag{
				Name:        "shuffle",
				Usage:       "Shuffles the purposes written into generated manifests",
				Destination: &config.shuffle,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ran = true
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{"driver"}, args...)); err != nil {
		return Config{}, false, err
	}
	return config, ran, nil
}

// Validate checks values the parser can't
func (c Config) Validate() error {
	if c.workers < 1 {
		return fmt.Errorf("--workers must be at least one")
	}
	if c.iterationSeconds < 1 || c.tallySeconds < 1 || c.waitSeconds < 1 {
		return fmt.Errorf("seconds values must be at least one")
	}
	return nil
}
