package cmdline

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/aceeric/imgmgr/impl/config"
	"github.com/aceeric/imgmgr/impl/globals"
	"github.com/aceeric/imgmgr/impl/identity"
	"github.com/aceeric/imgmgr/impl/notify"

	"github.com/urfave/cli/v3"
)

// fromCmdline will be populated with flags indicating which configuration settings were
// specified on the command line.
var fromCmdline config.FromCmdLine

// cfg has the parsed configuration - including defaults (e.g. port) if the user does not override
var cfg = config.Configuration{}

// isFile validates that a path exists and is not a directory
func isFile(path string) error {
	if fi, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found")
	} else if fi.IsDir() {
		return fmt.Errorf("not a file")
	}
	return nil
}

// cmds is for the command line parser urfave/cli
var cmds = &cli.Command{
	Name:  "imgmgr",
	Usage: "ingests firmware image archives and manages the installed versions",
	// define this or the parser terminates the program
	ExitErrHandler: func(_ context.Context, _ *cli.Command, _ error) {},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Value:       "error",
			Usage:       "Sets the minimum value for logging: debug, warn, info, or error",
			Destination: &cfg.LogLevel,
			Validator: func(lvl string) error {
				validValues := []string{"debug", "warn", "info", "error"}
				if !slices.Contains(validValues, strings.ToLower(lvl)) {
					return fmt.Errorf("must be one of %s", strings.Join(validValues, ", "))
				}
				return nil
			},
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.LogLevel = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "config-file",
			Usage:       "A file to load configuration values from (cmdline overrides file settings)",
			Destination: &cfg.ConfigFile,
			Validator:   isFile,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.ConfigFile = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "log-file",
			Value:       "",
			Usage:       "log to the specified file rather than the console",
			Destination: &cfg.LogFile,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.LogFile = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "upload-path",
			Value:       globals.DefaultUploadPath,
			Usage:       "The directory that archives are uploaded to and versions are extracted into",
			Destination: &cfg.UploadPath,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.UploadPath = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "tar-path",
			Value:       globals.DefaultTarPath,
			Usage:       "The tar program used to extract archives",
			Destination: &cfg.TarPath,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.TarPath = true
				return nil
			},
		},
		&cli.Int64Flag{
			Name:        "extract-timeout",
			Value:       0,
			Usage:       "Kills the tar program if it runs longer than this many milliseconds (0 for no limit)",
			Destination: &cfg.ExtractTimeout,
			Validator: func(ms int64) error {
				if ms < 0 {
					return fmt.Errorf("must not be negative")
				}
				return nil
			},
			Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
				fromCmdline.ExtractTimeout = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "release-file",
			Value:       globals.DefaultReleaseFile,
			Usage:       "The file with the VERSION_ID of the running image",
			Destination: &cfg.ReleaseFile,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.ReleaseFile = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "pnor-file",
			Usage:       "The VERSION file of the running host firmware (PNOR). Empty to not report host firmware",
			Destination: &cfg.PnorFile,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.PnorFile = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "active-version",
			Usage:       "The version running on the device, overriding the release file",
			Destination: &cfg.ActiveVersion,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.ActiveVersion = true
				return nil
			},
		},
	},
	Commands: []*cli.Command{
		{
			Name:  "serve",
			Usage: "Watches the upload directory and serves the version REST API",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "serve"
				return nil
			},
			Flags: []cli.Flag{
				&cli.Int64Flag{
					Name:        "port",
					Value:       8080,
					Usage:       "The port to serve on",
					Destination: &cfg.Port,
					Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
						fromCmdline.Port = true
						return nil
					},
				},
				&cli.Int64Flag{
					Name:        "health",
					Usage:       "A port to serve a health endpoint on (0 for none)",
					Destination: &cfg.Health,
					Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
						fromCmdline.Health = true
						return nil
					},
				},
				&cli.Int64Flag{
					Name:        "metrics",
					Usage:       "A port to serve prometheus metrics on (0 for none)",
					Destination: &cfg.Metrics,
					Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
						fromCmdline.Metrics = true
						return nil
					},
				},
				&cli.StringFlag{
					Name:        "nats-url",
					Usage:       "Publishes version added and deleted events to this NATS server",
					Destination: &cfg.NatsUrl,
					Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
						fromCmdline.NatsUrl = true
						return nil
					},
				},
				&cli.StringFlag{
					Name:        "subject-prefix",
					Value:       notify.DefaultSubjectPrefix,
					Usage:       "The NATS subject prefix for version events",
					Destination: &cfg.SubjectPrefix,
					Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
						fromCmdline.SubjectPrefix = true
						return nil
					},
				},
				&cli.BoolFlag{
					Name:        "no-watch",
					Value:       false,
					Usage:       "Does not watch the upload directory for archives",
					Destination: &cfg.NoWatch,
					Action: func(ctx context.Context, cmd *cli.Command, _ bool) error {
						fromCmdline.NoWatch = true
						return nil
					},
				},
			},
		},
		{
			Name:  "ingest",
			Usage: "Ingests one archive (server should not be running)",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "ingest"
				return nil
			},
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:        "archive",
					Usage:       "The image archive to ingest. The archive is removed when ingestion finishes",
					Required:    true,
					Destination: &cfg.Archive,
					Validator:   isFile,
					Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
						fromCmdline.Archive = true
						return nil
					},
				},
			},
		},
		{
			Name:  "list",
			Usage: "Lists the versions as they are on the file system",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "list"
				return nil
			},
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:        "header",
					Value:       false,
					Usage:       "Displays a header line",
					Destination: &cfg.ListConfig.Header,
					Action: func(ctx context.Context, cmd *cli.Command, _ bool) error {
						fromCmdline.ListConfig = true
						return nil
					},
				},
			},
		},
		{
			Name:  "delete",
			Usage: "Deletes a version from the file system (server should not be running)",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "delete"
				return nil
			},
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:        "id",
					Usage:       "The id of the version to delete",
					Required:    true,
					Destination: &cfg.Id,
					Validator: func(id string) error {
						if !identity.IsValid(id) {
							return fmt.Errorf("must be %d lower case hex characters", identity.IdLen)
						}
						return nil
					},
					Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
						fromCmdline.Id = true
						return nil
					},
				},
			},
		},
		{
			Name:  "version",
			Usage: "Displays the version",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "version"
				return nil
			},
		},
	},
}

// Parse parses the command line. It returns the following:
//
//  1. A FromCmdLine struct which has the command to run ("serve", "list", etc.). If the command
//     is the empty string then no sub-command was specified in which case the parser auto-displays
//     help. This struct also has flags telling you which configuration values were provided by the
//     user on the command line.
//  2. A Configuration struct containing the parsed configuration values. For any configuration flag
//     in the FromCmdLine struct with a false value, the corresponding configuration value in *this*
//     struct will be the default.
//  3. An error, if the parser returned one, else nil.
func Parse() (config.FromCmdLine, config.Configuration, error) {
	if err := cmds.Run(context.Background(), os.Args); err != nil {
		return config.FromCmdLine{}, config.Configuration{}, err
	}
	return fromCmdline, cfg, nil
}

// ClearParse supports unit testing
func ClearParse() {
	fromCmdline = config.FromCmdLine{}
	cfg = config.Configuration{}
}
