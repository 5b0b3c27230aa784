package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ListConfig configures the list sub-command
type ListConfig struct {
	Header bool `yaml:"header"`
}

// Configuration represents the totality of configuration knobs and dials for the image manager.
type Configuration struct {
	LogLevel       string     `yaml:"logLevel"`
	LogFile        string     `yaml:"logFile"`
	ConfigFile     string     `yaml:"configFile"`
	UploadPath     string     `yaml:"uploadPath"`
	TarPath        string     `yaml:"tarPath"`
	ExtractTimeout int64      `yaml:"extractTimeout"`
	Port           int64      `yaml:"port"`
	Health         int64      `yaml:"health"`
	Metrics        int64      `yaml:"metrics"`
	ReleaseFile    string     `yaml:"releaseFile"`
	PnorFile       string     `yaml:"pnorFile"`
	ActiveVersion  string     `yaml:"activeVersion"`
	NatsUrl        string     `yaml:"natsUrl"`
	SubjectPrefix  string     `yaml:"subjectPrefix"`
	NoWatch        bool       `yaml:"noWatch"`
	Archive        string     `yaml:"archive"`
	Id             string     `yaml:"id"`
	ListConfig     ListConfig `yaml:"listConfig"`
}

// FromCmdLine has a flag for every command-line option. The parsing code
// sets the flag to true if the option was explicitly provided on the command
// line by the user.
type FromCmdLine struct {
	Command        string
	LogLevel       bool
	LogFile        bool
	ConfigFile     bool
	UploadPath     bool
	TarPath        bool
	ExtractTimeout bool
	Port           bool
	Health         bool
	Metrics        bool
	ReleaseFile    bool
	PnorFile       bool
	ActiveVersion  bool
	NatsUrl        bool
	SubjectPrefix  bool
	NoWatch        bool
	Archive        bool
	Id             bool
	ListConfig     bool
}

var config Configuration

func GetLogLevel() string {
	return config.LogLevel
}

func GetLogFile() string {
	return config.LogFile
}

func GetConfigFile() string {
	return config.ConfigFile
}

func GetUploadPath() string {
	return config.UploadPath
}

func SetUploadPath(newVal string) {
	config.UploadPath = newVal
}

func GetTarPath() string {
	return config.TarPath
}

// GetExtractTimeout is in milliseconds. Zero means no timeout.
func GetExtractTimeout() int64 {
	return config.ExtractTimeout
}

func GetPort() int64 {
	return config.Port
}

func GetHealth() int64 {
	return config.Health
}

func GetMetrics() int64 {
	return config.Metrics
}

func GetReleaseFile() string {
	return config.ReleaseFile
}

func GetPnorFile() string {
	return config.PnorFile
}

func GetActiveVersion() string {
	return config.ActiveVersion
}

func SetActiveVersion(newVal string) {
	config.ActiveVersion = newVal
}

func GetNatsUrl() string {
	return config.NatsUrl
}

func GetSubjectPrefix() string {
	return config.SubjectPrefix
}

func GetNoWatch() bool {
	return config.NoWatch
}

func GetArchive() string {
	return config.Archive
}

func GetId() string {
	return config.Id
}

func GetListConfig() ListConfig {
	return config.ListConfig
}

// Load loads the passed configuration file into the configuration struct
func Load(configFile string) error {
	if _, err := os.Stat(configFile); err != nil {
		return fmt.Errorf("unable to stat configuration file: %s", configFile)
	}
	if contents, err := os.ReadFile(configFile); err != nil {
		return fmt.Errorf("error reading configuration file: %s", configFile)
	} else if err := SetConfigFromStr(contents); err != nil {
		return fmt.Errorf("error parsing configuration file: %s, the error was: %s", configFile, err)
	}
	return nil
}

// Get gets the current configuration
func Get() Configuration {
	return config
}

// Set replaces the configuration with the passed configuration
func Set(cfg Configuration) {
	config = cfg
}

// SetConfigFromStr parses the yaml input and sets the configuration from it
func SetConfigFromStr(configBytes []byte) error {
	var cfg Configuration
	if err := yaml.Unmarshal(configBytes, &cfg); err != nil {
		return err
	} else {
		config = cfg
	}
	return nil
}
