package config

// Merge takes a struct indicating which configuration options have been provided on the command
// line, as well as a configuration struct parsed from the command line which ALSO includes defaults
// that the user didn't specify. For example the default port is 8080 and if you don't specify
// that on the command line - it gets defaulted into the parsed configuration struct. So:
//
//  1. User provided a value: overwrite current config using the user's value
//  2. User did not provide a value, current config is unspecified: use the default in the parsed config
//  3. User did not provide a value, current config is specified: leave the current config untouched
func Merge(fromCmdline FromCmdLine, cfg Configuration) {
	if fromCmdline.LogLevel || config.LogLevel == "" {
		config.LogLevel = cfg.LogLevel
	}
	if fromCmdline.LogFile || config.LogFile == "" {
		config.LogFile = cfg.LogFile
	}
	if fromCmdline.ConfigFile || config.ConfigFile == "" {
		config.ConfigFile = cfg.ConfigFile
	}
	if fromCmdline.UploadPath || config.UploadPath == "" {
		config.UploadPath = cfg.UploadPath
	}
	if fromCmdline.TarPath || config.TarPath == "" {
		config.TarPath = cfg.TarPath
	}
	if fromCmdline.ExtractTimeout || config.ExtractTimeout == 0 {
		config.ExtractTimeout = cfg.ExtractTimeout
	}
	if fromCmdline.Port || config.Port == 0 {
		config.Port = cfg.Port
	}
	if fromCmdline.Health || config.Health == 0 {
		config.Health = cfg.Health
	}
	if fromCmdline.Metrics || config.Metrics == 0 {
		config.Metrics = cfg.Metrics
	}
	if fromCmdline.ReleaseFile || config.ReleaseFile == "" {
		config.ReleaseFile = cfg.ReleaseFile
	}
	if fromCmdline.PnorFile || config.PnorFile == "" {
		config.PnorFile = cfg.PnorFile
	}
	if fromCmdline.ActiveVersion || config.ActiveVersion == "" {
		config.ActiveVersion = cfg.ActiveVersion
	}
	if fromCmdline.NatsUrl || config.NatsUrl == "" {
		config.NatsUrl = cfg.NatsUrl
	}
	if fromCmdline.SubjectPrefix || config.SubjectPrefix == "" {
		config.SubjectPrefix = cfg.SubjectPrefix
	}
	if fromCmdline.NoWatch || !config.NoWatch {
		config.NoWatch = cfg.NoWatch
	}
	if fromCmdline.Archive || config.Archive == "" {
		config.Archive = cfg.Archive
	}
	if fromCmdline.Id || config.Id == "" {
		config.Id = cfg.Id
	}
	if fromCmdline.ListConfig || config.ListConfig == (ListConfig{}) {
		config.ListConfig = cfg.ListConfig
	}
}
