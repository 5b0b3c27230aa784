/*
Imgmgr ingests firmware image archives into a registry of installed versions
and serves that registry over a REST API. An archive is installed by placing it
in the upload directory: the MANIFEST is read, the version id is computed from
the manifest's version string, and the archive is inflated into a directory
named by the id. The version running on the device can never be removed.

Usage:

	imgmgr [global flags] command [command flags]

Commands:

	serve
		Watches the upload directory, restores the registry from the file system,
		and serves the REST API until stopped with CTRL-C or 'GET /cmd/stop'.
	ingest --archive FILE
		Ingests one archive and prints the version id. The archive is removed.
	list [--header]
		Lists the versions on the file system.
	delete --id ID
		Removes a version from the file system.
	version
		Displays the version and exits.

Global flags:

	--log-level string
		Log level. Defaults to 'error'.
	--log-file string
		Logs to the file rather than the console.
	--config-file string
		Loads configuration from a yaml file. Command line values take precedence.
	--upload-path string
		The upload directory. Defaults to '/tmp/images'.
	--tar-path string
		The tar program. Defaults to '/bin/tar'.
	--extract-timeout int
		Milliseconds before a tar invocation is killed. Defaults to no limit.
	--release-file string
		The os-release file with the VERSION_ID of the running image. Defaults to
		'/etc/os-release'.
	--active-version string
		The version running on the device, overriding the release file.
*/
package main
