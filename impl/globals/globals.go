package globals

// ManifestFile is the name of the metadata file inside every image archive. It
// is also present at the root of each extracted version directory.
const ManifestFile = "MANIFEST"

// WorkspacePrefix prefixes the scratch directories created under the upload
// directory to hold the manifest while an archive is inspected.
const WorkspacePrefix = "image"

// DefaultUploadPath is where archives are dropped and versions are extracted
// if not otherwise configured
const DefaultUploadPath = "/tmp/images"

// DefaultTarPath is the extraction tool
const DefaultTarPath = "/bin/tar"

// DefaultReleaseFile holds the VERSION_ID of the running image
const DefaultReleaseFile = "/etc/os-release"

// ArchiveExts are the file suffixes the importer will hand to the pipeline
var ArchiveExts = []string{".tar", ".tar.gz", ".tgz"}
