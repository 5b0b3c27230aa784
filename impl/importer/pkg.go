/*
Package importer runs a filesystem notifier on the upload directory. (See the
'--upload-path' arg in 'cmd/imgmgr.go'.) Whenever an image archive is placed in
the upload directory, it is handed to the image manager which reads the MANIFEST,
computes the version id, and inflates the archive into a directory named by the
id. Here is the canonical use case:

 1. Copy an image to the device:
    scp obmc-phosphor-image.static.mtd.tar root@bmc:/tmp/images/
 2. Wait a second
 3. curl http://bmc:8080/versions
 4. The new version is listed, and its files are in /tmp/images/<id>/
*/
package importer
