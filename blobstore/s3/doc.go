// Package s3 stores index backups in Amazon S3 or an S3-compatible endpoint
// through aws-sdk-go-v2.
//
//	store, err := s3.New(ctx, "backups",
//		s3.WithPrefix("node-a"),
//		s3.WithRegion("eu-central-1"),
//	)
//	if err != nil { ... }
//	info, err := ix.Backup(ctx, store)
//
// Record files and dumps are streamed through the transfer manager as
// multipart uploads with CRC32C checksums. Manifests are small and go up in
// a single PutObject. Range reads of an opened blob carry If-Match with the
// ETag from HeadObject, so an object replaced during a restore fails the
// restore instead of mixing two versions.
package s3
