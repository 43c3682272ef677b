// Package minio stores index backups in MinIO or any other S3-compatible
// server reachable through minio-go.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//		Creds: credentials.NewStaticV4(accessKey, secretKey, ""),
//	})
//	if err != nil { ... }
//	store := minioblob.NewStore(client, "backups", minioblob.WithPrefix("node-a"))
//	if err := store.EnsureBucket(ctx); err != nil { ... }
//	info, err := ix.Backup(ctx, store)
//
// Uploads stream through a multipart upload, so record files do not have to
// fit in memory. Reads of one opened blob are pinned to the ETag returned by
// the initial stat.
package minio
