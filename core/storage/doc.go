// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind a small Client interface so storage
// interactions can be mocked in unit tests (see core/storage/mocks). This
// abstraction supports both AWS S3 and self-hosted MinIO instances.
//
// # Archive
//
// Archive keeps raw timing provider payloads captured by previews under
// provider-snapshots/<campaign>/<kind>/<unix-millis>.json, lists them newest
// first and prunes old ones.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	archive := storage.NewArchive(client, cfg.Storage.Bucket)
//	key, err := archive.Save(ctx, storage.SnapshotKey(campaignID, "bio", time.Now()), body, "")
package storage
