// Package minio provides a MinIO implementation of the blobstore.BlobStore
// interface. It works with any S3-compatible server.
//
// # Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	store := recgominio.NewStore(client, "records", "prod/")
//	p := persistence.NewBlob(store, "data/")
package minio
