// Package cache provides a byte-capacity LRU cache for immutable blobs.
//
// The Downloader keeps recently served files here so that repeated include
// resolution of the same file does not hit the blob store again.
package cache
