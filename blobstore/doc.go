// Package blobstore defines the namespaced key/value blob interface
// that the ref and pack stores are built on, along with three
// implementations: a gocloud.dev bucket store reachable by URL, an
// in-memory store with conditional writes, and an OpenTelemetry
// tracing wrapper.
//
// # Usage
//
// Open a bucket-backed store with [OpenBucket] and a base URL. The
// schemes "s3", "gs", "azblob" and "file" are supported. All keys are
// relative to the URL's path.
//
// The in-memory store ([NewMem]) additionally implements
// [ConditionalPutter], which the ref store uses for lost-update-safe
// ref writes. Bucket stores expose no generic write precondition, so
// writes through them are not conflict-safe under concurrency; see
// [ConditionalPutter].
package blobstore
