// Package protocol implements the server side of the Git Smart HTTP
// wire exchanges - ref advertisement, upload-pack and receive-pack -
// against blob-backed ref and pack stores. See
// https://git-scm.com/docs/pack-protocol for the wire format.
//
// The engine keeps no state between requests; each exchange is a
// single request/response pass over whatever the stores hold.
//
// Deliberate simplifications, inherited from treating packs as opaque
// blobs: upload-pack performs no want/have negotiation and always
// serves the single most recent pack, and "fast-forward" on push means
// equality between the client's declared prior id and the stored id,
// not an ancestry check.
package protocol
