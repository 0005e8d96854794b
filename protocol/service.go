package protocol

// A Service identifies one of the two Smart HTTP transfer services.
type Service string

// The services a Git client may request.
const (
	ServiceUploadPack  Service = "git-upload-pack"
	ServiceReceivePack Service = "git-receive-pack"
)

// ParseService maps a service query parameter value to a Service.
func ParseService(s string) (Service, bool) {
	switch Service(s) {
	case ServiceUploadPack, ServiceReceivePack:
		return Service(s), true
	default:
		return "", false
	}
}

// Capability strings are fixed per service: the fetch side advertises
// negotiation and transfer features, the push side update features.
// They are advertised on the first ref line of the advertisement,
// after a NUL byte.
const (
	uploadPackCaps = "multi_ack multi_ack_detailed thin-pack side-band " +
		"side-band-64k shallow no-progress include-tag ofs-delta"
	receivePackCaps = "atomic delete-refs side-band-64k quiet ofs-delta"
)

// Capabilities returns the capability string advertised for the
// service.
func (s Service) Capabilities() string {
	if s == ServiceReceivePack {
		return receivePackCaps
	}

	return uploadPackCaps
}
