package domain

import (
	"fmt"
	"os"
	"path"
	"strings"
)

// Segment is a per-audience partition of the exchange channel. Segments are
// what keeps the CA private key away from leaf roles: a leaf is only ever
// pointed at the public and issued segments.
type Segment string

const (
	// SegmentPublic holds material every role may read.
	SegmentPublic Segment = "public"
	// SegmentInheritor holds the CA bundle and its password.
	SegmentInheritor Segment = "inheritor"
	// SegmentRequests holds certificate signing requests from leaves.
	SegmentRequests Segment = "requests"
	// SegmentIssued holds certificates issued in answer to requests.
	SegmentIssued Segment = "issued"
)

// Segments lists every known segment.
func Segments() []Segment {
	return []Segment{SegmentPublic, SegmentInheritor, SegmentRequests, SegmentIssued}
}

// DirMode is the permission a segment directory is created with.
func (s Segment) DirMode() os.FileMode {
	switch s {
	case SegmentInheritor:
		return 0o700
	case SegmentRequests:
		return 0o770
	}
	return 0o755
}

// FileMode is the permission artifacts in the segment are written with.
func (s Segment) FileMode() os.FileMode {
	switch s {
	case SegmentInheritor:
		return 0o600
	case SegmentRequests:
		return 0o640
	}
	return 0o644
}

// ArtifactKey addresses one file in the exchange channel.
type ArtifactKey struct {
	Segment Segment
	Name    string
}

// Well-known artifacts published by the authority.
var (
	ArtifactCACert           = ArtifactKey{Segment: SegmentPublic, Name: "ca.crt"}
	ArtifactCABundle         = ArtifactKey{Segment: SegmentInheritor, Name: "ca-bundle.p12"}
	ArtifactCABundlePassword = ArtifactKey{Segment: SegmentInheritor, Name: "ca-bundle.pass"}
)

// RequestArtifact is where a leaf deposits the CSR with the given id.
func RequestArtifact(id string) ArtifactKey {
	return ArtifactKey{Segment: SegmentRequests, Name: id + ".csr"}
}

// IssuedArtifact is where the answer to request id is published.
func IssuedArtifact(id string) ArtifactKey {
	return ArtifactKey{Segment: SegmentIssued, Name: id + ".crt"}
}

// RequestID extracts the id from a request artifact name.
func RequestID(name string) (string, bool) {
	if !strings.HasSuffix(name, ".csr") {
		return "", false
	}
	id := strings.TrimSuffix(name, ".csr")
	return id, id != ""
}

// Validate rejects keys that would escape their segment.
func (k ArtifactKey) Validate() error {
	switch k.Segment {
	case SegmentPublic, SegmentInheritor, SegmentRequests, SegmentIssued:
	default:
		return fmt.Errorf("unknown exchange segment %q", k.Segment)
	}
	if k.Name == "" || k.Name != path.Base(k.Name) || strings.HasPrefix(k.Name, ".") {
		return fmt.Errorf("invalid artifact name %q", k.Name)
	}
	return nil
}

// String renders the key as segment/name.
func (k ArtifactKey) String() string {
	return string(k.Segment) + "/" + k.Name
}
