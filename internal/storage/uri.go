package storage

import (
	"net/url"
	"strings"

	"github.com/agentstation/layersync/pkg/errors"
)

// Schemes understood by ParseURI.
const (
	SchemeFile   = "file"
	SchemeS3     = "s3"
	SchemeGCS    = "gs"
	SchemeAzure  = "az"
	schemeAzBlob = "azblob"
)

// URI locates a batch or archive. For object stores Bucket is the bucket or
// container and Key the object name; for local files Key is the path.
type URI struct {
	Scheme string
	Bucket string
	Key    string
}

// String formats the URI. File URIs are returned as plain paths.
func (u URI) String() string {
	if u.Scheme == SchemeFile {
		return u.Key
	}
	return u.Scheme + "://" + u.Bucket + "/" + u.Key
}

// Base returns the last element of the key.
func (u URI) Base() string {
	k := strings.TrimRight(u.Key, `/\`)
	if i := strings.LastIndexAny(k, `/\`); i >= 0 {
		return k[i+1:]
	}
	return k
}

// Join returns a URI for name inside u treated as a directory or prefix.
func (u URI) Join(name string) URI {
	out := u
	switch {
	case out.Key == "":
		out.Key = name
	case strings.HasSuffix(out.Key, "/"):
		out.Key += name
	default:
		out.Key += "/" + name
	}
	return out
}

// ParseURI parses s3://bucket/key, gs://bucket/key, az://container/blob
// (azblob:// is accepted too), file:///path, or a plain path.
func ParseURI(raw string) (URI, error) {
	if raw == "" {
		return URI{}, errors.NewValidationError("uri", raw, "empty location")
	}
	i := strings.Index(raw, "://")
	if i <= 1 {
		// plain path, including Windows drive letters
		return URI{Scheme: SchemeFile, Key: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return URI{}, errors.NewValidationError("uri", raw, err.Error())
	}
	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case SchemeFile:
		return URI{Scheme: SchemeFile, Key: u.Path}, nil
	case schemeAzBlob:
		scheme = SchemeAzure
	case SchemeS3, SchemeGCS, SchemeAzure:
	default:
		return URI{}, errors.NewValidationError("uri", raw, "unsupported scheme "+u.Scheme)
	}
	if u.Host == "" {
		return URI{}, errors.NewValidationError("uri", raw, "missing bucket")
	}
	return URI{Scheme: scheme, Bucket: u.Host, Key: strings.TrimPrefix(u.Path, "/")}, nil
}
