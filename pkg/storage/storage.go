// Package storage holds the types shared by the hosted media providers.
package storage

import "errors"

// ResourceTypeImage is the resource hint sent with every gallery upload.
const ResourceTypeImage = "image"

// ErrEmptyURL is returned when a provider reports success without a public URL.
var ErrEmptyURL = errors.New("provider returned an empty url")

// UploadParams describes one object handed to a provider.
type UploadParams struct {
	ResourceType string
	ContentType  string
	Extension    string
	Folder       string
}

// Object is what a provider returns for a stored upload. PublicID is the
// provider-side handle used to delete the object later.
type Object struct {
	SecureURL string
	PublicID  string
}
