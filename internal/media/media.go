// Package media stores user-supplied images on an external object host.
//
// Callers hand over a file already spooled to local disk; the host uploads it,
// removes the local copy and returns the public URL. Removal reports a result
// string so that callers can abort a mutation when the old image could not be
// deleted.
package media

import "context"

const (
	ResultOK       = "ok"
	ResultNotFound = "not found"
)

type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

type RemoveResult struct {
	Result string `json:"result"`
}

// Host is the media host contract used by the services.
type Host interface {
	Upload(ctx context.Context, localPath string) (*UploadResult, error)
	Remove(ctx context.Context, url string) (*RemoveResult, error)
}
