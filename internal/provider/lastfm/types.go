package lastfm

import (
	"bytes"
	"encoding/json"
)

// Last.fm API response types.

// TopTagsResponse is the top-level response from track.gettoptags.
type TopTagsResponse struct {
	TopTags TopTags `json:"toptags"`
}

// TopTags wraps the tag list.
type TopTags struct {
	Tag  TagList     `json:"tag"`
	Attr TopTagsAttr `json:"@attr"`
}

// TopTagsAttr echoes the (possibly autocorrected) track the tags belong to.
type TopTagsAttr struct {
	Artist string `json:"artist"`
	Track  string `json:"track"`
}

// Tag is a single weighted tag. Count is relative, 0-100.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	URL   string `json:"url"`
}

// TagList decodes a tag array. Last.fm collapses single-element arrays into
// a bare object, so both shapes are accepted.
type TagList []Tag

// UnmarshalJSON implements json.Unmarshaler.
func (l *TagList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '{' {
		var one Tag
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*l = TagList{one}
		return nil
	}
	var many []Tag
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// APIError is the error body Last.fm returns, often with HTTP 200.
type APIError struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

// Last.fm error codes that change how a failure is classified.
const (
	errInvalidParams     = 6
	errInvalidAPIKey     = 10
	errServiceOffline    = 11
	errOperationFailed   = 8
	errTemporarilyDown   = 16
	errSuspendedAPIKey   = 26
	errRateLimitExceeded = 29
)
