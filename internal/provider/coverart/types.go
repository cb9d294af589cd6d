package coverart

import "encoding/json"

// Listing is the response of the release endpoint.
type Listing struct {
	Release string  `json:"release"`
	Images  []Image `json:"images"`
}

// Image is one piece of artwork attached to a release.
type Image struct {
	ID         json.Number `json:"id"`
	Image      string      `json:"image"`
	Front      bool        `json:"front"`
	Back       bool        `json:"back"`
	Approved   bool        `json:"approved"`
	Types      []string    `json:"types"`
	Thumbnails Thumbnails  `json:"thumbnails"`
}

// Thumbnails holds the pre-rendered sizes of an image.
type Thumbnails struct {
	Size250  string `json:"250"`
	Size500  string `json:"500"`
	Size1200 string `json:"1200"`
	Small    string `json:"small"`
	Large    string `json:"large"`
}
