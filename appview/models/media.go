package models

import "time"

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
	MediaPdf   MediaKind = "pdf"
)

func ParseMediaKind(raw string) (MediaKind, bool) {
	switch MediaKind(raw) {
	case MediaImage, MediaVideo, MediaAudio, MediaPdf:
		return MediaKind(raw), true
	}
	return "", false
}

// Media is a file attached to a capsule. The blob itself lives in
// object storage; we only keep the issued URL and enough metadata to
// delete it later.
type Media struct {
	Id         string
	CapsuleId  string
	UploaderId string
	Url        string
	Kind       MediaKind
	Name       string
	FileKey    string
	Created    time.Time
}
