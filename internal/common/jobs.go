package common

// CompressJob is the Pub/Sub message the manager publishes for each
// accepted upload. Must keep this schema stable across services.
type CompressJob struct {
	UID          string `json:"UID"`
	OriginalPath string `json:"OriginalPath"`
	OriginalSize uint32 `json:"OriginalSize"`
}

// DecompressJob points a worker at an uploaded container.
type DecompressJob struct {
	UID            string `json:"UID"`
	CompressedPath string `json:"CompressedPath"`
}
