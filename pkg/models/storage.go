package models

// FreeSpace reports the free space of the target volume.
type FreeSpace struct {
	Dir       string `json:"dir"`
	FreeBytes uint64 `json:"free_bytes"`
	FreeHuman string `json:"free_human"`
}

// DummyFile describes one dummy file on disk.
type DummyFile struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	Size  int64  `json:"size"`
}

// FileList is the response of the files endpoint.
type FileList struct {
	Files      []DummyFile `json:"files"`
	TotalBytes int64       `json:"total_bytes"`
}

// ResetResponse reports what a reset request did.
type ResetResponse struct {
	Outcome string `json:"outcome"`
	Deleted int    `json:"deleted"`
}
