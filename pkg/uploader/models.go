package uploader

// StagedFile is a local image resolved to its API-facing name, ready to be
// submitted.
type StagedFile struct {
	Path       string
	UploadName string
	SkinType   string
}

// UploadResponse is the JSON body the upload endpoint answers with.
type UploadResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    *UploadData `json:"data"`
}

// UploadData carries optional per-file detail inside an upload response.
type UploadData struct {
	Results []FileResult `json:"results"`
}

// FileResult is the per-file status the server may report within a response.
// In batch mode this detail is logged only; the batch remains one outcome.
type FileResult struct {
	Filename string `json:"filename"`
	Success  bool   `json:"success"`
	Error    string `json:"error"`
}

// Mode selects how staged files are submitted.
type Mode string

const (
	// ModeSingle uploads one file per request, fanned out over the pool.
	ModeSingle Mode = "single"
	// ModeBatch uploads fixed-size groups in one request each, sequentially.
	ModeBatch Mode = "batch"
)
