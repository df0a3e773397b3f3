package dto

// FileUploadResponse carries the stored path of an upload. Clients pass it
// back as photoPath or filePath.
type FileUploadResponse struct {
	Path string `json:"path"`
}
