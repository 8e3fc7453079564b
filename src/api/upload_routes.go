package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"campus-community/src/directory"
	"campus-community/src/services"
)

// multipartOverhead is allowed on top of the image for form boundaries and
// headers.
const multipartOverhead = 64 << 10

// ImageUploader stores an uploaded image for a user. services.ImageService
// implements it.
type ImageUploader interface {
	UploadImage(ctx context.Context, userID string, data []byte) (string, error)
}

var _ ImageUploader = (*services.ImageService)(nil)

// UploadRoutes accepts multipart image uploads in the "file" field.
type UploadRoutes struct {
	Uploader ImageUploader
	Verifier CredentialVerifier
	Logger   *slog.Logger
}

// UploadResponse is the body of a successful upload.
type UploadResponse struct {
	URL string `json:"url"`
}

func (u UploadRoutes) handleUpload(w http.ResponseWriter, req *http.Request) {
	viewerID, err := requestViewer(req, u.Verifier)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse(directory.CodeUnauthenticated, "session expired, log in again"))
		return
	}

	req.Body = http.MaxBytesReader(w, req.Body, services.MaxImageBytes+multipartOverhead)
	file, _, err := req.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse(directory.CodeBadUserInput, "Image size must be less than 2MB"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse(directory.CodeBadUserInput, "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxImageBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(directory.CodeBadUserInput, "could not read upload"))
		return
	}

	url, err := u.Uploader.UploadImage(req.Context(), viewerID, data)
	if err != nil {
		e := classify(u.Logger, "uploadImage", err)
		writeJSON(w, uploadStatus(e.code), errorResponse(e.code, e.msg))
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{URL: url})
}

func uploadStatus(code string) int {
	switch code {
	case directory.CodeUnauthenticated:
		return http.StatusUnauthorized
	case directory.CodeBadUserInput:
		return http.StatusBadRequest
	case directory.CodeRateLimited:
		return http.StatusTooManyRequests
	case directory.CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
