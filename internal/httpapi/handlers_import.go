package httpapi

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"fintrack/internal/services"
)

// handlePDFPreview extracts candidate rows from an uploaded statement PDF.
// Nothing is persisted; the client reviews the rows and commits them through
// /api/save-batch.
func (s *Server) handlePDFPreview(w http.ResponseWriter, r *http.Request) {
	files, form, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	preview, err := s.importService.Preview(r.Context(),
		form("session_id"), form("bank_code"), form("password"), files)
	if err != nil {
		s.writeImportError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// handleOCRIdentify runs uploaded transfer screenshots through the OCR
// service and returns the recognized candidate rows.
func (s *Server) handleOCRIdentify(w http.ResponseWriter, r *http.Request) {
	files, form, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	preview, err := s.importService.Preview(r.Context(),
		form("session_id"), form("bank_code"), "", files)
	if err != nil {
		s.writeImportError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// readUpload parses the multipart form and collects all uploaded files under
// the "files" field (falling back to "file" for single uploads).
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]services.UploadFile, func(string) string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, mutationResponse{Success: false, Message: "invalid multipart upload"})
		return nil, nil, false
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = append(headers, r.MultipartForm.File["files"]...)
		headers = append(headers, r.MultipartForm.File["file"]...)
	}

	files := make([]services.UploadFile, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, mutationResponse{Success: false, Message: "unreadable upload"})
			return nil, nil, false
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, mutationResponse{Success: false, Message: "unreadable upload"})
			return nil, nil, false
		}
		files = append(files, services.UploadFile{Name: h.Filename, Data: data})
	}

	return files, r.FormValue, true
}

// writeImportError keeps preview failures inline: bad files, bad passwords
// and OCR trouble are user-visible messages, not server errors.
func (s *Server) writeImportError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNoFiles),
		errors.Is(err, services.ErrUnsupportedUpload):
		writeJSON(w, http.StatusUnprocessableEntity, mutationResponse{Success: false, Message: err.Error()})
	case errors.Is(err, services.ErrImportInFlight):
		writeJSON(w, http.StatusConflict, mutationResponse{Success: false, Message: err.Error()})
	case errors.Is(err, services.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, mutationResponse{Success: false, Message: err.Error()})
	default:
		// Extraction and recognition failures are business rejections.
		writeJSON(w, http.StatusOK, mutationResponse{Success: false, Message: err.Error()})
	}
}
