package api

import (
	"io"
	"mime"
	"net/http"

	"github.com/starford/studycards/internal/sheet"
)

const maxUploadBytes = 20 << 20

// Import handles POST /api/import. The body is either the import JSON
// itself or multipart/form-data with a "file" field holding a .json, .xlsx
// or .csv file.
//
//	@Summary	Import card sets
//	@Tags		transfer
//	@Accept		json,mpfd
//	@Produce	json
//	@Param		file	formData	file	false	"Card file"
//	@Success	200		{object}	ImportResponse
//	@Failure	400		{object}	errResponse
//	@Router		/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	text, ok := readImport(w, r)
	if !ok {
		return
	}

	n, err := h.ctrl.ImportSets(text)
	if err != nil {
		writeError(w, "import", err)
		return
	}
	if view, ok := h.viewAfter(w, "import", "import"); ok {
		writeJSON(w, http.StatusOK, ImportResponse{Imported: n, Session: view})
	}
}

func readImport(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		text, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("request body too large or unreadable"))
			return nil, false
		}
		return text, true
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return nil, false
	}
	defer file.Close()

	text, err := sheet.ToImportJSON(header.Filename, file)
	if err != nil {
		writeError(w, "import file", err)
		return nil, false
	}
	return text, true
}
