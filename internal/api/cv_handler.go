package api

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"name-origin/internal/cv"
	"name-origin/internal/pipeline"
	"name-origin/internal/storage"
)

type CVUploadResponse struct {
	CVID        int64                `json:"cv_id,omitempty"`
	CandidateID int64                `json:"candidate_id,omitempty"`
	File        *cv.ParsedCV         `json:"file"`
	Links       *cv.Links            `json:"links,omitempty"`
	Origin      *pipeline.Prediction `json:"origin,omitempty"`
	OriginError string               `json:"origin_error,omitempty"`
	DurationMS  int64                `json:"duration_ms"`
}

// CVUploadHandler handles CV file uploads and extraction
// @Summary Upload and parse CV
// @Description Upload a CV file, extract contact details and predict the origin of the extracted name
// @Tags cv
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CV file (PDF, DOCX, DOC, RTF, ODT or TXT)"
// @Param validate_links query bool false "Check GitHub and LinkedIn URLs with a HEAD request"
// @Success 200 {object} CVUploadResponse
// @Failure 400 {string} string "invalid upload"
// @Failure 500 {string} string "failed to parse CV"
// @Router /cv/upload [post]
func (a *API) CVUploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	startTime := time.Now()

	// Parse multipart form (max 10MB)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "file too large or invalid (max 10MB)", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !cv.Supported(header.Filename) {
		http.Error(w, fmt.Sprintf("invalid file type %q (supported: PDF, DOCX, DOC, RTF, ODT, TXT)", filepath.Ext(header.Filename)), http.StatusBadRequest)
		return
	}

	parsedCV, err := a.cvParser.ParseFile(header.Filename, file)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to parse CV: %v", err), http.StatusInternalServerError)
		return
	}
	log.Printf("CV parsed: %s (%d bytes text)", parsedCV.Filename, len(parsedCV.FullText))

	resp := CVUploadResponse{File: parsedCV}
	contact := parsedCV.Contact

	if r.URL.Query().Get("validate_links") == "true" {
		links := a.links.CheckContact(r.Context(), contact)
		resp.Links = &links
	}

	if a.bundle != nil && contact.Name != "" {
		pred, err := a.bundle.Classify(contact.Name)
		if err != nil {
			resp.OriginError = err.Error()
		} else {
			resp.Origin = &pred
			a.logPrediction(pred, "cv")
		}
	}

	if a.db != nil {
		var candidateID *int64
		if contact.Name != "" {
			c := &storage.Candidate{
				Name:     contact.Name,
				Email:    contact.Email,
				Phone:    contact.PrimaryPhone,
				Location: contact.Address,
				GitHub:   contact.GitHub,
				LinkedIn: contact.LinkedIn,
			}
			if resp.Origin != nil {
				c.Origin = resp.Origin.Origin
				conf := resp.Origin.Confidence
				c.OriginConfidence = &conf
			}
			id, err := a.db.SaveCandidateContext(r.Context(), c)
			if err != nil {
				log.Printf("Failed to save candidate: %v", err)
			} else {
				candidateID = &id
				resp.CandidateID = id
			}
		}

		cvID, err := a.db.SaveCVFile(r.Context(), candidateID, parsedCV.Filename,
			filepath.Join(a.cvParser.UploadsDir(), parsedCV.Filename), parsedCV.FileType, parsedCV.FullText, parsedCV.FileSize)
		if err != nil {
			log.Printf("Failed to save CV: %v", err)
			http.Error(w, "failed to save CV", http.StatusInternalServerError)
			return
		}
		resp.CVID = cvID
		log.Printf("CV saved to database with ID: %d", cvID)
	}

	resp.DurationMS = time.Since(startTime).Milliseconds()
	writeJSON(w, http.StatusOK, resp)
}
