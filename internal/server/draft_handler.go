package server

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"voxcrm/internal/draft"
	"voxcrm/internal/store"
)

// maxUploadBytes bounds the whole multipart body (two audio clips).
const maxUploadBytes = 50 << 20

func (s *Server) handleGenerateDraft(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	contactID := mux.Vars(r)["id"]

	contact, err := s.store.GetContact(userID, contactID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if contact == nil {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	relationship, relRec, err := s.saveClip(r, userID, contactID, "relationship_audio", store.RecordingKindRelationship)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	content, contRec, err := s.saveClip(r, userID, contactID, "content_audio", store.RecordingKindContent)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := s.drafts.Generate(r.Context(), userID, contactID, relRec.ID, contRec.ID, relationship, content)
	if err != nil {
		s.logger.Error("draft generation failed",
			zap.String("contact_id", contactID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "draft generation failed")
		return
	}
	writeSuccess(w, http.StatusCreated, d, "draft generated")
}

// saveClip persists one uploaded audio clip to disk and records it.
func (s *Server) saveClip(r *http.Request, userID, contactID, field, kind string) (draft.Audio, *store.Recording, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return draft.Audio{}, nil, errors.New(field + " is required")
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return draft.Audio{}, nil, err
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "audio/mpeg"
	}

	path, err := s.writeUpload(header, data)
	if err != nil {
		return draft.Audio{}, nil, err
	}
	rec, err := s.store.CreateRecording(userID, contactID, kind, path, mimeType)
	if err != nil {
		return draft.Audio{}, nil, err
	}
	return draft.Audio{Data: data, MIMEType: mimeType}, rec, nil
}

func (s *Server) writeUpload(header *multipart.FileHeader, data []byte) (string, error) {
	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		return "", err
	}
	name := uuid.New().String() + filepath.Ext(header.Filename)
	path := filepath.Join(s.uploadsDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Server) handleApproveDraft(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	d, err := s.drafts.Take(userID, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, draft.ErrNotFound) {
			writeError(w, http.StatusNotFound, "draft not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	email, err := s.store.CreateApprovedEmail(userID, d.ContactID, d.RelationshipRecording, d.ContentRecording, d.Body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.notify(userID, "email.approved", email)
	writeSuccess(w, http.StatusOK, email, "draft approved")
}

func (s *Server) handleListApprovedEmails(w http.ResponseWriter, r *http.Request) {
	emails, err := s.store.ListApprovedEmails(UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if emails == nil {
		emails = []store.ApprovedEmail{}
	}
	writeSuccess(w, http.StatusOK, emails, "")
}
