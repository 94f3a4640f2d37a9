package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"voxcrm/internal/store"
)

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.store.ListContacts(UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if contacts == nil {
		contacts = []store.Contact{}
	}
	writeSuccess(w, http.StatusOK, contacts, "")
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	userID := UserID(r.Context())
	contact, err := s.store.CreateContact(userID, req.Name, req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.notify(userID, "contact.created", contact)
	writeSuccess(w, http.StatusCreated, contact, "contact created")
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	contact, err := s.store.GetContact(UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if contact == nil {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}
	writeSuccess(w, http.StatusOK, contact, "")
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	userID := UserID(r.Context())
	contact, err := s.store.UpdateContact(userID, mux.Vars(r)["id"], req.Name, req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if contact == nil {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}
	s.notify(userID, "contact.updated", contact)
	writeSuccess(w, http.StatusOK, contact, "contact updated")
}

func (s *Server) handleRecordAccess(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	contactID := mux.Vars(r)["id"]
	ok, err := s.store.TouchContactAccess(userID, contactID, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}
	s.notify(userID, "contact.accessed", map[string]string{"contact_id": contactID})
	writeSuccess(w, http.StatusOK, nil, "access recorded")
}

func (s *Server) handleClearRecents(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	if err := s.store.ClearRecents(userID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.notify(userID, "recents.cleared", nil)
	writeSuccess(w, http.StatusOK, nil, "recents cleared")
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	s.setFavorite(w, r, true)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	s.setFavorite(w, r, false)
}

func (s *Server) setFavorite(w http.ResponseWriter, r *http.Request, favorite bool) {
	userID := UserID(r.Context())
	contactID := mux.Vars(r)["id"]
	ok, err := s.store.SetFavorite(userID, contactID, favorite)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}
	s.notify(userID, "favorite.toggled", map[string]interface{}{
		"contact_id":  contactID,
		"is_favorite": favorite,
	})
	writeSuccess(w, http.StatusOK, nil, "favorite updated")
}

func (s *Server) handleClearFavorites(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	if err := s.store.ClearFavorites(userID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.notify(userID, "favorites.cleared", nil)
	writeSuccess(w, http.StatusOK, nil, "favorites cleared")
}
