package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pbaille/sheet/internal/domain"
	"github.com/pbaille/sheet/internal/skilltree"
)

// AddSkillRequest is the request body for adding a skill
type AddSkillRequest struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// UpdateSkillRequest changes a skill's name, points or both
type UpdateSkillRequest struct {
	Name  *string `json:"name,omitempty"`
	Value *int    `json:"value,omitempty"`
}

func (s *Server) listTrees(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"skillTrees": s.Registry.LoadAll(r.Context()),
	})
}

func (s *Server) getTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.Skills.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeTreeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) setTreeTitle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	tree, err := s.Skills.SetTitle(r.Context(), chi.URLParam(r, "id"), req.Title)
	s.respondTree(w, tree, err)
}

func (s *Server) setTreeBonus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ManualBonus int `json:"manualBonus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tree, err := s.Skills.SetManualBonus(r.Context(), chi.URLParam(r, "id"), req.ManualBonus)
	s.respondTree(w, tree, err)
}

func (s *Server) addSkill(w http.ResponseWriter, r *http.Request) {
	var req AddSkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	tree, err := s.Skills.AddSkill(r.Context(), chi.URLParam(r, "id"), req.Name, req.Value)
	if err != nil {
		writeTreeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tree)
}

func (s *Server) updateSkill(w http.ResponseWriter, r *http.Request) {
	var req UpdateSkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == nil && req.Value == nil {
		writeError(w, http.StatusBadRequest, "name or value is required")
		return
	}

	treeID, skillID := chi.URLParam(r, "id"), chi.URLParam(r, "skillID")
	var (
		tree domain.SkillTree
		err  error
	)
	if req.Name != nil {
		tree, err = s.Skills.RenameSkill(r.Context(), treeID, skillID, *req.Name)
	}
	if err == nil && req.Value != nil {
		tree, err = s.Skills.SetSkillValue(r.Context(), treeID, skillID, *req.Value)
	}
	s.respondTree(w, tree, err)
}

func (s *Server) removeSkill(w http.ResponseWriter, r *http.Request) {
	tree, err := s.Skills.RemoveSkill(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "skillID"))
	s.respondTree(w, tree, err)
}

func (s *Server) respondTree(w http.ResponseWriter, tree domain.SkillTree, err error) {
	if err != nil {
		writeTreeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func writeTreeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, skilltree.ErrInvalidID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, skilltree.ErrSkillNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, skilltree.ErrNotPersisted):
		writeError(w, http.StatusInsufficientStorage, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
