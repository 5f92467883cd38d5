package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/youthorg/admingate/internal/http/response"
	"github.com/youthorg/admingate/internal/service"
)

type PostHandler struct {
	posts *service.PostService
	guard RequestGuard
}

func NewPostHandler(posts *service.PostService, guard RequestGuard) *PostHandler {
	return &PostHandler{posts: posts, guard: guard}
}

type createPostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !admit(w, r, h.guard, p) {
		return
	}
	result, err := h.posts.List(r.Context(), pageRequestFromQuery(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !admit(w, r, h.guard, p) {
		return
	}
	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	post, err := h.posts.Create(r.Context(), p, req.Title, req.Body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, post)
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !admit(w, r, h.guard, p) {
		return
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid post id", nil)
		return
	}
	if err := h.posts.Delete(r.Context(), p, uint(id)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
