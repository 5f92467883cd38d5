package handler

import (
	"net/http"
	"strconv"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/http/response"
	"github.com/youthorg/admingate/internal/repository"
	"github.com/youthorg/admingate/internal/service"
)

type ActivityHandler struct {
	activity *service.ActivityLogger
	guard    RequestGuard
}

func NewActivityHandler(activity *service.ActivityLogger, guard RequestGuard) *ActivityHandler {
	return &ActivityHandler{activity: activity, guard: guard}
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !admit(w, r, h.guard, p) {
		return
	}
	q := r.URL.Query()
	result, err := h.activity.List(r.Context(), repository.ActivityQuery{
		PageRequest: pageRequestFromQuery(r),
		ActorID:     q.Get("actorId"),
		Action:      domain.ActivityAction(q.Get("action")),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

// pageRequestFromQuery reads page and pageSize; bad values fall back to the
// repository defaults.
func pageRequestFromQuery(r *http.Request) repository.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("pageSize"))
	return repository.PageRequest{Page: page, PageSize: size}
}
