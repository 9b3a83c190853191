package handlers

import (
	"log/slog"
	"net/http"

	"github.com/nomis52/goactivity/activity"
)

// Operation names used for logging and metrics.
const (
	OpCreate = "create"
	OpRead   = "read"
	OpUpdate = "update"
	OpDelete = "delete"
)

// CreateResponse is returned by POST /activities.
type CreateResponse struct {
	Message string `json:"message"`
	ID      int    `json:"id"`
}

// ActivityResponse is returned by GET /activities when an id is given.
type ActivityResponse struct {
	Message  string            `json:"message"`
	Activity activity.Activity `json:"activity"`
}

// ActivityListResponse is returned by GET /activities for the whole store or
// a category.
type ActivityListResponse struct {
	Message    string              `json:"message"`
	Activities []activity.Activity `json:"activities"`
}

// MessageResponse is returned by PATCH and DELETE /activities.
type MessageResponse struct {
	Message string `json:"message"`
}

var readMessages = map[activity.ReadStatus]string{
	activity.ReadAll:                  "all activities",
	activity.ReadFoundByID:            "id found",
	activity.ReadFoundByIDAndCategory: "id and category found",
	activity.ReadFoundByCategory:      "category found",
}

var deleteMessages = map[activity.DeleteStatus]string{
	activity.DeletedAll:      "all activities deleted",
	activity.Deleted:         "activities deleted",
	activity.NothingToDelete: "nothing deleted, no activity has the given category",
}

// ActivitiesHandler serves the create, read, update and delete endpoints.
type ActivitiesHandler struct {
	logger   *slog.Logger
	store    ActivityStore
	observer OperationObserver
}

// NewActivitiesHandler creates a new ActivitiesHandler. observer may be nil.
func NewActivitiesHandler(logger *slog.Logger, store ActivityStore, observer OperationObserver) *ActivitiesHandler {
	return &ActivitiesHandler{
		logger:   logger,
		store:    store,
		observer: observer,
	}
}

func (h *ActivitiesHandler) observe(op string, err error) {
	if err != nil {
		h.logger.Debug("activity request rejected", "operation", op, "reason", err.Error(), "result", resultLabel(err))
	}
	if h.observer != nil {
		h.observer.ObserveOperation(op, resultLabel(err))
	}
}

// Create handles POST /activities.
func (h *ActivitiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := h.create(r)
	h.observe(OpCreate, err)
	if err != nil {
		writeError(w, err)
		return
	}
	h.logger.Debug("activity created", "id", id)
	writeJSON(w, http.StatusCreated, CreateResponse{Message: "activity created", ID: id})
}

func (h *ActivitiesHandler) create(r *http.Request) (int, error) {
	in, err := decodeInput(r)
	if err != nil {
		return 0, err
	}
	return h.store.Create(in)
}

// Read handles GET /activities.
func (h *ActivitiesHandler) Read(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.Read(parseQuery(r))
	h.observe(OpRead, err)
	if err != nil {
		writeError(w, err)
		return
	}

	message := readMessages[res.Status]
	if res.Single() {
		writeJSON(w, http.StatusOK, ActivityResponse{Message: message, Activity: res.Activities[0]})
		return
	}
	activities := res.Activities
	if activities == nil {
		activities = []activity.Activity{}
	}
	writeJSON(w, http.StatusOK, ActivityListResponse{Message: message, Activities: activities})
}

// Update handles PATCH /activities?id=N.
func (h *ActivitiesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := queryParam(r, paramID)
	if !id.Present() {
		// The id is checked before the body is looked at.
		h.observe(OpUpdate, activity.ErrMissingID)
		writeError(w, activity.ErrMissingID)
		return
	}

	in, err := decodeInput(r)
	if err == nil {
		err = h.store.Update(id, in)
	}
	h.observe(OpUpdate, err)
	if err != nil {
		writeError(w, err)
		return
	}
	rawID, _ := id.Get()
	h.logger.Debug("activity updated", "id", rawID)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "activity updated"})
}

// Delete handles DELETE /activities.
func (h *ActivitiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.Delete(parseQuery(r))
	h.observe(OpDelete, err)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.observer != nil {
		h.observer.ObserveDeleted(res.Removed)
	}
	h.logger.Debug("activities deleted", "status", string(res.Status), "removed", res.Removed)
	writeJSON(w, http.StatusOK, MessageResponse{Message: deleteMessages[res.Status]})
}
