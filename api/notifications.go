package api

import (
	"net/http"

	"github.com/garnizeh/hirehub/pkg/models"
	"github.com/garnizeh/hirehub/pkg/repository"
)

type NotificationsHandler struct {
	notifications repository.NotificationRepo
}

func NewNotificationsHandler(nr repository.NotificationRepo) *NotificationsHandler {
	return &NotificationsHandler{notifications: nr}
}

// List returns the caller's notifications, newest first.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.notifications.ListNotificationsByUser(r.Context(), mustClaims(r).Subject())
	if err != nil {
		writeError(w, r, models.StorageErr("list notifications", err))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *NotificationsHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "notificationId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.notifications.GetNotificationByID(r.Context(), id)
	if err != nil {
		writeError(w, r, models.StorageErr("lookup notification", err))
		return
	}
	if n == nil {
		writeError(w, r, models.ErrNotificationNotFound)
		return
	}
	if n.UserID != mustClaims(r).Subject() {
		writeError(w, r, models.ErrForbidden)
		return
	}
	if err := h.notifications.MarkNotificationSeen(r.Context(), id); err != nil {
		writeError(w, r, models.StorageErr("mark notification seen", err))
		return
	}
	writeMessage(w, http.StatusOK, "Notification marked as seen")
}
