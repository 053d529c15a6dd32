package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vkick/wabridge/pkg/storage/repository"
	"github.com/vkick/wabridge/pkg/wa"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": s.bridge.State(),
	})
}

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	if dataURI, _, ok := s.bridge.QR(); ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"qr": dataURI,
		})
		return
	}

	state := s.bridge.State()
	if state == wa.StateConnected {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message": "already connected",
			"status":  state,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "qr code not available yet",
		"status":  state,
	})
}

func (s *Server) handleIncoming(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid since parameter"}`, http.StatusBadRequest)
			return
		}
		since = v
	}

	messages, latest := s.buffer.Since(since)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages":         messages,
		"count":            len(messages),
		"latest_timestamp": latest,
	})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Recipient string `json:"recipient"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	if body.Recipient == "" || body.Message == "" {
		http.Error(w, `{"error":"recipient and message are required"}`, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := s.bridge.Send(ctx, body.Recipient, body.Message)
	switch {
	case errors.Is(err, wa.ErrNotConnected):
		http.Error(w, `{"error":"not connected"}`, http.StatusServiceUnavailable)
		return
	case errors.Is(err, wa.ErrBadRecipient):
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"recipient":  result.Recipient,
		"message_id": result.MessageID,
	})
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.contacts.List(r.Context())
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	default:
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleContactDetail(w http.ResponseWriter, r *http.Request) {
	// Extract the JID from the path: /api/contacts/{jid}
	jid := strings.TrimPrefix(r.URL.Path, "/api/contacts/")
	if jid == "" {
		http.Error(w, `{"error":"contact jid required"}`, http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		contact, err := s.contacts.Get(r.Context(), jid)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if contact == nil {
			http.Error(w, `{"error":"contact not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, contact)

	case http.MethodDelete:
		if err := s.contacts.Delete(r.Context(), jid); err != nil {
			http.Error(w, `{"error":"contact not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCron(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jobs, err := s.scheduler.ListJobs(r.Context(), true)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, jobs)

	case http.MethodPost:
		var body struct {
			Name           string                  `json:"name"`
			Schedule       repository.CronSchedule `json:"schedule"`
			To             string                  `json:"to"`
			Message        string                  `json:"message"`
			DeleteAfterRun bool                    `json:"delete_after_run"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
			return
		}

		job, err := s.scheduler.AddJob(r.Context(), body.Name, body.Schedule, body.To, body.Message, body.DeleteAfterRun)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, job)

	default:
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCronDetail(w http.ResponseWriter, r *http.Request) {
	// Extract the job id from the path: /api/cron/{id}
	jobID := strings.TrimPrefix(r.URL.Path, "/api/cron/")
	if jobID == "" {
		http.Error(w, `{"error":"job id required"}`, http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		job, err := s.scheduler.GetJob(r.Context(), jobID)
		if err != nil {
			http.Error(w, `{"error":"job not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, job)

	case http.MethodDelete:
		if !s.scheduler.RemoveJob(r.Context(), jobID) {
			http.Error(w, `{"error":"job not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Auth via query param for WebSocket
	if s.config.Token != "" && r.URL.Query().Get("token") != s.config.Token {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	s.hub.handleWebSocket(w, r)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
