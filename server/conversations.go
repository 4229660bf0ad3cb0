package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/malonaz/popchat/internal/debug"
	"github.com/malonaz/popchat/internal/export"
	"github.com/malonaz/popchat/store"
)

// ListConversationsResponse is a page of conversation metadata, most recent first.
type ListConversationsResponse struct {
	Conversations []*store.Metadata `json:"conversations"`
	LastActiveID  string            `json:"lastActiveConversationId,omitempty"`
	Page          int               `json:"page"`
	PageCount     int               `json:"pageCount"`
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(r.URL.Query().Get("page_size"))
	if err != nil || pageSize < 1 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	conversations, err := s.store.List(r.Context())
	if err != nil {
		s.respondInternalError(w, r, err)
		return
	}
	lastActiveID, err := s.store.LastActive(r.Context())
	if err != nil {
		s.respondInternalError(w, r, err)
		return
	}

	metadata := make([]*store.Metadata, 0, len(conversations))
	for _, conversation := range conversations {
		if query != "" && !strings.Contains(strings.ToLower(conversation.Title), query) {
			continue
		}
		metadata = append(metadata, conversation.Metadata())
	}
	store.SortByRecency(metadata)

	// Pages past the last one are empty.
	pageCount := (len(metadata) + pageSize - 1) / pageSize
	start := len(metadata)
	if page <= pageCount {
		start = (page - 1) * pageSize
	}
	end := min(start+pageSize, len(metadata))
	respondJSON(w, http.StatusOK, &ListConversationsResponse{
		Conversations: metadata[start:end],
		LastActiveID:  lastActiveID,
		Page:          page,
		PageCount:     pageCount,
	})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conversation, ok := s.getConversation(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, conversation)
}

func (s *Server) handleExportConversation(w http.ResponseWriter, r *http.Request) {
	conversation, ok := s.getConversation(w, r)
	if !ok {
		return
	}
	document, err := export.Markdown(conversation)
	if err != nil {
		s.respondInternalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+conversation.ID+`.md"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(document))
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	conversation, ok := s.getConversation(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(r.Context(), conversation.ID); err != nil {
		s.respondInternalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getConversation fetches the conversation named in the path, or responds with an error.
func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) (*store.Conversation, bool) {
	id := chi.URLParam(r, "conversationID")
	conversation, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrConversationNotFound) {
			respondError(w, http.StatusNotFound, "conversation "+id+" not found")
			return nil, false
		}
		s.respondInternalError(w, r, err)
		return nil, false
	}
	return conversation, true
}

func (s *Server) respondInternalError(w http.ResponseWriter, r *http.Request, err error) {
	debug.GetLogger().Error("handling request", "path", r.URL.Path, "error", err)
	respondError(w, http.StatusInternalServerError, "internal error")
}
