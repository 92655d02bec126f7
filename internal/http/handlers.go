package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/leads"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/tenant"
)

// scopedContext builds a tenant-scoped request context from the
// authenticated identity set by requireAuth.
func scopedContext(c echo.Context) (echo.Context, *tenant.Info, bool) {
	id, ok := identityFrom(c)
	if !ok {
		return c, nil, false
	}
	info := &tenant.Info{TenantID: id.TenantID, UserID: id.UserID}
	c.SetRequest(c.Request().WithContext(tenant.NewContext(c.Request().Context(), info)))
	return c, info, true
}

// LeadResponse is one lead in list responses.
type LeadResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Name           string `json:"name,omitempty"`
	Company        string `json:"company,omitempty"`
	Status         string `json:"status"`
	Origin         string `json:"origin"`
	IntentKeywords string `json:"intentKeywords,omitempty"`
	LastMessage    string `json:"lastMessage,omitempty"`
	UpdatedAt      string `json:"updatedAt"`
}

func (s *Server) handleListLeads(c echo.Context) error {
	c, info, ok := scopedContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	rows, err := s.deps.LeadRepo.List(c.Request().Context(), info.TenantID, c.QueryParam("q"), limit)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, CodeInternal, "listing leads failed")
	}
	out := make([]LeadResponse, len(rows))
	for i, l := range rows {
		out[i] = LeadResponse{
			ID:             l.ID,
			Email:          l.Email,
			Phone:          l.Phone,
			Name:           l.Name,
			Company:        l.Company,
			Status:         l.Status,
			Origin:         l.Origin,
			IntentKeywords: l.IntentKeywords,
			LastMessage:    l.LastMessage,
			UpdatedAt:      l.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"leads": out})
}

func (s *Server) handleDeleteLead(c echo.Context) error {
	c, info, ok := scopedContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
	}
	id := c.Param("id")
	if err := s.deps.LeadRepo.Delete(c.Request().Context(), info.TenantID, id); err != nil {
		if errors.Is(err, leads.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, CodeNotFound, "lead not found")
		}
		return errorJSON(c, http.StatusInternalServerError, CodeInternal, "deleting lead failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// DocumentRequest is the body of POST /api/v1/documents.
type DocumentRequest struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// DocumentResponse describes one indexed document.
type DocumentResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	ChunkCount int    `json:"chunkCount"`
	UpdatedAt  string `json:"updatedAt"`
}

func (s *Server) handleListDocuments(c echo.Context) error {
	c, _, ok := scopedContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
	}
	docs, err := s.deps.Documents.List(c.Request().Context())
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, CodeInternal, "listing documents failed")
	}
	out := make([]DocumentResponse, len(docs))
	for i, d := range docs {
		out[i] = DocumentResponse{
			ID:         d.ID,
			Title:      d.Title,
			ChunkCount: d.ChunkCount,
			UpdatedAt:  d.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"documents": out})
}

func (s *Server) handleUpsertDocument(c echo.Context) error {
	c, _, ok := scopedContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
	}
	var req DocumentRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, CodeBadRequest, "malformed request body")
	}
	if req.Content == "" {
		return errorJSON(c, http.StatusBadRequest, CodeBadRequest, "content is required")
	}
	doc, err := s.deps.Documents.Upsert(c.Request().Context(), req.ID, req.Title, req.Content)
	if err != nil {
		status, code := mapError(err)
		return errorJSON(c, status, code, "document ingestion failed")
	}
	return c.JSON(http.StatusOK, DocumentResponse{
		ID:         doc.ID,
		Title:      doc.Title,
		ChunkCount: doc.ChunkCount,
		UpdatedAt:  doc.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (s *Server) handleDeleteDocument(c echo.Context) error {
	c, _, ok := scopedContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
	}
	if err := s.deps.Documents.Delete(c.Request().Context(), c.Param("id")); err != nil {
		status, code := mapError(err)
		return errorJSON(c, status, code, "deleting document failed")
	}
	return c.NoContent(http.StatusNoContent)
}
