package http

import (
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/playerhub/internal/server/models"
	"github.com/dmitrijs2005/playerhub/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type deviceResponse struct {
	ID               string      `json:"id"`
	FriendlyName     string      `json:"friendlyName"`
	Role             models.Role `json:"role,omitempty"`
	MasterEmail      string      `json:"masterEmail,omitempty"`
	DispatchEndpoint string      `json:"dispatchEndpoint,omitempty"`
}

type memberResponse struct {
	Email   string      `json:"email"`
	Role    models.Role `json:"role"`
	AddedBy string      `json:"addedBy,omitempty"`
}

type contentResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ContentType string    `json:"contentType"`
	PostedBy    string    `json:"postedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UploadURL   string    `json:"uploadUrl,omitempty"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
}

type claimRequest struct {
	DeviceID     string `json:"deviceId"`
	FriendlyName string `json:"friendlyName"`
}

type announceRequest struct {
	DeviceID     string `json:"deviceId"`
	Email        string `json:"email"`
	FriendlyName string `json:"friendlyName"`
}

type renameRequest struct {
	FriendlyName string `json:"friendlyName"`
}

type dispatchRequest struct {
	Endpoint string `json:"endpoint"`
}

type contentRequest struct {
	Title       string `json:"title"`
	ContentType string `json:"contentType"`
}

// urlParam returns a route parameter with percent-escapes decoded. chi
// matches against the raw path when the client escaped characters such as
// '@' that a path may carry literally.
func urlParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// authorize resolves the {deviceId} route parameter against the caller's
// role and writes the rejection itself.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, required []models.Role) (*services.Access, bool) {
	a, err := s.guard.Authorize(r.Context(), principalFromContext(r.Context()), urlParam(r, "deviceId"), required)
	if err != nil {
		s.writeServiceError(w, r, err)
		return nil, false
	}
	return a, true
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	list, err := s.devices.List(r.Context(), principalFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := make([]deviceResponse, 0, len(list))
	for _, d := range list {
		out = append(out, deviceResponse{ID: d.ID, FriendlyName: d.FriendlyName, Role: d.Role})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	d, err := s.devices.Claim(r.Context(), principalFromContext(r.Context()), req.DeviceID, req.FriendlyName)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"deviceId": d.ID})
}

func (s *Server) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	var req announceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	status, err := s.devices.Announce(r.Context(), req.DeviceID, req.Email, req.FriendlyName)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"status": status})
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authorize(w, r, services.MasterOnly)
	if !ok {
		return
	}

	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	d, err := s.devices.Rename(r.Context(), a, req.FriendlyName)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deviceResponse{ID: d.ID, FriendlyName: d.FriendlyName, MasterEmail: d.MasterEmail, DispatchEndpoint: d.DispatchEndpoint})
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authorize(w, r, services.MasterOnly)
	if !ok {
		return
	}

	if err := s.devices.Release(r.Context(), a); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleRegisterDispatch(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authorize(w, r, services.MasterOnly)
	if !ok {
		return
	}

	var req dispatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	d, err := s.devices.RegisterDispatch(r.Context(), a, req.Endpoint)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deviceResponse{ID: d.ID, FriendlyName: d.FriendlyName, MasterEmail: d.MasterEmail, DispatchEndpoint: d.DispatchEndpoint})
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authorize(w, r, services.AnyMember)
	if !ok {
		return
	}

	members, err := s.devices.Members(r.Context(), a)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{Email: m.Email, Role: m.Role, AddedBy: m.AddedBy})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authorize(w, r, services.MasterOnly)
	if !ok {
		return
	}

	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	if err := s.devices.Share(r.Context(), a, req.Email); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleUnshare(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authorize(w, r, services.MasterOnly)
	if !ok {
		return
	}

	if err := s.devices.Unshare(r.Context(), a, urlParam(r, "email")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handlePostContent(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authorize(w, r, services.AnyMember)
	if !ok {
		return
	}

	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	posted, err := s.content.Post(r.Context(), a, req.Title, req.ContentType)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, contentResponse{
		ID:          posted.ID,
		Title:       posted.Title,
		ContentType: posted.ContentType,
		PostedBy:    posted.PostedBy,
		CreatedAt:   posted.CreatedAt,
		UploadURL:   posted.UploadURL,
	})
}

func (s *Server) handleListContent(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authorize(w, r, services.AnyMember)
	if !ok {
		return
	}

	items, err := s.content.List(r.Context(), a)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := make([]contentResponse, 0, len(items))
	for _, c := range items {
		out = append(out, contentResponse{
			ID:          c.ID,
			Title:       c.Title,
			ContentType: c.ContentType,
			PostedBy:    c.PostedBy,
			CreatedAt:   c.CreatedAt,
			DownloadURL: c.DownloadURL,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authorize(w, r, services.MasterOnly)
	if !ok {
		return
	}

	var payload map[string]any
	if err := decodeOptionalJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	res, err := s.commands.Send(r.Context(), a, urlParam(r, "command"), payload)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
