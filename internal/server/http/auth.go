package http

import (
	"net/http"
)

type emailRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type setPinRequest struct {
	Pin        string `json:"pin"`
	SetupToken string `json:"setupToken"`
}

type loginRequest struct {
	Email string `json:"email"`
	Pin   string `json:"pin"`
}

type lookupResponse struct {
	Exists  bool `json:"exists"`
	IsAdmin bool `json:"isAdmin,omitempty"`
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	res, err := s.auth.Lookup(r.Context(), req.Email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lookupResponse{Exists: res.Exists, IsAdmin: res.IsAdmin})
}

func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	if err := s.auth.SendCode(r.Context(), req.Email); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	token, err := s.auth.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"setupToken": token})
}

func (s *Server) handleSetPin(w http.ResponseWriter, r *http.Request) {
	var req setPinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	session, err := s.auth.SetPin(r.Context(), req.SetupToken, req.Pin)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	session, err := s.auth.Login(r.Context(), req.Email, req.Pin)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}
