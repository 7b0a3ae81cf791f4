package http

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"creatorfin/internal/core"
	"creatorfin/internal/log"
	"creatorfin/internal/youtube"
)

type connectRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ChannelID    string `json:"channelId"`
	DisplayName  string `json:"displayName"`
}

type statusResponse struct {
	Connected   bool    `json:"connected"`
	ChannelID   *string `json:"channelId"`
	DisplayName string  `json:"displayName,omitempty"`
	ConnectedAt string  `json:"connectedAt,omitempty"`
}

func (s *Server) handleYouTubeAuthURL(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userFrom(w, r)
	if !ok {
		return
	}
	authURL, err := s.youtube.AuthURL(uid)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpExchange, "Failed to build YouTube authorization URL")
		return
	}
	NewJSONResponse().Body(map[string]string{"authUrl": authURL}).Write(w)
}

// handleYouTubeCallback finishes the OAuth flow and always redirects back
// to the frontend settings page, flagging success or the failure reason.
func (s *Server) handleYouTubeCallback(w http.ResponseWriter, r *http.Request) {
	if s.youtube == nil {
		http.Redirect(w, r, s.settingsURL("youtube_error", "not_configured"), http.StatusFound)
		return
	}

	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		s.logger.InfoContext(r.Context(), "YouTube consent denied", log.FieldError, reason)
		http.Redirect(w, r, s.settingsURL("youtube_error", "access_denied"), http.StatusFound)
		return
	}

	userID, err := s.youtube.HandleCallback(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		reason := youtube.ReasonPersistFailed
		var cbErr *youtube.CallbackError
		if errors.As(err, &cbErr) {
			reason = cbErr.Reason
		}
		fields := log.NewFields().With("reason", reason)
		if userID != "" {
			fields = fields.WithUser(userID)
		}
		s.events.LogError(r.Context(), "YouTube callback failed", err, log.ComponentOAuth, log.OpExchange, fields)
		http.Redirect(w, r, s.settingsURL("youtube_error", reason), http.StatusFound)
		return
	}

	http.Redirect(w, r, s.settingsURL("youtube_connected", "true"), http.StatusFound)
}

func (s *Server) settingsURL(key, value string) string {
	return s.frontendURL + "/settings?" + url.Values{key: {value}}.Encode()
}

func (s *Server) handleYouTubeConnect(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userFrom(w, r)
	if !ok {
		return
	}
	var req connectRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err, log.OpUpsert, "Failed to save YouTube connection")
		return
	}

	var ident *core.AccountIdentity
	if id := sanitizeInput(req.ChannelID); id != "" {
		ident = &core.AccountIdentity{PlatformAccountID: id, DisplayName: sanitizeInput(req.DisplayName)}
	}
	if err := s.youtube.Connect(r.Context(), uid, req.AccessToken, req.RefreshToken, ident); err != nil {
		s.writeServiceError(w, r, err, log.OpUpsert, "Failed to save YouTube connection")
		return
	}

	body := map[string]any{"success": true, "platform": core.PlatformYouTube}
	if ident != nil {
		body["channelId"] = ident.PlatformAccountID
	}
	NewJSONResponse().Body(body).Write(w)
}

func (s *Server) handleYouTubeSync(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userFrom(w, r)
	if !ok {
		return
	}
	res, err := s.youtube.Sync(r.Context(), uid)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpSync, "Failed to sync YouTube earnings")
		return
	}
	NewJSONResponse().Body(map[string]any{
		"success": true,
		"synced":  res.Synced,
		"skipped": res.Skipped,
		"from":    res.From.String(),
		"to":      res.To.String(),
	}).Write(w)
}

func (s *Server) handleYouTubeStatus(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userFrom(w, r)
	if !ok {
		return
	}
	st, err := s.youtube.Status(r.Context(), uid)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpRead, "Failed to check YouTube status")
		return
	}
	resp := statusResponse{Connected: st.Connected, ChannelID: st.ChannelID, DisplayName: st.DisplayName}
	if st.ConnectedAt != nil {
		resp.ConnectedAt = st.ConnectedAt.UTC().Format(time.RFC3339)
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleYouTubeDisconnect(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userFrom(w, r)
	if !ok {
		return
	}
	if err := s.youtube.Disconnect(r.Context(), uid); err != nil {
		s.writeServiceError(w, r, err, log.OpDelete, "Failed to disconnect YouTube")
		return
	}
	NewJSONResponse().Body(map[string]bool{"success": true}).Write(w)
}
