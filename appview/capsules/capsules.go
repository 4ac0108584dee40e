// Package capsules is the HTTP surface of the time-capsule core:
// creation, content reads, the owner's manual unlock trigger,
// reactions, comments, collaborators and media.
package capsules

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"memorylane.app/core/appview/access"
	"memorylane.app/core/appview/assistant"
	"memorylane.app/core/appview/db"
	"memorylane.app/core/appview/email"
	"memorylane.app/core/appview/fanout"
	"memorylane.app/core/appview/models"
	"memorylane.app/core/appview/notify"
	"memorylane.app/core/appview/pagination"
	"memorylane.app/core/appview/session"
	"memorylane.app/core/appview/unlock"
)

type Capsules struct {
	Db        *db.DB
	Sessions  *session.Store
	Unlock    *unlock.Service
	Fanout    *fanout.Fanout
	Assistant *assistant.Assistant
	Notifier  notify.Notifier
	Logger    *slog.Logger

	AppHost  string
	SentFrom string
}

var sanitize = bluemonday.StrictPolicy()

type createRequest struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	UnlockKind    string          `json:"unlockKind"`
	UnlockAt      *time.Time      `json:"unlockAt"`
	Recipients    []string        `json:"recipients"`
	Collaborators []collaboratorRequest `json:"collaborators"`
	Theme         string          `json:"theme"`
	Privacy       string          `json:"privacy"`
	MediaFiles    []mediaRequest  `json:"mediaFiles"`
}

type collaboratorRequest struct {
	UserId string `json:"userId"`
	Email  string `json:"email"`
}

type mediaRequest struct {
	Url  string `json:"url"`
	Kind string `json:"type"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

func (c *Capsules) create(w http.ResponseWriter, r *http.Request) {
	l := c.Logger.With("handler", "create")
	principal := session.FromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	kind := models.UnlockAtDate
	if req.UnlockKind != "" {
		switch models.UnlockKind(req.UnlockKind) {
		case models.UnlockAtDate, models.UnlockManual:
			kind = models.UnlockKind(req.UnlockKind)
		default:
			writeError(w, http.StatusBadRequest, "unknown unlock kind")
			return
		}
	}
	if kind == models.UnlockAtDate && req.UnlockAt == nil {
		writeError(w, http.StatusBadRequest, "date capsules need an unlock time")
		return
	}
	if kind == models.UnlockManual && req.UnlockAt != nil {
		writeError(w, http.StatusBadRequest, "manual capsules cannot carry an unlock time")
		return
	}

	for _, addr := range req.Recipients {
		if !email.IsValidEmail(addr) {
			writeError(w, http.StatusBadRequest, "invalid recipient address: "+addr)
			return
		}
	}

	privacy := models.PrivacyRecipientsOnly
	if req.Privacy != "" {
		parsed, ok := models.ParsePrivacy(req.Privacy)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown privacy setting")
			return
		}
		privacy = parsed
	}

	capsule := &models.Capsule{
		Id:              uuid.NewString(),
		Title:           sanitize.Sanitize(req.Title),
		Description:     sanitize.Sanitize(req.Description),
		OwnerId:         principal.Id,
		OwnerEmail:      principal.Email,
		OwnerName:       principal.Name,
		RecipientEmails: req.Recipients,
		UnlockKind:      kind,
		UnlockAt:        req.UnlockAt,
		State:           models.StateLocked,
		Privacy:         privacy,
		Theme:           models.ParseTheme(req.Theme),
	}
	for _, collab := range req.Collaborators {
		if !email.IsValidEmail(collab.Email) {
			writeError(w, http.StatusBadRequest, "invalid collaborator address: "+collab.Email)
			return
		}
		capsule.Collaborators = append(capsule.Collaborators, models.Collaborator{
			UserId: collab.UserId,
			Email:  collab.Email,
		})
	}

	if err := db.CreateCapsule(c.Db, capsule); err != nil {
		if errors.Is(err, db.ErrMemberOverlap) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		l.Error("failed to create capsule", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create capsule")
		return
	}

	mediaCount := 0
	for _, m := range req.MediaFiles {
		mediaKind, ok := models.ParseMediaKind(m.Kind)
		if !ok || m.Url == "" {
			continue
		}
		err := db.AddMedia(c.Db, &models.Media{
			Id:         uuid.NewString(),
			CapsuleId:  capsule.Id,
			UploaderId: principal.Id,
			Url:        m.Url,
			Kind:       mediaKind,
			Name:       m.Name,
			FileKey:    m.Key,
		})
		if err != nil {
			l.Error("failed to attach media", "capsule", capsule.Id, "err", err)
			continue
		}
		mediaCount++
	}

	report := c.Fanout.Dispatch(r.Context(), c.creationEmails(capsule))
	if len(report.Failed) > 0 {
		l.Warn("some creation notifications failed", "capsule", capsule.Id, "failed", len(report.Failed))
	}

	c.Notifier.CapsuleCreated(r.Context(), capsule)

	l.Info("created capsule", "capsule", capsule.Id, "media", mediaCount)
	writeJSON(w, http.StatusCreated, map[string]any{
		"capsuleId":  capsule.Id,
		"mediaCount": mediaCount,
	})
}

// creationEmails tells each recipient they have been added to a
// capsule; collaborators and the owner are not notified at creation.
func (c *Capsules) creationEmails(capsule *models.Capsule) []email.Email {
	creator := capsule.OwnerName
	if creator == "" {
		creator = "Someone special"
	}
	when := "when its owner opens it"
	if capsule.UnlockAt != nil {
		when = "on " + capsule.UnlockAt.Format("January 2, 2006")
	}

	emails := make([]email.Email, 0, len(capsule.RecipientEmails))
	for _, addr := range capsule.RecipientEmails {
		emails = append(emails, email.Email{
			From:    c.SentFrom,
			To:      addr,
			Subject: "You've Been Added to a Time Capsule: " + capsule.Title,
			Text: creator + " has created a time capsule and added you as a recipient: " + capsule.Title +
				"\n\nThis capsule will be ready to open " + when + ". You will receive another email with a link to " +
				c.AppHost + " when it unlocks.",
		})
	}
	return emails
}

type capsuleResponse struct {
	Id          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	OwnerId     string  `json:"ownerId"`
	OwnerName   string  `json:"ownerName"`
	Theme       string  `json:"theme"`
	Privacy     string  `json:"privacy"`
	State       string  `json:"state"`
	UnlockKind  string  `json:"unlockKind"`
	UnlockAt    *string `json:"unlockAt,omitempty"`
	UnlockedAt  *string `json:"unlockedAt,omitempty"`
	Created     string  `json:"created"`

	// Remaining is set while the capsule is still sealed.
	Remaining string `json:"remaining,omitempty"`

	Media     []mediaResponse   `json:"media,omitempty"`
	Comments  []commentResponse `json:"comments,omitempty"`
	Reactions map[string]int    `json:"reactions,omitempty"`
}

type mediaResponse struct {
	Id   string `json:"id"`
	Url  string `json:"url"`
	Kind string `json:"type"`
	Name string `json:"name"`
}

type commentResponse struct {
	Id       string `json:"id"`
	UserId   string `json:"userId"`
	UserName string `json:"userName"`
	Body     string `json:"body"`
	Created  string `json:"created"`
}

func capsuleMeta(capsule *models.Capsule) capsuleResponse {
	resp := capsuleResponse{
		Id:          capsule.Id,
		Title:       capsule.Title,
		Description: capsule.Description,
		OwnerId:     capsule.OwnerId,
		OwnerName:   capsule.OwnerName,
		Theme:       string(capsule.Theme),
		Privacy:     string(capsule.Privacy),
		State:       string(capsule.State),
		UnlockKind:  string(capsule.UnlockKind),
		Created:     capsule.Created.Format(time.RFC3339),
	}
	if capsule.UnlockAt != nil {
		s := capsule.UnlockAt.Format(time.RFC3339)
		resp.UnlockAt = &s
	}
	if capsule.UnlockedAt != nil {
		s := capsule.UnlockedAt.Format(time.RFC3339)
		resp.UnlockedAt = &s
	}
	return resp
}

func (c *Capsules) content(w http.ResponseWriter, r *http.Request) {
	l := c.Logger.With("handler", "content")
	principal := session.FromContext(r.Context())

	capsule, ok := c.fetch(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	decision := access.EvaluateContent(*principal, capsule, time.Now())
	switch decision.Level {
	case access.Forbidden:
		writeError(w, http.StatusForbidden, "forbidden")
		return

	case access.MetadataOnly:
		resp := capsuleMeta(capsule)
		resp.Remaining = decision.Remaining
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp := capsuleMeta(capsule)

	media, err := db.GetMedia(c.Db, capsule.Id)
	if err != nil {
		l.Error("failed to fetch media", "capsule", capsule.Id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch content")
		return
	}
	for _, m := range media {
		resp.Media = append(resp.Media, mediaResponse{Id: m.Id, Url: m.Url, Kind: string(m.Kind), Name: m.Name})
	}

	comments, err := db.GetComments(c.Db, capsule.Id)
	if err != nil {
		l.Error("failed to fetch comments", "capsule", capsule.Id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch content")
		return
	}
	for _, cm := range comments {
		resp.Comments = append(resp.Comments, commentResponse{
			Id:       cm.Id,
			UserId:   cm.UserId,
			UserName: cm.UserName,
			Body:     cm.Body,
			Created:  cm.Created.Format(time.RFC3339),
		})
	}

	counts, err := db.GetReactionCounts(c.Db, capsule.Id)
	if err != nil {
		l.Error("failed to fetch reactions", "capsule", capsule.Id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch content")
		return
	}
	resp.Reactions = counts

	writeJSON(w, http.StatusOK, resp)
}

func (c *Capsules) list(w http.ResponseWriter, r *http.Request) {
	l := c.Logger.With("handler", "list")
	principal := session.FromContext(r.Context())
	page := pagination.FromRequest(r)

	capsules, err := db.GetCapsulesForUser(c.Db, principal.Id, page.Limit, page.Offset)
	if err != nil {
		l.Error("failed to list capsules", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list capsules")
		return
	}

	out := make([]capsuleResponse, 0, len(capsules))
	for i := range capsules {
		out = append(out, capsuleMeta(&capsules[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"capsules": out})
}

func (c *Capsules) manualUnlock(w http.ResponseWriter, r *http.Request) {
	l := c.Logger.With("handler", "unlock")
	principal := session.FromContext(r.Context())

	capsule, ok := c.fetch(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	// only the owner may trigger an unlock by hand; the scheduler runs
	// with system authority and skips this check
	if !capsule.IsOwner(principal.Id) {
		writeError(w, http.StatusForbidden, "only the owner can unlock a capsule")
		return
	}

	result, err := c.Unlock.Unlock(r.Context(), capsule.Id)
	if err != nil {
		l.Error("unlock failed", "capsule", capsule.Id, "err", err)
		writeError(w, http.StatusInternalServerError, "unlock failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"alreadyUnlocked":   result.AlreadyUnlocked,
		"notificationsSent": result.Report.Sent,
		"failed":            result.Report.Failed,
	})
}

func (c *Capsules) react(w http.ResponseWriter, r *http.Request) {
	l := c.Logger.With("handler", "react")
	principal := session.FromContext(r.Context())

	capsule, ok := c.fetch(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Emoji == "" {
		writeError(w, http.StatusBadRequest, "emoji is required")
		return
	}

	if !capsule.ConditionSatisfied(time.Now()) {
		writeError(w, http.StatusForbidden, "capsule is locked")
		return
	}

	action, err := db.ToggleReaction(c.Db, capsule.Id, principal.Id, req.Emoji)
	if err != nil {
		l.Error("failed to toggle reaction", "capsule", capsule.Id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle reaction")
		return
	}

	c.Notifier.ReactionToggled(r.Context(), capsule, principal.Id, action)

	writeJSON(w, http.StatusOK, map[string]any{"action": action})
}

func (c *Capsules) comment(w http.ResponseWriter, r *http.Request) {
	l := c.Logger.With("handler", "comment")
	principal := session.FromContext(r.Context())

	capsule, ok := c.fetch(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	if !capsule.ConditionSatisfied(time.Now()) {
		writeError(w, http.StatusForbidden, "capsule is still locked")
		return
	}

	comment := &models.Comment{
		Id:        uuid.NewString(),
		CapsuleId: capsule.Id,
		UserId:    principal.Id,
		UserName:  principal.Name,
		Body:      sanitize.Sanitize(req.Text),
	}
	if err := db.AddComment(c.Db, comment); err != nil {
		l.Error("failed to add comment", "capsule", capsule.Id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to add comment")
		return
	}

	c.Notifier.CommentAdded(r.Context(), capsule, comment)

	writeJSON(w, http.StatusCreated, commentResponse{
		Id:       comment.Id,
		UserId:   comment.UserId,
		UserName: comment.UserName,
		Body:     comment.Body,
		Created:  time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *Capsules) collaborate(w http.ResponseWriter, r *http.Request) {
	l := c.Logger.With("handler", "collaborate")
	principal := session.FromContext(r.Context())

	capsule, ok := c.fetch(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if !capsule.IsOwner(principal.Id) {
		writeError(w, http.StatusForbidden, "only the owner can manage collaborators")
		return
	}

	var req collaboratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserId == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if !email.IsValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid collaborator address")
		return
	}

	collab := models.Collaborator{UserId: req.UserId, Email: req.Email}
	err := db.AddCollaborator(c.Db, capsule.Id, collab)
	switch {
	case errors.Is(err, db.ErrMemberOverlap):
		writeError(w, http.StatusBadRequest, "this address is a recipient and cannot also collaborate")
		return
	case errors.Is(err, db.ErrAlreadyCollaborator):
		writeError(w, http.StatusBadRequest, "user is already contributing to this capsule")
		return
	case err != nil:
		l.Error("failed to add collaborator", "capsule", capsule.Id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to add collaborator")
		return
	}

	c.Notifier.CollaboratorAdded(r.Context(), capsule, &collab)

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "email": req.Email})
}

func (c *Capsules) addMedia(w http.ResponseWriter, r *http.Request) {
	l := c.Logger.With("handler", "addMedia")
	principal := session.FromContext(r.Context())

	capsule, ok := c.fetch(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if !capsule.IsCollaborator(principal.Id) {
		writeError(w, http.StatusForbidden, "only the owner or a collaborator can add media")
		return
	}

	var req mediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Url == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	kind, ok := models.ParseMediaKind(req.Kind)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown media type")
		return
	}

	media := &models.Media{
		Id:         uuid.NewString(),
		CapsuleId:  capsule.Id,
		UploaderId: principal.Id,
		Url:        req.Url,
		Kind:       kind,
		Name:       req.Name,
		FileKey:    req.Key,
	}
	if err := db.AddMedia(c.Db, media); err != nil {
		l.Error("failed to add media", "capsule", capsule.Id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to add media")
		return
	}

	writeJSON(w, http.StatusCreated, mediaResponse{Id: media.Id, Url: media.Url, Kind: string(media.Kind), Name: media.Name})
}

func (c *Capsules) assist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
		Input  string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	action, ok := assistant.ParseAction(req.Action)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"text": c.Assistant.Generate(r.Context(), action, req.Input),
	})
}

// fetch resolves the capsule or writes the appropriate error response.
func (c *Capsules) fetch(w http.ResponseWriter, id string) (*models.Capsule, bool) {
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing capsule id")
		return nil, false
	}
	capsule, err := db.GetCapsule(c.Db, id)
	if errors.Is(err, db.ErrCapsuleNotFound) {
		writeError(w, http.StatusNotFound, "capsule not found")
		return nil, false
	}
	if err != nil {
		c.Logger.Error("failed to fetch capsule", "capsule", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch capsule")
		return nil, false
	}
	return capsule, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
