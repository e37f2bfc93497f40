package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-stepform/pkg/navigator"
	"github.com/goliatone/go-stepform/pkg/render"
	"github.com/goliatone/go-stepform/pkg/session"
)

// Form actions posted by the section page buttons.
const (
	actionNext   = "next"
	actionPrev   = "prev"
	actionSubmit = "submit"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.lookup(r); ok {
		redirect(w, r, "/form")
		return
	}
	s.render(w, r, http.StatusOK, render.Page{Kind: render.PageLogin})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}
	identifier := strings.TrimSpace(r.PostForm.Get("identifier"))
	name := strings.TrimSpace(r.PostForm.Get("name"))
	retry := func(status int, message string) {
		s.render(w, r, status, render.Page{
			Kind:       render.PageLogin,
			Identifier: identifier,
			Name:       name,
			Message:    message,
		})
	}

	identity, err := session.NewIdentity(identifier, name)
	if err != nil {
		retry(http.StatusBadRequest, LoginMissingMessage)
		return
	}
	if !s.limiter.Allow() {
		s.logger.Warn("login throttled", zap.String("identifier", identifier))
		retry(http.StatusTooManyRequests, LoginThrottleMessage)
		return
	}
	if err := s.auth.Login(r.Context(), identity); err != nil {
		s.logger.Info("login failed", zap.String("identifier", identifier), zap.Error(err))
		retry(http.StatusUnauthorized, LoginFailedMessage)
		return
	}

	if old, ok := s.lookup(r); ok {
		s.sessions.remove(old.id)
	}

	logger := s.logger.With(zap.String("identifier", identity.Identifier))
	opts := append([]session.Option{session.WithLogger(logger), session.WithSink(s.sink)}, s.sessionOpts...)
	e := &entry{
		id:    uuid.NewString(),
		token: uuid.NewString(),
		sess:  session.New(identity, opts...),
	}
	s.sessions.put(e)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    e.id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	logger.Info("login succeeded")

	s.startFetch(e)
	redirect(w, r, "/form")
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(r)
	if !ok {
		redirect(w, r, "/")
		return
	}
	e.mu.Lock()
	page := s.pageFor(e)
	e.mu.Unlock()
	s.render(w, r, http.StatusOK, page)
}

// postResult is what a form post resolved to: a redirect or a page to show.
type postResult struct {
	redirect string
	status   int
	page     render.Page
	err      string
}

func (s *Server) handleFormPost(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(r)
	if !ok {
		redirect(w, r, "/")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	result := s.applyPost(r, e)
	switch {
	case result.err != "":
		http.Error(w, result.err, result.status)
	case result.redirect != "":
		redirect(w, r, result.redirect)
	default:
		s.render(w, r, result.status, result.page)
	}
}

func (s *Server) applyPost(r *http.Request, e *entry) postResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	if r.PostForm.Get(SessionField) != e.token {
		return postResult{status: http.StatusForbidden, err: "invalid session token"}
	}
	if e.sess.State() != session.StateReady {
		return postResult{redirect: "/form"}
	}

	schema, _ := e.sess.Schema()
	if posted := r.PostForm.Get(VersionField); posted != "" && posted != schema.Version {
		page := s.pageFor(e)
		page.FormErrors = render.MergeFormErrors(page.FormErrors, StaleVersionMessage)
		return postResult{status: http.StatusConflict, page: page}
	}

	section, err := e.sess.CurrentSection()
	if err != nil {
		return postResult{status: http.StatusInternalServerError, err: "form unavailable"}
	}
	if err := render.ApplyForm(e.sess, section, r.PostForm); err != nil {
		return postResult{status: http.StatusBadRequest, err: err.Error()}
	}

	switch r.PostForm.Get(render.ActionField) {
	case actionPrev:
		if _, err := e.sess.Prev(); err != nil {
			return postResult{status: http.StatusInternalServerError, err: "form unavailable"}
		}
		return postResult{redirect: "/form"}
	case actionNext:
		moved, err := e.sess.Next()
		if err != nil {
			return postResult{status: http.StatusInternalServerError, err: "form unavailable"}
		}
		if !moved {
			return postResult{status: http.StatusUnprocessableEntity, page: s.pageFor(e)}
		}
		return postResult{redirect: "/form"}
	case actionSubmit:
		return s.submit(r, e)
	default:
		return postResult{status: http.StatusBadRequest, err: "unknown action"}
	}
}

func (s *Server) submit(r *http.Request, e *entry) postResult {
	done, err := e.sess.Submit(r.Context())
	switch {
	case errors.Is(err, navigator.ErrNotLastSection):
		return postResult{status: http.StatusBadRequest, err: "submit is only available on the last section"}
	case err != nil:
		var remote session.FieldMessages
		status := http.StatusBadGateway
		if errors.As(err, &remote) {
			status = http.StatusUnprocessableEntity
		}
		s.logger.Warn("submission failed", zap.String("identifier", e.sess.Identity().Identifier), zap.Error(err))
		page := s.pageFor(e)
		page.FormErrors = render.MergeFormErrors([]string{SubmitFailedMessage}, page.FormErrors...)
		return postResult{status: status, page: page}
	case !done:
		return postResult{status: http.StatusUnprocessableEntity, page: s.pageFor(e)}
	default:
		return postResult{redirect: "/form"}
	}
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(r)
	if !ok {
		redirect(w, r, "/")
		return
	}
	if err := r.ParseForm(); err != nil || r.PostForm.Get(SessionField) != e.token {
		http.Error(w, "invalid session token", http.StatusForbidden)
		return
	}
	s.startFetch(e)
	redirect(w, r, "/form")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if e, ok := s.lookup(r); ok {
		if err := r.ParseForm(); err != nil || r.PostForm.Get(SessionField) != e.token {
			http.Error(w, "invalid session token", http.StatusForbidden)
			return
		}
		s.sessions.remove(e.id)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	redirect(w, r, "/")
}

func (s *Server) lookup(r *http.Request) (*entry, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	return s.sessions.get(cookie.Value)
}

// pageFor snapshots the session with the hidden fields a post must echo.
// Callers hold e.mu.
func (s *Server) pageFor(e *entry) render.Page {
	page := e.sess.Page()
	hidden := append(page.Hidden, render.SessionToken(SessionField, e.token))
	if page.Version != "" {
		hidden = append(hidden, render.VersionField(VersionField, page.Version))
	}
	page.Hidden = render.SortedHiddenFields(render.MergeHiddenFields(nil, hidden...))
	if page.Kind == render.PageLoading && !e.fetching && e.sess.Err() != nil {
		// Legacy loading keeps the session in loading after a failed fetch.
		page.Kind = render.PageFailed
		page.Message = session.FailedMessage
	}
	return page
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page render.Page) {
	body, err := s.renderer.Render(r.Context(), page)
	if err != nil {
		s.logger.Error("render page", zap.String("kind", string(page.Kind)), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", s.renderer.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}
