package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/isdelr/goodcontent-auth/internal/apperr"
	"github.com/isdelr/goodcontent-auth/internal/auth"
	"github.com/isdelr/goodcontent-auth/internal/models"
	"github.com/isdelr/goodcontent-auth/internal/services"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = map[string]*template.Template{
	"home":   template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/home.html")),
	"signup": template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/signup.html")),
}

// SignupHandler serves the landing page and the signup form.
type SignupHandler struct {
	service *services.AuthService
	secure  bool
}

// NewSignupHandler creates a new SignupHandler. secure marks session
// cookies Secure.
func NewSignupHandler(service *services.AuthService, secure bool) *SignupHandler {
	return &SignupHandler{service: service, secure: secure}
}

type signupForm struct {
	FirstName  string
	LastName   string
	Email      string
	InviteCode string
}

type signupPage struct {
	Form  signupForm
	Error string
}

type homePage struct {
	User *models.User
}

// Home greets the signed-in user or points to the signup form.
func (h *SignupHandler) Home(w http.ResponseWriter, r *http.Request) {
	var page homePage
	if c, err := r.Cookie(auth.SessionCookieName); err == nil {
		user, err := h.service.CurrentUser(r.Context(), c.Value)
		if err != nil {
			log.Debug().Err(err).Msg("Ignoring unusable session cookie")
		}
		page.User = user
	}
	render(w, "home", http.StatusOK, page)
}

// Form renders an empty signup form.
func (h *SignupHandler) Form(w http.ResponseWriter, r *http.Request) {
	render(w, "signup", http.StatusOK, signupPage{})
}

// Submit runs the signup flow for a posted form. On success the session
// cookie is set and the browser is sent to the landing page.
func (h *SignupHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		render(w, "signup", http.StatusBadRequest, signupPage{Error: apperr.FriendlyMessage(apperr.CodeValidationFailed, "")})
		return
	}
	form := signupForm{
		FirstName:  r.PostForm.Get("first_name"),
		LastName:   r.PostForm.Get("last_name"),
		Email:      r.PostForm.Get("email"),
		InviteCode: r.PostForm.Get("invite_code"),
	}

	session, err := h.service.Signup(r.Context(), services.SignupInput{
		Email:      form.Email,
		Password:   r.PostForm.Get("password"),
		FirstName:  form.FirstName,
		LastName:   form.LastName,
		InviteCode: form.InviteCode,
	})
	if err != nil {
		code := apperr.CodeOf(err)
		page := signupPage{Form: form, Error: apperr.FriendlyMessage(code, apperr.FieldOf(err))}
		render(w, "signup", statusFor(code), page)
		return
	}

	w.Header().Add("Set-Cookie", auth.SessionCookie(session.Token, h.secure))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeValidationFailed:
		return http.StatusBadRequest
	case apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodeAuthenticationMissing, apperr.CodeAuthenticationInvalid:
		return http.StatusUnauthorized
	case apperr.CodeAuthorizationDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func render(w http.ResponseWriter, name string, status int, data interface{}) {
	var buf bytes.Buffer
	if err := pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
