package auth

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"mahlzeit/models"
	"mahlzeit/utils"
)

const minPasswordLen = 6

type Handlers struct {
	users  UserStore
	tokens *Tokens
}

func NewHandlers(users UserStore, tokens *Tokens) *Handlers {
	return &Handlers{users: users, tokens: tokens}
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

func normalizeEmail(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", false
	}
	return s, true
}

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func (h *Handlers) session(w http.ResponseWriter, code int, u *models.User) {
	token, exp, err := h.tokens.Issue(u)
	if err != nil {
		log.Error().Err(err).Msg("issue token")
		utils.RespondWithError(w, http.StatusInternalServerError, "Anmeldung fehlgeschlagen")
		return
	}
	utils.RespondWithJSON(w, code, sessionResponse{Token: token, ExpiresAt: exp, User: u})
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in credentials
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige Anfrage")
		return
	}
	email, ok := normalizeEmail(in.Email)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige E-Mail-Adresse")
		return
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLen {
		utils.RespondWithError(w, http.StatusBadRequest, "Das Passwort muss mindestens 6 Zeichen lang sein")
		return
	}
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Registrierung fehlgeschlagen")
		return
	}
	u := &models.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  name,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.users.Create(r.Context(), u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			utils.RespondWithError(w, http.StatusConflict, "Diese E-Mail-Adresse wird bereits verwendet")
			return
		}
		log.Error().Err(err).Msg("create user")
		utils.RespondWithError(w, http.StatusInternalServerError, "Registrierung fehlgeschlagen")
		return
	}
	log.Info().Str("userId", u.ID.Hex()).Msg("user registered")
	h.session(w, http.StatusCreated, u)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in credentials
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige Anfrage")
		return
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	u, err := h.users.ByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Error().Err(err).Msg("login lookup")
		}
		utils.RespondWithError(w, http.StatusUnauthorized, "E-Mail oder Passwort falsch")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "E-Mail oder Passwort falsch")
		return
	}
	h.session(w, http.StatusOK, u)
}

// Logout revokes the token Authenticate verified for this request.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	tokenID := utils.GetTokenIDFromContext(r.Context())
	if tokenID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Nicht angemeldet")
		return
	}
	if err := h.tokens.Revoke(r.Context(), tokenID); err != nil {
		log.Warn().Err(err).Str("userId", utils.GetUserIDFromRequest(r)).Msg("revoke token")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	u, err := h.users.ByID(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Benutzer nicht gefunden")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, u)
}

type accountUpdate struct {
	DisplayName     *string `json:"displayName"`
	Email           *string `json:"email"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     *string `json:"newPassword"`
}

// UpdateAccount changes display name, email or password. Email and password
// changes require the current password.
func (h *Handlers) UpdateAccount(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in accountUpdate
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige Anfrage")
		return
	}
	u, err := h.users.ByID(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Benutzer nicht gefunden")
		return
	}

	if in.Email != nil || in.NewPassword != nil {
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.CurrentPassword)) != nil {
			utils.RespondWithError(w, http.StatusForbidden, "Aktuelles Passwort ist falsch")
			return
		}
	}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" {
			utils.RespondWithError(w, http.StatusBadRequest, "Anzeigename darf nicht leer sein")
			return
		}
		u.DisplayName = name
	}
	if in.Email != nil {
		email, ok := normalizeEmail(*in.Email)
		if !ok {
			utils.RespondWithError(w, http.StatusBadRequest, "Ungültige E-Mail-Adresse")
			return
		}
		u.Email = email
	}
	if in.NewPassword != nil {
		if utf8.RuneCountInString(*in.NewPassword) < minPasswordLen {
			utils.RespondWithError(w, http.StatusBadRequest, "Das Passwort muss mindestens 6 Zeichen lang sein")
			return
		}
		hash, err := hashPassword(*in.NewPassword)
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Speichern fehlgeschlagen")
			return
		}
		u.PasswordHash = hash
	}

	if err := h.users.Update(r.Context(), u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			utils.RespondWithError(w, http.StatusConflict, "Diese E-Mail-Adresse wird bereits verwendet")
			return
		}
		log.Error().Err(err).Msg("update user")
		utils.RespondWithError(w, http.StatusInternalServerError, "Speichern fehlgeschlagen")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, u)
}
