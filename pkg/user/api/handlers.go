package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Theadekanmi/softspace/pkg/common"
	"github.com/Theadekanmi/softspace/pkg/logger"
	"github.com/Theadekanmi/softspace/pkg/user"
)

type (
	UserRepo interface {
		UserExists(string) bool
		GetByEmailAndPass(string, string) (*user.User, error)
		Add(*user.User) (string, error)
	}

	SessionManager interface {
		CreateToken(*user.User) (string, error)
		CleanupUserSessions(userId string) error
		SessionIdFromToken(authHeader string) (string, string, error)
		DropSession(userId, sessionId string) error
	}

	UserHandler struct {
		Repo           UserRepo
		SessionManager SessionManager
	}

	HttpUser struct {
		Email           string `json:"email"`
		FullName        string `json:"fullName"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
)

func NewUserHandler(r UserRepo, sm SessionManager) *UserHandler {
	return &UserHandler{
		Repo:           r,
		SessionManager: sm,
	}
}

func (uh UserHandler) LogIn(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	httpUser := new(HttpUser)
	err := common.ParseReqBody(r.Body, httpUser)
	if err != nil {
		logger.Log(r.Context()).Errorf("can't parse request body as user: %v", err)
		common.WriteMsg(w, "bad request format", http.StatusBadRequest)
		return
	}

	u, err := uh.Repo.GetByEmailAndPass(httpUser.Email, httpUser.Password)
	if err != nil {
		logger.Log(r.Context()).Errorf("can't get the user by email `%s` and password: %v",
			httpUser.Email, err)
		common.WriteMsg(w, "user not found", http.StatusNotFound)
		return
	}

	// Remove expired user sessions if there are any
	if err := uh.SessionManager.CleanupUserSessions(u.Id); err != nil {
		logger.Log(r.Context()).Errorf("user/handlers: can't cleanup sessions for user `%s`, %v", httpUser.Email, err)
		common.WriteMsg(w, "failed managing user sessions", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	uh.sendToken(w, u)
}

func (uh UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	httpUser := new(HttpUser)
	err := common.ParseReqBody(r.Body, httpUser)
	if err != nil {
		logger.Log(r.Context()).Errorf("can't parse request body as user: %v", err)
		common.WriteMsg(w, "bad request format", http.StatusBadRequest)
		return
	}

	if httpUser.Password != httpUser.ConfirmPassword {
		common.WriteMsg(w, "passwords do not match", http.StatusBadRequest)
		return
	}
	if len(httpUser.Password) < 6 {
		common.WriteMsg(w, "password must be at least 6 characters", http.StatusBadRequest)
		return
	}

	if uh.Repo.UserExists(httpUser.Email) {
		msg := fmt.Sprintf(`user "%s" already exists`, httpUser.Email)
		logger.Log(r.Context()).Error(msg)
		common.WriteMsg(w, msg, http.StatusConflict)
		return
	}

	salt := common.RandStringRunes(8)
	pass := common.HashPass(httpUser.Password, salt)
	u := &user.User{
		Email:    httpUser.Email,
		FullName: httpUser.FullName,
		Password: pass,
		// Id is handled below
	}
	id, err := uh.Repo.Add(u)
	if err != nil {
		common.WriteMsg(w, "can't add user", http.StatusInternalServerError)
		return
	}
	u.Id = id

	w.WriteHeader(http.StatusCreated)
	uh.sendToken(w, u)
}

// SignOut drops the Redis-backed session named by the token, after
// which the token stops resolving to a viewer.
func (uh UserHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	userId, sessionId, err := uh.SessionManager.SessionIdFromToken(r.Header.Get("Authorization"))
	if err != nil {
		logger.Log(r.Context()).Errorf("can't read session from token: %v", err)
		common.WriteMsg(w, "not signed in", http.StatusUnauthorized)
		return
	}
	if err := uh.SessionManager.DropSession(userId, sessionId); err != nil {
		logger.Log(r.Context()).Errorf("can't drop session: %v", err)
		common.WriteMsg(w, "sign out failed", http.StatusInternalServerError)
		return
	}
	common.WriteMsg(w, "signed out", http.StatusOK)
}

func (uh *UserHandler) sendToken(w http.ResponseWriter, u *user.User) {
	token, err := uh.SessionManager.CreateToken(u)
	if err != nil {
		logger.Log(context.Background()).Errorf("can't create JWT token from user: %v", err)
		common.WriteMsg(w, "user authentication failed", http.StatusInternalServerError)
		return
	}

	tk := struct {
		Token string `json:"token"`
	}{token}
	common.WriteRespJSON(w, tk)
}
