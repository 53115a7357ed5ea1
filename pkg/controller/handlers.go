package controller

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Theadekanmi/softspace/pkg/common"
	"github.com/Theadekanmi/softspace/pkg/feed"
	"github.com/Theadekanmi/softspace/pkg/logger"
	"github.com/Theadekanmi/softspace/pkg/render"
	"github.com/Theadekanmi/softspace/pkg/sessions"
)

// FeedHandler binds the controller's actions to HTTP.
type FeedHandler struct {
	Controller *Controller
}

func NewFeedHandler(c *Controller) *FeedHandler {
	return &FeedHandler{Controller: c}
}

type contentReq struct {
	Content string `json:"content"`
}

func (fh *FeedHandler) Feed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	common.WriteRespJSON(w, fh.Controller.Refresh(viewerFrom(r)))
}

func (fh *FeedHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	req := new(contentReq)
	if err := common.ParseReqBody(r.Body, req); err != nil {
		logger.Log(r.Context()).Errorf("can't parse post body: %v", err)
		common.WriteMsg(w, "can't parse post", http.StatusBadRequest)
		return
	}

	res, err := fh.Controller.CreatePost(r.Context(), viewerFrom(r), req.Content)
	if err != nil {
		fh.writeActionErr(w, r, "create post", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	common.WriteRespJSON(w, res)
}

func (fh *FeedHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	postId := mux.Vars(r)["post_id"]
	req := new(contentReq)
	if err := common.ParseReqBody(r.Body, req); err != nil {
		logger.Log(r.Context()).Errorf("can't parse comment body: %v", err)
		common.WriteMsg(w, "can't parse comment", http.StatusBadRequest)
		return
	}

	res, err := fh.Controller.AddComment(r.Context(), viewerFrom(r), postId, req.Content)
	if err != nil {
		fh.writeActionErr(w, r, "add comment", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	common.WriteRespJSON(w, res)
}

func (fh *FeedHandler) AddReply(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	vars := mux.Vars(r)
	req := new(contentReq)
	if err := common.ParseReqBody(r.Body, req); err != nil {
		logger.Log(r.Context()).Errorf("can't parse reply body: %v", err)
		common.WriteMsg(w, "can't parse reply", http.StatusBadRequest)
		return
	}

	res, err := fh.Controller.AddReply(r.Context(), viewerFrom(r), vars["post_id"], vars["comment_id"], req.Content)
	if err != nil {
		fh.writeActionErr(w, r, "add reply", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	common.WriteRespJSON(w, res)
}

func (fh *FeedHandler) Edit(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	vars := mux.Vars(r)
	kind, ok := parseKind(vars["kind"])
	if !ok {
		common.WriteMsg(w, "unknown entity kind", http.StatusBadRequest)
		return
	}
	req := new(contentReq)
	if err := common.ParseReqBody(r.Body, req); err != nil {
		logger.Log(r.Context()).Errorf("can't parse edit body: %v", err)
		common.WriteMsg(w, "can't parse edit", http.StatusBadRequest)
		return
	}

	res, err := fh.Controller.Edit(r.Context(), viewerFrom(r), kind, vars["id"], req.Content)
	if err != nil {
		fh.writeActionErr(w, r, "edit", err)
		return
	}
	common.WriteRespJSON(w, res)
}

// Delete requires an explicit confirm flag; the client shows the
// confirmation dialog and sets it.
func (fh *FeedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	vars := mux.Vars(r)
	kind, ok := parseKind(vars["kind"])
	if !ok {
		common.WriteMsg(w, "unknown entity kind", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		common.WriteMsg(w, "deletion requires confirmation", http.StatusBadRequest)
		return
	}

	res, err := fh.Controller.Delete(r.Context(), viewerFrom(r), kind, vars["id"])
	if err != nil {
		fh.writeActionErr(w, r, "delete", err)
		return
	}
	common.WriteRespJSON(w, res)
}

func (fh *FeedHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	vars := mux.Vars(r)
	kind, ok := parseKind(vars["kind"])
	if !ok {
		common.WriteMsg(w, "unknown entity kind", http.StatusBadRequest)
		return
	}

	res, err := fh.Controller.ToggleLike(r.Context(), viewerFrom(r), kind, vars["id"])
	if err != nil {
		fh.writeActionErr(w, r, "toggle like", err)
		return
	}
	common.WriteRespJSON(w, res)
}

func (fh *FeedHandler) BeginEdit(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	vars := mux.Vars(r)
	kind, ok := parseKind(vars["kind"])
	if !ok {
		common.WriteMsg(w, "unknown entity kind", http.StatusBadRequest)
		return
	}
	mode, err := fh.Controller.BeginEdit(viewerFrom(r), kind, vars["id"])
	if err != nil {
		fh.writeActionErr(w, r, "begin edit", err)
		return
	}
	common.WriteRespJSON(w, mode)
}

func (fh *FeedHandler) BeginReply(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	mode, err := fh.Controller.BeginReply(viewerFrom(r), mux.Vars(r)["comment_id"])
	if err != nil {
		fh.writeActionErr(w, r, "begin reply", err)
		return
	}
	common.WriteRespJSON(w, mode)
}

func (fh *FeedHandler) CancelMode(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fh.Controller.CancelMode(viewerFrom(r))
	common.WriteMsg(w, "mode cleared", http.StatusOK)
}

// ArticleThread serves the comment block embedded under an article
// page, creating the anchor post on first request.
func (fh *FeedHandler) ArticleThread(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	title := r.URL.Query().Get("title")
	thread, err := fh.Controller.ArticleThread(r.Context(), viewerFrom(r), title)
	if err != nil {
		fh.writeActionErr(w, r, "article thread", err)
		return
	}
	common.WriteRespJSON(w, thread)
}

func (fh *FeedHandler) writeActionErr(w http.ResponseWriter, r *http.Request, action string, err error) {
	logger.Log(r.Context()).Errorf("can't %s: %v", action, err)
	switch {
	case errors.Is(err, feed.ErrNotFound):
		common.WriteMsg(w, "not found", http.StatusNotFound)
	case errors.Is(err, feed.ErrEmptyContent):
		common.WriteMsg(w, "content must not be empty", http.StatusBadRequest)
	case errors.Is(err, feed.ErrUnauthenticated):
		common.WriteMsg(w, "please sign in first", http.StatusUnauthorized)
	case errors.Is(err, ErrDuplicate):
		common.WriteMsg(w, "action already in progress", http.StatusConflict)
	default:
		common.WriteMsg(w, action+" failed", http.StatusInternalServerError)
	}
}

func viewerFrom(r *http.Request) render.Viewer {
	u, err := sessions.GetAuthUser(r.Context())
	if err != nil {
		return render.Viewer{}
	}
	return render.Viewer{Id: u.Id, Name: u.DisplayName(), Authenticated: true}
}

func parseKind(s string) (feed.EntityKind, bool) {
	switch feed.EntityKind(s) {
	case feed.KindPost, feed.KindComment, feed.KindReply:
		return feed.EntityKind(s), true
	}
	return "", false
}
