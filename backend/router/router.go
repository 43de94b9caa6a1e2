package router

import (
	"net/http"

	"flowgate/backend/app/controllers"
	"flowgate/backend/app/middleware"
)

func NewRouter(authCtrl *controllers.AuthController, remoteCtrl *controllers.RemoteController, mw *middleware.Auth) http.Handler {
	mux := http.NewServeMux()

	// public
	mux.HandleFunc("POST /login", authCtrl.Login)

	// dashboard + trusted callers; the capability check lives in the service
	mux.Handle("POST /api/remote/command", mw.WithCaller(http.HandlerFunc(remoteCtrl.Submit)))
	mux.Handle("GET /api/remote/history", mw.WithCaller(http.HandlerFunc(remoteCtrl.History)))
	mux.Handle("GET /api/remote/online", mw.WithCaller(http.HandlerFunc(remoteCtrl.Online)))

	// agent-only: pre-shared key, never operator sessions
	mux.Handle("GET /api/remote/pending", mw.RequireAgent(http.HandlerFunc(remoteCtrl.Claim)))
	mux.Handle("POST /api/remote/result", mw.RequireAgent(http.HandlerFunc(remoteCtrl.Result)))

	return mux
}
