package server

import (
	"context"
	"net/http"

	"github.com/dshills/tasklisthub/internal/session"
	log "github.com/sirupsen/logrus"
)

// newWebsocketHandler upgrades the request and spawns a Session to drive
// it, without awaiting completion — the HTTP handler returns as soon as
// the upgrade succeeds, mirroring ws_task_updates's handle-then-spawn
// pattern.
func newWebsocketHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// A response has already been written to the client by upgrader.
			log.WithError(err).WithField("remote", r.RemoteAddr).Warn("failed to upgrade task-updates request")
			return
		}

		// net/http cancels r.Context() the instant ServeHTTP returns, even
		// after a hijack, so the session must run detached from the
		// request's context — only a server-lifetime context may govern
		// how long it stays open.
		sess := session.New(conn, deps.Auth, deps.Registry, deps.Emitter, session.WithRecorder(deps.Recorder))
		go sess.Run(context.Background())
	}
}
