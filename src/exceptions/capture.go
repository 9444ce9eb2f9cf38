package exceptions

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/auth"
	"tradingjournal/src/model"
)

const (
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

type Recorder interface {
	Create(ctx context.Context, exc *model.Exception) error
}

// Capture records a system exception, logs it locally, and optionally
// persists it in the database. Request id and user are taken from ctx.
func Capture(
	ctx context.Context,
	repo Recorder,
	service string,
	module string,
	method string,
	level string,
	err error,
	contextData map[string]interface{},
) {

	if err == nil {
		return
	}

	var ctxJSON string
	if contextData != nil {
		if b, e := json.Marshal(contextData); e == nil {
			ctxJSON = string(b)
		}
	}

	exc := &model.Exception{
		Service:   service,
		Module:    module,
		Method:    method,
		Message:   err.Error(),
		Stack:     string(debug.Stack()),
		Level:     level,
		RequestID: auth.RequestID(ctx),
		Context:   ctxJSON,
		CreatedAt: time.Now(),
	}
	if user, ok := auth.GetUserFromContext(ctx); ok && user != nil {
		id := user.ID
		exc.UserID = &id
	}

	entry := logger.WithFields(map[string]interface{}{
		"service":    service,
		"module":     module,
		"method":     method,
		"level":      level,
		"request_id": exc.RequestID,
	}).WithError(err)
	if level == LevelWarn {
		entry.Warn("System exception captured")
	} else {
		entry.Error("System exception captured")
	}

	if repo != nil {
		// the request context may already be cancelled
		persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if e := repo.Create(persistCtx, exc); e != nil {
			logger.WithError(e).Error("Failed to persist exception")
		}
	}
}
