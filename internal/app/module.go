package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/gootp/internal/otp"
)

func (a *App) initModules() {
	dep := otp.Dependency{
		Ctx:        a.ctx,
		DBConn:     a.dbConn,
		Messaging:  a.messaging,
		Mail:       a.mail,
		Router:     a.router,
		Config:     a.config,
		Instrument: a.ins,
		UUID:       a.uuid,
		Clock:      a.clock,
		Goroutine:  a.goroutine,
		Validator:  a.validator,
	}
	if a.cacheConn != nil {
		dep.CacheConn = a.cacheConn
	}

	if err := otp.New(dep); err != nil {
		slog.Error("failed to init module otp", "error", err)
		os.Exit(1)
	}
}
