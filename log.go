package concurmem

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	pkgLogger.Store(&loggerBox{l: zerolog.New(os.Stderr).With().Timestamp().Logger()})
}

type loggerBox struct{ l zerolog.Logger }

var pkgLogger atomic.Pointer[loggerBox]

// SetLogger overrides the package-level logger used for fatal-path
// messages. Only the fatal path logs; slow-start growth and coalescing
// are not logged. The default logs to stderr.
func SetLogger(l zerolog.Logger) {
	pkgLogger.Store(&loggerBox{l: l})
}

func logger() *zerolog.Logger {
	return &pkgLogger.Load().l
}
