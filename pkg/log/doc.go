/*
Package log wraps zerolog with the component-logger pattern used across
LivePaste: a package-level global Logger, configured once via Init, and
child loggers scoped to a component (WithComponent) or a room
(WithRoomID) for request and background-task logging.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	apiLog := log.WithComponent("api")
	apiLog.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request handled")

	log.WithRoomID(roomID).Info().Msg("room deleted")

# See Also

  - pkg/api's requestLog middleware for the per-request logger
  - pkg/manager's retention sweep for a background-task logger
*/
package log
