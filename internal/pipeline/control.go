package pipeline

import (
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	"doula/internal/ipc"
)

var ErrBusy = errors.New("assistant is busy")

// Control serves the daemon's control socket commands.
func Control(a *Assistant) ipc.Handler {
	return func(msg ipc.ControlMessage) (any, error) {
		switch msg.Cmd {
		case "trigger":
			if a.Tracker().Active() || !a.Trigger() {
				return nil, ErrBusy
			}
			return nil, nil
		case "reset":
			return map[string]bool{"cancelled": a.Reset()}, nil
		case "status":
			return a.Tracker().Snapshot(), nil
		case "history":
			return a.Tracker().History(), nil
		case "ask":
			text := strings.TrimSpace(strings.Join(msg.Args, " "))
			if text == "" {
				return nil, errors.New("ask needs a question")
			}
			if a.Tracker().Active() || !a.Submit(text) {
				return nil, ErrBusy
			}
			return nil, nil
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
			return nil, fmt.Errorf("unknown command %q", msg.Cmd)
		}
	}
}
