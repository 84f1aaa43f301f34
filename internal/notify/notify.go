package notify

import (
	"context"
	log "log/slog"
	"os"

	"github.com/gen2brain/beeep"
)

type Player interface {
	Play(ctx context.Context, path string) error
}

// Notifier gives the user an audible and visual cue when the assistant
// starts listening to a request.
type Notifier struct {
	player  Player
	chime   string
	desktop bool
	alert   func(title, message string) error
}

func New(player Player, chime string, desktop bool) *Notifier {
	return &Notifier{
		player:  player,
		chime:   chime,
		desktop: desktop,
		alert: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// Chime plays the cue sound if it is present. Failures are logged only; a
// missing chime never blocks the conversation.
func (n *Notifier) Chime(ctx context.Context) {
	if n.player == nil || n.chime == "" {
		return
	}
	if _, err := os.Stat(n.chime); err != nil {
		log.Debug("Chime not found", "path", n.chime)
		return
	}
	if err := n.player.Play(ctx, n.chime); err != nil {
		log.Warn("Failed to play chime", "err", err)
	}
}

func (n *Notifier) Desktop(title, message string) {
	if !n.desktop {
		return
	}
	if err := n.alert(title, message); err != nil {
		log.Debug("Desktop notification failed", "err", err)
	}
}
