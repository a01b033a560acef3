package back

import (
	"bytes"
	"fmt"
	"log"

	"hailstone/internal/rating"
)

type NotificationType int

const (
	NotificationTypeDuelResult NotificationType = iota
)

// A Notification is a ready-to-send announcement, whoever consumes the
// channel decides where it goes (the Discord announcer, in practice).
type Notification struct {
	Type NotificationType

	body bytes.Buffer
}

func (n *Notification) Printf(str string, args ...interface{}) (int, error) {
	return fmt.Fprintf(&n.body, str, args...)
}

func (n *Notification) String() string {
	return n.body.String()
}

// GetNotificationsChan returns the stream the announcer drains.
func (b *Back) GetNotificationsChan() <-chan Notification {
	return b.notifications
}

func (b *Back) sendDuelResultNotification(name string, score float64, updated rating.Rating) {
	notif := Notification{Type: NotificationTypeDuelResult}

	var verb string
	switch score {
	case rating.ScoreWin:
		verb = "won"
	case rating.ScoreDraw:
		verb = "drew"
	default:
		verb = "lost"
	}

	notif.Printf("**%s** %s a duel and is now rated %.0f ±%.0f.", name, verb, updated.Rating, updated.Deviation)

	select {
	case b.notifications <- notif:
	default:
		// The announcer is optional, never let it wedge a finalization.
		log.Printf("warning: dropping notification: %s", notif.String())
	}
}
