package thread

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"threaddb/pkg/logger"
	"threaddb/pkg/models"
	"threaddb/pkg/store"
	"threaddb/pkg/telemetry"
	"threaddb/pkg/utils"
)

// ErrNotFriends rejects ordinary outbound payloads while the handshake is
// incomplete. Handshake-control payloads are exempt.
var ErrNotFriends = errors.New("handshake incomplete: only control payloads may be sent")

// advanceCache moves the preview cache forward when the candidate carries a
// strictly greater ordering key. Equal or older keys leave the cache alone,
// so replayed and out-of-order deliveries cannot regress the preview.
func advanceCache(t *models.Thread, in *models.Interaction) bool {
	if t.LastInteractionSort != "" && in.SortKey() <= t.LastInteractionSort {
		return false
	}
	t.LastInteractionID = in.ID
	t.LastInteractionSort = in.SortKey()
	t.LastMessageText = in.Body
	return true
}

// appendAndCache stamps missing interaction fields, appends the record to the
// thread's keyspace and advances the in-memory preview cache. The caller
// persists the thread afterwards so both land in the same transaction.
func appendAndCache(tx *store.Tx, t *models.Thread, in *models.Interaction, now time.Time) error {
	in.Thread = t.ID
	if in.ID == "" {
		in.ID = utils.GenInteractionID()
	}
	if in.TS == 0 {
		in.TS = now.UTC().UnixNano()
	}
	if err := store.AppendInteraction(tx, in); err != nil {
		return err
	}
	advanceCache(t, in)
	d := in.Direction
	tx.OnCommit(func() { telemetry.InteractionRecorded(d) })
	return nil
}

// RecordIncoming appends a received interaction, advances the preview cache
// and makes the thread visible, all in the caller's transaction.
func RecordIncoming(tx *store.Tx, t *models.Thread, in *models.Interaction) error {
	saved := *t
	in.Direction = models.DirectionIncoming
	if err := appendAndCache(tx, t, in, time.Now()); err != nil {
		*t = saved
		return err
	}
	t.Visible = true
	if err := store.SaveThread(tx, t); err != nil {
		*t = saved
		return err
	}
	return nil
}

// RecordOutgoing appends a sent interaction. Ordinary payloads require a
// completed handshake; control payloads pass in every state so the handshake
// itself can flow.
func RecordOutgoing(tx *store.Tx, t *models.Thread, in *models.Interaction) error {
	if !in.Control && !t.AllowsOrdinaryMessages() {
		logger.Log.Warn("outgoing_message_blocked",
			zap.String("thread", t.ID),
			zap.String("state", string(t.FriendRequest)))
		return ErrNotFriends
	}
	saved := *t
	in.Direction = models.DirectionOutgoing
	if err := appendAndCache(tx, t, in, time.Now()); err != nil {
		*t = saved
		return err
	}
	t.Visible = true
	if err := store.SaveThread(tx, t); err != nil {
		*t = saved
		return err
	}
	return nil
}

// UpdateWithLastMessage applies the monotonic cache rule for an interaction
// recorded elsewhere: the cache advances only for strictly newer ordering
// keys. Reports whether the cache moved; older or replayed candidates are
// no-ops.
func UpdateWithLastMessage(tx *store.Tx, t *models.Thread, in *models.Interaction) (bool, error) {
	saved := *t
	if !advanceCache(t, in) {
		return false, nil
	}
	if err := store.SaveThread(tx, t); err != nil {
		*t = saved
		return false, err
	}
	return true, nil
}

// LastMessageText returns the preview text for the conversation list: the
// cached text when the cache is primed, otherwise the newest stored
// interaction's body. Threads with no interactions yield "".
func LastMessageText(r store.Reader, t *models.Thread) (string, error) {
	if t.LastInteractionID != "" {
		return t.LastMessageText, nil
	}
	last, err := store.LastInteraction(r, t.ID)
	if err != nil {
		return "", err
	}
	if last == nil {
		return "", nil
	}
	return last.Body, nil
}

// LastInteractionForInbox returns the newest non-control interaction, the one
// inbox rows should surface. Nil when the thread has only handshake traffic.
func LastInteractionForInbox(r store.Reader, t *models.Thread) (*models.Interaction, error) {
	return store.LastInteractionForInbox(r, t.ID)
}

// UnreadCount asks the interaction store for the authoritative number of
// unread incoming interactions. The count is never cached on the record: it
// changes independently of last-message updates.
func UnreadCount(r store.Reader, t *models.Thread) (int, error) {
	return store.UnreadCount(r, t.ID)
}

// MarkAllAsRead flips every unread incoming interaction and returns how many
// changed. The record itself keeps no has-unread flag.
func MarkAllAsRead(tx *store.Tx, t *models.Thread) (int, error) {
	n, err := store.MarkAllRead(tx, t.ID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Log.Debug("thread_marked_read", zap.String("thread", t.ID), zap.Int("count", n))
	}
	return n, nil
}

// CountInteractions returns the total number of interactions in the thread.
func CountInteractions(r store.Reader, t *models.Thread) (int, error) {
	return store.CountInteractions(r, t.ID)
}

// ReceivedMessagesForInvalidKey lists interactions whose payload failed to
// decrypt with the given identity key, oldest first.
func ReceivedMessagesForInvalidKey(r store.Reader, t *models.Thread, keyHex string) ([]models.Interaction, error) {
	return store.InteractionsForInvalidKey(r, t.ID, keyHex)
}
