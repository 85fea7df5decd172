// Package thread implements the conversation-record operations of the
// messenger core. Every mutating operation takes the caller's write
// transaction as its first argument: the caller owns the transaction scope,
// and a state change commits or rolls back together with the interaction
// side effects recorded through the same handle. The package takes no locks
// of its own.
package thread

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"threaddb/pkg/audit"
	"threaddb/pkg/logger"
	"threaddb/pkg/models"
	"threaddb/pkg/store"
	"threaddb/pkg/telemetry"
	"threaddb/pkg/utils"
)

// CreateContact creates and persists a contact thread. The conversation
// color derives from the contact identifier, so independent devices assign
// the same color without coordinating.
func CreateContact(tx *store.Tx, contactID, displayName string, now time.Time) (*models.Thread, error) {
	if contactID == "" {
		return nil, fmt.Errorf("contact identifier required")
	}
	t := &models.Thread{
		ID:            utils.GenThreadID(),
		Kind:          models.KindContact,
		Contact:       contactID,
		DisplayName:   displayName,
		CreatedTS:     now.UTC().UnixNano(),
		FriendRequest: models.FriendRequestNone,
		Color:         models.StableColorNameForNewConversation(contactID),
	}
	if err := store.SaveThread(tx, t); err != nil {
		return nil, err
	}
	logger.Log.Info("thread_created",
		zap.String("thread", t.ID),
		zap.String("kind", string(t.Kind)),
		zap.String("color", string(t.Color)))
	tx.OnCommit(func() { telemetry.ThreadCreated(models.KindContact) })
	return t, nil
}

// CreateGroup creates and persists a group thread, seeding the color from
// the group id.
func CreateGroup(tx *store.Tx, group models.GroupModel, now time.Time) (*models.Thread, error) {
	if group.GroupID == "" {
		return nil, fmt.Errorf("group id required")
	}
	g := group
	t := &models.Thread{
		ID:            utils.GenThreadID(),
		Kind:          models.KindGroup,
		Group:         &g,
		CreatedTS:     now.UTC().UnixNano(),
		FriendRequest: models.FriendRequestNone,
		Color:         models.StableColorNameForNewConversation(group.GroupID),
	}
	if err := store.SaveThread(tx, t); err != nil {
		return nil, err
	}
	logger.Log.Info("thread_created",
		zap.String("thread", t.ID),
		zap.String("kind", string(t.Kind)),
		zap.String("color", string(t.Color)))
	tx.OnCommit(func() { telemetry.ThreadCreated(models.KindGroup) })
	return t, nil
}

// FromInboundHandshake finds or creates the contact thread for a peer whose
// handshake request just arrived, then applies the inbound event and records
// the control interaction, all within the caller's transaction.
func FromInboundHandshake(tx *store.Tx, contactID string, handshake *models.Interaction, now time.Time) (*models.Thread, models.Transition, error) {
	t, err := store.FindContactThread(tx, contactID)
	if err != nil {
		return nil, models.Transition{}, err
	}
	if t == nil {
		t, err = CreateContact(tx, contactID, "", now)
		if err != nil {
			return nil, models.Transition{}, err
		}
	}
	tr, err := ReceiveRequest(tx, t, handshake)
	if err != nil {
		return nil, tr, err
	}
	return t, tr, nil
}

// Delete removes the thread and everything it owns: the interaction history,
// the disappearing-messages configuration and the meta record.
func Delete(tx *store.Tx, t *models.Thread) error {
	if err := store.RemoveAllInteractions(tx, t.ID); err != nil {
		return err
	}
	if err := store.DeleteDisappearingConfig(tx, t.ID); err != nil {
		return err
	}
	if err := store.DeleteThread(tx, t.ID); err != nil {
		return err
	}
	logger.Log.Info("thread_deleted", zap.String("thread", t.ID))
	id := t.ID
	tx.OnCommit(func() {
		telemetry.ThreadDeleted()
		audit.Deletion(id)
	})
	return nil
}

// RemoveAllInteractions clears the interaction history and resets the
// preview cache, keeping the record itself. The cache must not keep pointing
// at removed records, so this is the one path that moves it backwards.
func RemoveAllInteractions(tx *store.Tx, t *models.Thread) error {
	saved := *t
	if err := store.RemoveAllInteractions(tx, t.ID); err != nil {
		return err
	}
	t.LastInteractionID = ""
	t.LastInteractionSort = ""
	t.LastMessageText = ""
	if err := store.SaveThread(tx, t); err != nil {
		*t = saved
		return err
	}
	logger.Log.Info("thread_history_cleared", zap.String("thread", t.ID))
	return nil
}
