package manager

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/cuemby/livepaste/pkg/log"
	"github.com/cuemby/livepaste/pkg/metrics"
	"github.com/cuemby/livepaste/pkg/storage"
	"github.com/cuemby/livepaste/pkg/types"
)

const roomIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
const roomIDLength = 8

// GenerateRoomID produces a fresh 8-character case-sensitive alphanumeric
// room ID (the 62^8 space described in §3). Used only by the "/" ->
// "/room/{id}" redirect; every other entry point takes a room ID that
// was already minted this way by a client.
func GenerateRoomID() (string, error) {
	b := make([]byte, roomIDLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate room id: %w", err)
	}
	for i := range b {
		b[i] = roomIDAlphabet[int(b[i])%len(roomIDAlphabet)]
	}
	return string(b), nil
}

// RoomInfo is the public-facing projection of a room: presence plus
// whether a password is required. It never reveals anything else about
// a room that doesn't have one (§6, §7: "non-password 401s never leak
// whether the room exists beyond the public info endpoint").
type RoomInfo struct {
	ID          string `json:"id"`
	HasPassword bool   `json:"has_password"`
}

// EnsureRoom lazily creates the room row on first reference.
func (m *Manager) EnsureRoom(roomID string) (*types.Room, error) {
	room, _, err := m.store.EnsureRoom(roomID)
	return room, err
}

// Info returns the public room-presence projection.
func (m *Manager) Info(roomID string) (RoomInfo, error) {
	room, err := m.store.GetRoom(roomID)
	if err == storage.ErrNotFound {
		return RoomInfo{ID: roomID, HasPassword: false}, nil
	}
	if err != nil {
		return RoomInfo{}, err
	}
	return RoomInfo{ID: room.ID, HasPassword: room.HasPassword()}, nil
}

// GetRoom returns the full room row, or storage.ErrNotFound.
func (m *Manager) GetRoom(roomID string) (*types.Room, error) {
	return m.store.GetRoom(roomID)
}

// SetPassword stores the slow-hash of a new password (or clears it when
// passwordHash is empty).
func (m *Manager) SetPassword(roomID, passwordHash string) error {
	if _, _, err := m.store.EnsureRoom(roomID); err != nil {
		return err
	}
	return m.store.SetRoomPassword(roomID, passwordHash)
}

// DeleteRoom is the kill switch: cascades to every file, operation,
// tombstone and changeset.
func (m *Manager) DeleteRoom(roomID string) error {
	if err := m.store.DeleteRoom(roomID); err != nil {
		return err
	}
	log.WithRoomID(roomID).Info().Msg("room deleted")
	return nil
}

// sweepRetention deletes rooms whose updated_at has aged past
// RetentionHours and prunes tombstones older than the configured horizon
// on every surviving room (§4.2).
func (m *Manager) sweepRetention() error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RetentionSweepDuration)
	defer metrics.RetentionSweepCyclesTotal.Inc()

	logger := log.WithComponent("retention-sweep")

	cutoff := time.Now().Add(-time.Duration(m.retentionHours) * time.Hour)
	stale, err := m.store.ListRoomsOlderThan(cutoff)
	if err != nil {
		return fmt.Errorf("list stale rooms: %w", err)
	}
	for _, roomID := range stale {
		if err := m.store.DeleteRoom(roomID); err != nil {
			logger.Error().Err(err).Str("room_id", roomID).Msg("failed to delete stale room")
			continue
		}
		metrics.RoomsReapedTotal.Inc()
		logger.Info().Str("room_id", roomID).Msg("reaped stale room")
	}

	allRooms, err := m.store.ListAllRoomIDs()
	if err != nil {
		return fmt.Errorf("list rooms for tombstone pruning: %w", err)
	}
	for _, roomID := range allRooms {
		room, err := m.store.GetRoom(roomID)
		if err != nil {
			continue
		}
		keepAbove := room.Version - m.tombstoneHorizon
		pruned, err := m.store.PruneTombstones(roomID, keepAbove)
		if err != nil {
			logger.Error().Err(err).Str("room_id", roomID).Msg("failed to prune tombstones")
			continue
		}
		if pruned > 0 {
			metrics.TombstonesPrunedTotal.Add(float64(pruned))
		}
	}

	return nil
}
