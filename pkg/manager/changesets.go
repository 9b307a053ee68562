package manager

import (
	"time"

	"github.com/cuemby/livepaste/pkg/metrics"
	"github.com/cuemby/livepaste/pkg/types"
	"github.com/google/uuid"
)

// ChangeInput carries one proposed file replacement at changeset-create
// time.
type ChangeInput struct {
	PathHash            string
	FilePathEncrypted   string
	OldContentEncrypted string
	NewContentEncrypted string
	DiffEncrypted       string
}

// CreateChangeset writes the parent row plus one pending change per
// input file, all in one transaction (§4.8).
func (m *Manager) CreateChangeset(roomID, authorEncrypted, messageEncrypted string, changes []ChangeInput) (*types.Changeset, error) {
	cs := &types.Changeset{
		ID:               uuid.NewString(),
		RoomID:           roomID,
		AuthorEncrypted:  authorEncrypted,
		MessageEncrypted: messageEncrypted,
		Status:           types.ChangesetPending,
		CreatedAt:        time.Now(),
	}
	for _, in := range changes {
		cs.Changes = append(cs.Changes, &types.Change{
			ID:                  uuid.NewString(),
			ChangesetID:         cs.ID,
			PathHash:            in.PathHash,
			FilePathEncrypted:   in.FilePathEncrypted,
			OldContentEncrypted: in.OldContentEncrypted,
			NewContentEncrypted: in.NewContentEncrypted,
			DiffEncrypted:       in.DiffEncrypted,
			Status:              types.ChangePending,
		})
	}

	if err := m.store.CreateChangeset(cs); err != nil {
		return nil, err
	}
	metrics.ChangesetsCreatedTotal.Inc()
	return cs, nil
}

// AcceptChangeset upserts every still-pending child's target file and
// marks the changeset accepted. A changeset whose children already
// include a mix of accepted/rejected states from prior single-change
// actions is never promoted to accepted; the store falls back to
// partial in that case.
func (m *Manager) AcceptChangeset(roomID, changesetID string) (*types.Changeset, int64, error) {
	cs, version, err := m.store.AcceptChangeset(roomID, changesetID)
	if err == nil {
		metrics.ChangesetsResolvedTotal.WithLabelValues(string(cs.Status)).Inc()
	}
	return cs, version, err
}

// RejectChangeset marks every child rejected and the changeset rejected.
func (m *Manager) RejectChangeset(roomID, changesetID string) (*types.Changeset, error) {
	cs, err := m.store.RejectChangeset(roomID, changesetID)
	if err == nil {
		metrics.ChangesetsResolvedTotal.WithLabelValues(string(cs.Status)).Inc()
	}
	return cs, err
}

// AcceptChange accepts one change; if no pending siblings remain, the
// parent becomes partial (or stays accepted/rejected if a whole-changeset
// action already resolved it).
func (m *Manager) AcceptChange(roomID, changeID string) (*types.Changeset, int64, error) {
	cs, version, err := m.store.AcceptChange(roomID, changeID)
	if err == nil && cs.Status != types.ChangesetPending {
		metrics.ChangesetsResolvedTotal.WithLabelValues(string(cs.Status)).Inc()
	}
	return cs, version, err
}

// RejectChange rejects one change.
func (m *Manager) RejectChange(roomID, changeID string) (*types.Changeset, error) {
	cs, err := m.store.RejectChange(roomID, changeID)
	if err == nil && cs.Status != types.ChangesetPending {
		metrics.ChangesetsResolvedTotal.WithLabelValues(string(cs.Status)).Inc()
	}
	return cs, err
}
