package manager

import "github.com/cuemby/livepaste/pkg/types"

// DefaultStateLimit and DefaultStateOffset are the pagination defaults
// for GET /state (§4.5).
const (
	DefaultStateLimit  = 1000
	DefaultStateOffset = 0
)

// StateQuery carries the since/limit/offset inputs of a delta-read.
type StateQuery struct {
	Since  int64
	Limit  int
	Offset int
}

// State is the response shape of the delta-read endpoint.
type State struct {
	Version           int64               `json:"version"`
	OpSeq             int64               `json:"op_seq"`
	Files             []*types.File       `json:"files"`
	DeletedPathHashes []string            `json:"deleted_path_hashes"`
	HasMore           bool                `json:"has_more"`
	Changesets        []*types.Changeset  `json:"changesets"`
}

// State answers GET /state?since=&limit=&offset=. A client holding
// (version=N, files=F) that applies the response by adding/replacing
// files by path_hash, removing any path_hash in DeletedPathHashes, and
// paging until HasMore is false, reaches a state equivalent to fetching
// at since=0 at the same server version (testable property 4), up to
// tombstones older than the pruning horizon.
func (m *Manager) State(roomID string, q StateQuery) (*State, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultStateLimit
	}

	room, err := m.store.GetRoom(roomID)
	if err != nil {
		return nil, err
	}

	files, hasMore, err := m.store.ListFilesSince(roomID, q.Since, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}

	var deletedHashes []string
	if q.Since > 0 {
		tombstones, err := m.store.ListTombstonesSince(roomID, q.Since)
		if err != nil {
			return nil, err
		}
		for _, t := range tombstones {
			deletedHashes = append(deletedHashes, t.PathHash)
		}
	}

	changesets, err := m.store.ListPendingChangesets(roomID)
	if err != nil {
		return nil, err
	}

	return &State{
		Version:           room.Version,
		OpSeq:             room.OpSeq,
		Files:             files,
		DeletedPathHashes: deletedHashes,
		HasMore:           hasMore,
		Changesets:        changesets,
	}, nil
}

// Version returns just the current room version, for GET /version.
func (m *Manager) Version(roomID string) (int64, error) {
	room, err := m.store.GetRoom(roomID)
	if err != nil {
		return 0, err
	}
	return room.Version, nil
}
