package buffer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/satyalens/domain"
)

// EntityScan marks a scan record waiting to be written to Postgres.
const EntityScan = "scan"

const defaultPriority = 3

// Item is one buffered write. Keys sort by priority, then by enqueue time.
type Item struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Entity    string          `json:"entity"`
	Data      json.RawMessage `json:"data"`
	Priority  int             `json:"priority"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

// ScanPayload carries the profile alongside the scan so the foreign key can be satisfied on replay.
type ScanPayload struct {
	User domain.User       `json:"user"`
	Scan domain.ScanRecord `json:"scan"`
}

// NewScanItem packs a scan for buffering. The item ID reuses the scan ID so replays stay idempotent.
func NewScanItem(user *domain.User, scan *domain.ScanRecord) (Item, error) {
	if user == nil || scan == nil {
		return Item{}, domain.ErrInvalidPayload
	}
	data, err := json.Marshal(ScanPayload{User: *user, Scan: *scan})
	if err != nil {
		return Item{}, err
	}
	return Item{
		ID:     scan.ID,
		UserID: scan.UserID,
		Entity: EntityScan,
		Data:   data,
	}, nil
}

// Scan decodes a scan item.
func (i Item) Scan() (ScanPayload, error) {
	var payload ScanPayload
	if i.Entity != EntityScan {
		return payload, fmt.Errorf("buffer: item %s is %q, not a scan", i.ID, i.Entity)
	}
	if err := json.Unmarshal(i.Data, &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Priority <= 0 || i.Priority > 5 {
		i.Priority = defaultPriority
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
