// Package memory holds map-backed repositories for tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/satyalens/domain"
	"github.com/fastygo/satyalens/repository"
)

// Store implements every repository interface over in-process maps.
// Fail* fields inject errors for the matching operation.
type Store struct {
	mu       sync.Mutex
	users    map[string]domain.User
	roles    map[string]map[string]bool
	scans    []domain.ScanRecord
	settings map[string]string
	devices  map[string]bool

	FailScanCreate     error
	FailScanCount      error
	FailSettingsRead   error
	FailSettingsUpsert error
	FailUsage          error
	FailRoles          error
}

func New() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		roles:    make(map[string]map[string]bool),
		settings: make(map[string]string),
		devices:  make(map[string]bool),
	}
}

func (s *Store) Users() repository.UserRepository       { return userRepo{s} }
func (s *Store) Scans() repository.ScanRepository       { return scanRepo{s} }
func (s *Store) Settings() repository.SettingRepository { return settingRepo{s} }
func (s *Store) Usage() repository.UsageRepository      { return usageRepo{s} }

// ScanRecords returns a copy of every stored scan.
func (s *Store) ScanRecords() []domain.ScanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ScanRecord(nil), s.scans...)
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r userRepo) Upsert(_ context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return domain.ErrInvalidPayload
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	existing, ok := r.s.users[user.ID]
	if ok {
		user.CreatedAt = existing.CreatedAt
		if user.Email == "" {
			user.Email = existing.Email
		}
	} else if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) Count(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.users), nil
}

func (r userRepo) HasRole(_ context.Context, userID, role string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailRoles != nil {
		return false, r.s.FailRoles
	}
	return r.s.roles[userID][role], nil
}

func (r userRepo) GrantRole(_ context.Context, userID, role string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.roles[userID] == nil {
		r.s.roles[userID] = make(map[string]bool)
	}
	r.s.roles[userID][role] = true
	return nil
}

func (r userRepo) RevokeRole(_ context.Context, userID, role string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.s.roles[userID][role] {
		return domain.ErrUserNotFound
	}
	delete(r.s.roles[userID], role)
	return nil
}

type scanRepo struct{ s *Store }

func (r scanRepo) Create(_ context.Context, scan *domain.ScanRecord) error {
	if scan == nil || scan.UserID == "" {
		return domain.ErrInvalidPayload
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailScanCreate != nil {
		return r.s.FailScanCreate
	}
	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}
	for _, existing := range r.s.scans {
		if existing.ID == scan.ID {
			return nil
		}
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now()
	}
	r.s.scans = append(r.s.scans, *scan)
	return nil
}

func (r scanRepo) CountByUserSince(_ context.Context, userID string, since time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailScanCount != nil {
		return 0, r.s.FailScanCount
	}
	count := 0
	for _, scan := range r.s.scans {
		if scan.UserID == userID && !scan.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r scanRepo) Count(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.scans), nil
}

func (r scanRepo) CountActiveUsersSince(_ context.Context, since time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	active := make(map[string]struct{})
	for _, scan := range r.s.scans {
		if !scan.CreatedAt.Before(since) {
			active[scan.UserID] = struct{}{}
		}
	}
	return len(active), nil
}

func (r scanRepo) TopUsers(_ context.Context, limit int) ([]domain.UserScanCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := make(map[string]int)
	for _, scan := range r.s.scans {
		counts[scan.UserID]++
	}
	top := make([]domain.UserScanCount, 0, len(counts))
	for userID, n := range counts {
		top = append(top, domain.UserScanCount{Email: r.s.users[userID].Email, ScanCount: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].ScanCount == top[j].ScanCount {
			return top[i].Email < top[j].Email
		}
		return top[i].ScanCount > top[j].ScanCount
	})
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

type settingRepo struct{ s *Store }

func (r settingRepo) List(_ context.Context) ([]domain.Setting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailSettingsRead != nil {
		return nil, r.s.FailSettingsRead
	}
	out := make([]domain.Setting, 0, len(r.s.settings))
	for k, v := range r.s.settings {
		out = append(out, domain.Setting{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r settingRepo) Get(_ context.Context, key string) (*domain.Setting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailSettingsRead != nil {
		return nil, r.s.FailSettingsRead
	}
	v, ok := r.s.settings[key]
	if !ok {
		return nil, domain.ErrSettingNotFound
	}
	return &domain.Setting{Key: key, Value: v}, nil
}

func (r settingRepo) Upsert(_ context.Context, setting domain.Setting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailSettingsUpsert != nil {
		return r.s.FailSettingsUpsert
	}
	r.s.settings[setting.Key] = setting.Value
	return nil
}

type usageRepo struct{ s *Store }

func (r usageRepo) IsUsed(_ context.Context, deviceID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailUsage != nil {
		return false, r.s.FailUsage
	}
	return r.s.devices[deviceID], nil
}

func (r usageRepo) MarkUsed(_ context.Context, deviceID string) error {
	if deviceID == "" {
		return domain.ErrInvalidPayload
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailUsage != nil {
		return r.s.FailUsage
	}
	r.s.devices[deviceID] = true
	return nil
}

func (r usageRepo) Reset(_ context.Context, deviceID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.devices, deviceID)
	return nil
}
