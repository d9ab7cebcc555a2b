package domain

// Stats is the admin dashboard payload.
type Stats struct {
	TotalUsers      int             `json:"totalUsers"`
	TotalScans      int             `json:"totalScans"`
	ActiveUsersWeek int             `json:"activeUsersWeek"`
	TopUsers        []UserScanCount `json:"topUsers"`
	Settings        []Setting       `json:"settings"`
}
