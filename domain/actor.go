package domain

// ActorKind distinguishes device-only visitors from identity-provider users.
type ActorKind string

const (
	ActorAnonymous  ActorKind = "anonymous"
	ActorIdentified ActorKind = "identified"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Actor is the party making the current request. It is resolved once per request
// and passed explicitly to every use case.
type Actor struct {
	Kind     ActorKind `json:"kind"`
	ID       string    `json:"id,omitempty"`
	Email    string    `json:"email,omitempty"`
	Role     string    `json:"role,omitempty"`
	DeviceID string    `json:"device_id,omitempty"`

	// Token is the raw bearer credential, forwarded to the scoring oracle.
	Token string `json:"-"`
}

// Anonymous builds a device-scoped actor.
func Anonymous(deviceID string) Actor {
	return Actor{Kind: ActorAnonymous, DeviceID: deviceID}
}

// Identified builds an actor backed by a verified identity token.
func Identified(id, email, role, token string) Actor {
	if role == "" {
		role = RoleUser
	}
	return Actor{Kind: ActorIdentified, ID: id, Email: email, Role: role, Token: token}
}

func (a Actor) IsIdentified() bool {
	return a.Kind == ActorIdentified && a.ID != ""
}
