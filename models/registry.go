package models

import "time"

type Registry struct {
	Address   Address   `json:"address" db:"address"`
	Owner     Address   `json:"owner" db:"owner"`
	Contests  []Address `json:"contests" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RegistryView is the read surface exposed to participants.
type RegistryView struct {
	Address        Address  `json:"address"`
	Owner          Address  `json:"owner"`
	NumContests    int      `json:"num_contests"`
	CurrentContest *Address `json:"current_contest,omitempty"`
}

type DeploymentKind string

const (
	DeploymentRegistry DeploymentKind = "registry"
	DeploymentContest  DeploymentKind = "contest"
)

// Deployment persists a deployed handle keyed by network name and, for
// contests, their index within the network's registry.
type Deployment struct {
	Network   string         `json:"network" db:"network"`
	Kind      DeploymentKind `json:"kind" db:"kind"`
	Index     int            `json:"index" db:"idx"`
	Address   Address        `json:"address" db:"address"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}
