package protocol

// Poller -> host payloads for the websocket transport. The HTTP transport carries the
// same fields as path segments.

type UpsertPlayer struct {
	Player PlayerRecord `json:"player"`
}

type AddProjectile struct {
	Projectile ProjectileRecord `json:"projectile"`
}

type ReadProjectiles struct {
	After uint64 `json:"after"`
}

// Empty is the payload of requests that carry no arguments.
type Empty struct{}
