package protocol

// Host -> poller payloads.

type Status struct {
	V           int    `json:"v" msgpack:"v"`
	Match       string `json:"match" msgpack:"match"`
	Players     int    `json:"players" msgpack:"players"`
	Projectiles uint64 `json:"projectiles" msgpack:"projectiles"` // last assigned seq
}

type Players struct {
	V       int            `json:"v" msgpack:"v"`
	Match   string         `json:"match" msgpack:"match"`
	Players []PlayerRecord `json:"players" msgpack:"players"`
}

// Projectiles is a page of the shot log: every entry with After < Seq <= Next.
type Projectiles struct {
	V           int                `json:"v" msgpack:"v"`
	Match       string             `json:"match" msgpack:"match"`
	After       uint64             `json:"after" msgpack:"after"`
	Next        uint64             `json:"next" msgpack:"next"`
	Projectiles []ProjectileRecord `json:"projectiles" msgpack:"projectiles"`
}

type Appended struct {
	Seq uint64 `json:"seq" msgpack:"seq"`
}

type Ack struct {
	OK bool `json:"ok" msgpack:"ok"`
}

type Error struct {
	Field   string `json:"field,omitempty" msgpack:"field,omitempty"`
	Message string `json:"message" msgpack:"message"`
}
