package protocol

import (
	"encoding/json"
)

// Version is carried in every snapshot so pollers can refuse a host speaking another schema.
const Version = 1

// Websocket request types.
const (
	MsgStatus          = "status"
	MsgUpsertPlayer    = "upsert_player"
	MsgReadPlayers     = "read_players"
	MsgAddProjectile   = "add_projectile"
	MsgReadProjectiles = "read_projectiles"
)

// Websocket response types.
const (
	MsgAck         = "ack"
	MsgAppended    = "appended"
	MsgPlayers     = "players"
	MsgProjectiles = "projectiles"
	MsgError       = "error"
)

const (
	SimTickHz   = 60
	PollHz      = 10
	DefaultPort = 8000
)

// Defaults applied when optional trailing fields are omitted.
const (
	DefaultDamage = 30
	MaxNameLen    = 32
	MaxPower      = 100
	MaxRadius     = 100
)

type Envelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p"` // raw payload bytes
}
