package protocol

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformed is the cause of every record validation failure.
var ErrMalformed = errors.New("malformed record")

// FieldError names the field that was rejected.
type FieldError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	return "field " + e.Field + " (" + strconv.Quote(e.Value) + "): " + e.Reason
}

// Cause lets errors.Cause unwrap to ErrMalformed.
func (e *FieldError) Cause() error  { return ErrMalformed }
func (e *FieldError) Unwrap() error { return ErrMalformed }

// PlayerRecord is one entry of the player table: name -> (x, y, angle, power[, health]).
type PlayerRecord struct {
	Name   string   `json:"name" msgpack:"name"`
	X      float64  `json:"x" msgpack:"x"`
	Y      float64  `json:"y" msgpack:"y"`
	Angle  float64  `json:"angle" msgpack:"angle"`
	Power  float64  `json:"power" msgpack:"power"`
	Health *float64 `json:"health,omitempty" msgpack:"health,omitempty"`
}

// ProjectileRecord is one entry of the append-only shot log.
type ProjectileRecord struct {
	Seq    uint64  `json:"seq" msgpack:"seq"` // assigned by the host, starts at 1
	Owner  string  `json:"owner,omitempty" msgpack:"owner,omitempty"`
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Radius float64 `json:"radius" msgpack:"radius"`
	Angle  float64 `json:"angle" msgpack:"angle"`
	Power  float64 `json:"power" msgpack:"power"`
	Damage float64 `json:"damage" msgpack:"damage"`
}

var playerFields = []string{"x", "y", "angle", "power", "health"}
var projectileFields = []string{"x", "y", "radius", "angle", "power", "damage"}

// ParsePlayerSegments decodes path segments name/x/y/angle/power[/health].
// Nothing is returned unless every field parses.
func ParsePlayerSegments(name string, fields []string) (PlayerRecord, error) {
	if len(fields) < 4 || len(fields) > 5 {
		return PlayerRecord{}, &FieldError{Field: "fields", Value: strings.Join(fields, "/"), Reason: "want x/y/angle/power[/health]"}
	}
	var vals [5]float64
	for i, raw := range fields {
		v, err := parseNumber(playerFields[i], raw)
		if err != nil {
			return PlayerRecord{}, err
		}
		vals[i] = v
	}
	rec := PlayerRecord{Name: name, X: vals[0], Y: vals[1], Angle: vals[2], Power: vals[3]}
	if len(fields) == 5 {
		h := vals[4]
		rec.Health = &h
	}
	if err := rec.Validate(); err != nil {
		return PlayerRecord{}, err
	}
	return rec, nil
}

// ParseProjectileSegments decodes x/y/radius/angle/power[/damage].
func ParseProjectileSegments(fields []string) (ProjectileRecord, error) {
	if len(fields) < 5 || len(fields) > 6 {
		return ProjectileRecord{}, &FieldError{Field: "fields", Value: strings.Join(fields, "/"), Reason: "want x/y/radius/angle/power[/damage]"}
	}
	vals := [6]float64{5: DefaultDamage}
	for i, raw := range fields {
		v, err := parseNumber(projectileFields[i], raw)
		if err != nil {
			return ProjectileRecord{}, err
		}
		vals[i] = v
	}
	rec := ProjectileRecord{X: vals[0], Y: vals[1], Radius: vals[2], Angle: vals[3], Power: vals[4], Damage: vals[5]}
	if err := rec.Validate(); err != nil {
		return ProjectileRecord{}, err
	}
	return rec, nil
}

func parseNumber(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &FieldError{Field: field, Value: raw, Reason: "not a number"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &FieldError{Field: field, Value: raw, Reason: "not finite"}
	}
	return v, nil
}

func ValidName(name string) error {
	if name == "" {
		return &FieldError{Field: "name", Value: name, Reason: "empty"}
	}
	if len(name) > MaxNameLen {
		return &FieldError{Field: "name", Value: name, Reason: "too long"}
	}
	for _, r := range name {
		if r == '/' || r < 0x20 || r == 0x7f {
			return &FieldError{Field: "name", Value: name, Reason: "invalid character"}
		}
	}
	return nil
}

func (r PlayerRecord) Validate() error {
	if err := ValidName(r.Name); err != nil {
		return err
	}
	nums := []float64{r.X, r.Y, r.Angle, r.Power}
	if r.Health != nil {
		nums = append(nums, *r.Health)
	}
	for i, v := range nums {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &FieldError{Field: playerFields[i], Value: formatNumber(v), Reason: "not finite"}
		}
	}
	if r.Power < 0 || r.Power > MaxPower {
		return &FieldError{Field: "power", Value: formatNumber(r.Power), Reason: "out of range"}
	}
	return nil
}

func (r ProjectileRecord) Validate() error {
	nums := []float64{r.X, r.Y, r.Radius, r.Angle, r.Power, r.Damage}
	for i, v := range nums {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &FieldError{Field: projectileFields[i], Value: formatNumber(v), Reason: "not finite"}
		}
	}
	if r.Radius <= 0 || r.Radius > MaxRadius {
		return &FieldError{Field: "radius", Value: formatNumber(r.Radius), Reason: "out of range"}
	}
	if r.Power < 0 || r.Power > MaxPower {
		return &FieldError{Field: "power", Value: formatNumber(r.Power), Reason: "out of range"}
	}
	if r.Damage < 0 {
		return &FieldError{Field: "damage", Value: formatNumber(r.Damage), Reason: "negative"}
	}
	if r.Owner != "" {
		if err := ValidName(r.Owner); err != nil {
			return &FieldError{Field: "owner", Value: r.Owner, Reason: "invalid"}
		}
	}
	return nil
}

// Segments is the inverse of ParsePlayerSegments, excluding the name.
func (r PlayerRecord) Segments() []string {
	out := []string{formatNumber(r.X), formatNumber(r.Y), formatNumber(r.Angle), formatNumber(r.Power)}
	if r.Health != nil {
		out = append(out, formatNumber(*r.Health))
	}
	return out
}

func (r ProjectileRecord) Segments() []string {
	return []string{
		formatNumber(r.X), formatNumber(r.Y), formatNumber(r.Radius),
		formatNumber(r.Angle), formatNumber(r.Power), formatNumber(r.Damage),
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
