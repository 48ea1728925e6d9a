package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"artillery/game"
	"artillery/protocol"
)

// Config is everything the simulation and the replication layer read at startup.
type Config struct {
	ScreenWidth      int
	ScreenHeight     int
	TickHz           int
	Gravity          float64
	MoveSpeed        float64
	BaseHealth       float64
	ProjectileDamage float64
	ProjectileRadius float64
	Terrain          game.Profile

	Addr           string
	Transport      string // "http" or "ws"
	Codec          string // "json" or "msgpack"
	PollInterval   time.Duration
	ConnectTimeout time.Duration
	LogRetention   int // projectile log entries kept by the host, 0 = all
	AccessLog      bool

	LogFile string
	Sound   bool
}

func Default() Config {
	p := game.DefaultParams()
	return Config{
		ScreenWidth:      p.Width,
		ScreenHeight:     p.Height,
		TickHz:           protocol.SimTickHz,
		Gravity:          p.Gravity,
		MoveSpeed:        p.MoveSpeed,
		BaseHealth:       p.BaseHealth,
		ProjectileDamage: p.ProjectileDamage,
		ProjectileRadius: p.ProjectileRadius,
		Terrain:          game.ProfileLongFunc,
		Addr:             fmt.Sprintf(":%d", protocol.DefaultPort),
		Transport:        "http",
		Codec:            "json",
		PollInterval:     time.Second / protocol.PollHz,
		ConnectTimeout:   10 * time.Second,
		LogFile:          "artillery.log",
		Sound:            true,
	}
}

// InitConfig loads a .env file when one is present.
func InitConfig() {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(errors.Cause(err)) {
			log.Printf("config: ignoring .env: %v", err)
		}
		return
	}

	log.Println("Successfully loaded environment variables")
}

func GetEnvVariable(v string) (string, error) {
	if v == "" {
		return "", fmt.Errorf("input param empty")
	}
	b := os.Getenv(v)
	if b == "" {
		return "", fmt.Errorf("failed to get variable for %s", v)
	}

	return b, nil

}

// Load reads .env and ARTILLERY_* variables over the defaults.
func Load() (Config, error) {
	InitConfig()
	return FromEnv(Default())
}

// FromEnv overlays ARTILLERY_* variables on base.
func FromEnv(base Config) (Config, error) {
	c := base
	var err error
	set := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}
	set(envInt("ARTILLERY_SCREEN_WIDTH", &c.ScreenWidth))
	set(envInt("ARTILLERY_SCREEN_HEIGHT", &c.ScreenHeight))
	set(envInt("ARTILLERY_TICK_HZ", &c.TickHz))
	set(envFloat("ARTILLERY_GRAVITY", &c.Gravity))
	set(envFloat("ARTILLERY_MOVE_SPEED", &c.MoveSpeed))
	set(envFloat("ARTILLERY_BASE_HEALTH", &c.BaseHealth))
	set(envFloat("ARTILLERY_PROJECTILE_DAMAGE", &c.ProjectileDamage))
	set(envFloat("ARTILLERY_PROJECTILE_RADIUS", &c.ProjectileRadius))
	set(envString("ARTILLERY_TERRAIN", (*string)(&c.Terrain)))
	set(envString("ARTILLERY_ADDR", &c.Addr))
	set(envString("ARTILLERY_TRANSPORT", &c.Transport))
	set(envString("ARTILLERY_CODEC", &c.Codec))
	set(envDuration("ARTILLERY_POLL_INTERVAL", &c.PollInterval))
	set(envDuration("ARTILLERY_CONNECT_TIMEOUT", &c.ConnectTimeout))
	set(envInt("ARTILLERY_LOG_RETENTION", &c.LogRetention))
	set(envBool("ARTILLERY_ACCESS_LOG", &c.AccessLog))
	set(envString("ARTILLERY_LOG_FILE", &c.LogFile))
	set(envBool("ARTILLERY_SOUND", &c.Sound))
	if err != nil {
		return base, err
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.ScreenWidth <= 0 || c.ScreenHeight <= 0:
		return errors.Errorf("config: screen %dx%d must be positive", c.ScreenWidth, c.ScreenHeight)
	case float64(c.ScreenHeight) <= game.TerrainMargin:
		return errors.Errorf("config: screen height %d leaves no room for terrain", c.ScreenHeight)
	case c.TickHz <= 0:
		return errors.Errorf("config: tick rate %d must be positive", c.TickHz)
	case c.Gravity < 0:
		return errors.Errorf("config: gravity %g must not be negative", c.Gravity)
	case c.MoveSpeed < 1:
		// tanks move in whole terrain samples
		return errors.Errorf("config: move speed %g must be at least 1 px per tick", c.MoveSpeed)
	case c.BaseHealth <= 0:
		return errors.Errorf("config: base health %g must be positive", c.BaseHealth)
	case c.ProjectileDamage < 0:
		return errors.Errorf("config: projectile damage %g must not be negative", c.ProjectileDamage)
	case c.PollInterval <= 0:
		return errors.Errorf("config: poll interval %s must be positive", c.PollInterval)
	case c.ConnectTimeout <= 0:
		return errors.Errorf("config: connect timeout %s must be positive", c.ConnectTimeout)
	case c.ProjectileRadius <= 0 || c.ProjectileRadius > protocol.MaxRadius:
		return errors.Errorf("config: projectile radius %g out of range", c.ProjectileRadius)
	case c.LogRetention < 0:
		return errors.Errorf("config: log retention %d must not be negative", c.LogRetention)
	case c.Transport != "http" && c.Transport != "ws":
		return errors.Errorf("config: unknown transport %q", c.Transport)
	}
	switch c.Terrain {
	case game.ProfileLongFunc, game.ProfileSine, game.ProfileFlat:
	default:
		return errors.Errorf("config: unknown terrain %q", c.Terrain)
	}
	if _, err := protocol.CodecByName(c.Codec); err != nil {
		return errors.Wrap(err, "config")
	}
	return nil
}

// Params are the simulation constants handed to the game package.
func (c Config) Params() game.Params {
	return game.Params{
		Width:            c.ScreenWidth,
		Height:           c.ScreenHeight,
		Gravity:          c.Gravity,
		MoveSpeed:        c.MoveSpeed,
		BaseHealth:       c.BaseHealth,
		ProjectileDamage: c.ProjectileDamage,
		ProjectileRadius: c.ProjectileRadius,
	}
}

func envString(key string, dst *string) error {
	if v, err := GetEnvVariable(key); err == nil {
		*dst = v
	}
	return nil
}

func envInt(key string, dst *int) error {
	v, err := GetEnvVariable(key)
	if err != nil {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.Wrapf(err, "config: %s", key)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v, err := GetEnvVariable(key)
	if err != nil {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return errors.Wrapf(err, "config: %s", key)
	}
	*dst = f
	return nil
}

func envBool(key string, dst *bool) error {
	v, err := GetEnvVariable(key)
	if err != nil {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return errors.Wrapf(err, "config: %s", key)
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v, err := GetEnvVariable(key)
	if err != nil {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return errors.Wrapf(err, "config: %s", key)
	}
	*dst = d
	return nil
}
