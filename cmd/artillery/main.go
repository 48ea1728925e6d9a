package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"
	"github.com/ttacon/chalk"
	"github.com/urfave/cli"

	"artillery/config"
	"artillery/game"
	"artillery/protocol"
	"artillery/room"
	"artillery/sfx"
	"artillery/termview"
)

const frameInterval = 16 * time.Millisecond

func main() {
	app := makeapp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, chalk.Red.Color(err.Error()))
		os.Exit(1)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: "terrain", Usage: "Terrain preset: longfunc, sine or flat"},
		cli.IntFlag{Name: "tps", Usage: "Simulation ticks per second"},
		cli.BoolFlag{Name: "no-sound", Usage: "Disable sound cues"},
		cli.StringFlag{Name: "log-file", Usage: "Where log lines go while the game screen is up"},
		cli.BoolFlag{Name: "debug", Usage: "Show tick and projectile counters"},
	}
}

func netFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: "name", Value: "Player", Usage: "Your tank's name"},
		cli.StringFlag{Name: "transport", Usage: "http or ws"},
		cli.StringFlag{Name: "codec", Usage: "json or msgpack"},
		cli.DurationFlag{Name: "poll", Usage: "Interval between polls of the host"},
	}
}

func makeapp() *cli.App {
	app := cli.NewApp()
	app.Name = "artillery"
	app.Usage = "turn-free tank artillery duel, alone, on one keyboard or over the LAN"

	app.Commands = []cli.Command{
		{
			Name:  "local",
			Usage: "Play on this machine; two players share the keyboard with --players 2",
			Flags: append(commonFlags(),
				cli.IntFlag{Name: "players", Value: 1, Usage: "1 or 2"},
			),
			Action: func(c *cli.Context) error {
				cfg, err := loadConfig(c)
				if err != nil {
					return err
				}
				players := c.Int("players")
				switch players {
				case 1:
					return play(cfg, c.Bool("debug"), termview.SingleKeymap(), func(s *room.Session) error {
						return s.Local("Player 1")
					})
				case 2:
					return play(cfg, c.Bool("debug"), termview.SharedKeymap(), func(s *room.Session) error {
						return s.Local("Player 1", "Player 2")
					})
				}
				return errors.Errorf("--players must be 1 or 2, got %d", players)
			},
		},
		{
			Name:  "host",
			Usage: "Host a LAN match and play in it",
			Flags: append(append(commonFlags(), netFlags()...),
				cli.StringFlag{Name: "addr", Usage: fmt.Sprintf("Listen address (default :%d)", protocol.DefaultPort)},
				cli.IntFlag{Name: "retain", Usage: "Keep only the last N projectile log entries"},
				cli.BoolFlag{Name: "access-log", Usage: "Log every host request"},
			),
			Action: func(c *cli.Context) error {
				cfg, err := loadConfig(c)
				if err != nil {
					return err
				}
				name := c.String("name")
				return play(cfg, c.Bool("debug"), termview.SingleKeymap(), func(s *room.Session) error {
					return s.Host(name)
				})
			},
		},
		{
			Name:      "join",
			Usage:     "Join a LAN match",
			ArgsUsage: "HOST:PORT",
			Flags:     append(commonFlags(), netFlags()...),
			Action: func(c *cli.Context) error {
				addr := c.Args().First()
				if addr == "" {
					return errors.New("join needs the host address, e.g. artillery join 192.168.1.10:8000")
				}
				cfg, err := loadConfig(c)
				if err != nil {
					return err
				}
				name := c.String("name")
				return play(cfg, c.Bool("debug"), termview.SingleKeymap(), func(s *room.Session) error {
					ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
					defer cancel()
					return s.Join(ctx, name, addr)
				})
			},
		},
	}
	return app
}

// loadConfig reads .env and the environment, then applies command line flags.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if v := c.String("terrain"); v != "" {
		cfg.Terrain = game.Profile(v)
	}
	if v := c.Int("tps"); v > 0 {
		cfg.TickHz = v
	}
	if c.Bool("no-sound") {
		cfg.Sound = false
	}
	if v := c.String("log-file"); v != "" {
		cfg.LogFile = v
	}
	if v := c.String("transport"); v != "" {
		cfg.Transport = v
	}
	if v := c.String("codec"); v != "" {
		cfg.Codec = v
	}
	if v := c.Duration("poll"); v > 0 {
		cfg.PollInterval = v
	}
	if v := c.String("addr"); v != "" {
		cfg.Addr = v
	}
	if v := c.Int("retain"); v > 0 {
		cfg.LogRetention = v
	}
	if c.Bool("access-log") {
		cfg.AccessLog = true
	}
	return cfg, cfg.Validate()
}

// play runs a session under the terminal UI until the player quits.
func play(cfg config.Config, debug bool, km termview.Keymap, start func(*room.Session) error) error {
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open log file")
	}
	defer logFile.Close()
	log.SetOutput(logFile)
	defer log.SetOutput(os.Stderr)

	audio := sfx.New()
	if cfg.Sound {
		if err := audio.Init(); err != nil {
			log.Print(chalk.Yellow, "sound disabled: ", err, chalk.Reset)
		}
	}
	defer audio.Close()

	frames := make(chan game.Scene, 1)
	session := room.NewSession(cfg)
	session.OnFrame = func(sc game.Scene) {
		audio.Play(sc.Events)
		select {
		case frames <- sc:
		default:
			select {
			case <-frames:
			default:
			}
			frames <- sc
		}
	}
	if err := start(session); err != nil {
		return err
	}
	defer func() {
		if err := session.Terminate(); err != nil {
			log.Print(chalk.Red, "terminate: ", err, chalk.Reset)
		}
	}()
	if addr := session.Addr(); addr != "" {
		fmt.Println(chalk.Green.Color("hosting on " + addr))
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return errors.Wrap(err, "terminal")
	}
	if err := screen.Init(); err != nil {
		return errors.Wrap(err, "terminal")
	}
	defer screen.Fini()

	view := termview.New(screen)
	view.Debug = debug
	tanks := session.Tanks()
	keys := termview.NewKeys(km, len(tanks))
	r := session.Room()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
					return nil
				case ev.Key() == tcell.KeyF1:
					view.Debug = !view.Debug
				default:
					keys.Press(ev, time.Now())
				}
			case *tcell.EventResize:
				screen.Sync()
			}

		case now := <-ticker.C:
			for i, in := range keys.Inputs(now) {
				r.Inbox <- room.Intent{Tank: tanks[i], Input: in}
			}
			select {
			case sc := <-frames:
				view.Draw(sc)
			default:
			}
		}
	}
}
