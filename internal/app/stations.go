package app

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/large-farva/fast-trigger/internal/config"
	"github.com/large-farva/fast-trigger/internal/lcu"
	"github.com/large-farva/fast-trigger/internal/notify"
	"github.com/large-farva/fast-trigger/internal/station"
)

// wiring is everything built from the [[stations]] list. closers release
// network clients on shutdown.
type wiring struct {
	registry *station.Registry
	runners  map[string]lcu.Runner
	closers  []func()
}

func (w *wiring) close() {
	for i := len(w.closers) - 1; i >= 0; i-- {
		w.closers[i]()
	}
}

func lcuSettings(cfg config.Config) lcu.Settings {
	return lcu.Settings{
		RCUs:     cfg.LCU.RCUs,
		LockFile: cfg.LCU.LockFile,
		LogFile:  cfg.LCU.LogFile,
	}
}

// buildStations turns the config into a registry. Shared clients (Redis,
// NATS, SMTP) are created at most once.
func buildStations(cfg config.Config, logger zerolog.Logger) (*wiring, error) {
	w := &wiring{runners: make(map[string]lcu.Runner)}

	var (
		rdb   *redis.Client
		nc    *notify.NATS
		email *notify.Email
		logN  = notify.NewLog(logger)
	)

	stations := make([]*station.Station, 0, len(cfg.Stations))
	for i, sc := range cfg.Stations {
		desc, err := cfg.Descriptor(sc)
		if err != nil {
			w.close()
			return nil, fmt.Errorf("stations[%d]: %w", i, err)
		}

		if sc.LCUHost != "" {
			runner, err := lcu.NewSSHRunner(lcu.SSHConfig{
				Host:           sc.LCUHost,
				Port:           sc.LCUPort,
				User:           cfg.LCU.User,
				KeyFile:        cfg.LCU.KeyFile,
				KnownHostsFile: cfg.LCU.KnownHostsFile,
				DialTimeout:    time.Duration(cfg.LCU.DialTimeoutSeconds) * time.Second,
			})
			if err != nil {
				w.close()
				return nil, fmt.Errorf("station %s: %w", desc.ShortName, err)
			}
			w.runners[desc.Key()] = runner
		}

		var probe station.AvailabilityProbe
		switch sc.Probe {
		case config.ProbeStatic:
			state, _ := station.ParseAvailability(sc.StaticState)
			probe = station.StaticProbe{State: state, Message: "configured " + state.String()}
		case config.ProbeRedis:
			if rdb == nil {
				rdb = redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				client := rdb
				w.closers = append(w.closers, func() { _ = client.Close() })
			}
			probe = station.NewRedisProbe(rdb, cfg.Redis.KeyPrefix, desc.Key())
		case config.ProbeLCU:
			probe = lcu.NewProbe(w.runners[desc.Key()], lcuSettings(cfg), cfg.LCU.MinSWLevel)
		default:
			w.close()
			return nil, fmt.Errorf("station %s: unknown probe %q", desc.ShortName, sc.Probe)
		}

		var notifiers notify.Multi
		for _, kind := range sc.Notifiers {
			switch kind {
			case config.NotifyLog:
				notifiers = append(notifiers, logN)
			case config.NotifyEmail:
				if email == nil {
					email = notify.NewEmail(notify.SMTPConfig{
						Host:     cfg.SMTP.Host,
						Port:     cfg.SMTP.Port,
						Username: cfg.SMTP.Username,
						Password: cfg.SMTP.Password,
						From:     cfg.SMTP.From,
						FromName: cfg.SMTP.FromName,
					}, logger)
				}
				notifiers = append(notifiers, email)
			case config.NotifyNATS:
				if nc == nil {
					n, conn, err := notify.DialNATS(cfg.NATS.URL, cfg.NATS.SubjectPrefix, time.Duration(cfg.NATS.TimeoutSeconds)*time.Second)
					if err != nil {
						w.close()
						return nil, err
					}
					nc = n
					w.closers = append(w.closers, conn.Close)
				}
				notifiers = append(notifiers, nc)
			default:
				w.close()
				return nil, fmt.Errorf("station %s: unknown notifier %q", desc.ShortName, kind)
			}
		}

		var notifier station.Notifier = notifiers
		if len(notifiers) == 1 {
			notifier = notifiers[0]
		}
		st, err := station.New(desc, probe, notifier)
		if err != nil {
			w.close()
			return nil, err
		}
		stations = append(stations, st)
	}

	reg, err := station.NewRegistry(stations...)
	if err != nil {
		w.close()
		return nil, err
	}
	w.registry = reg
	return w, nil
}
