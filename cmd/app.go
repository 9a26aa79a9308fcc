package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/vovanmozg/coge/backend"
	"github.com/vovanmozg/coge/bandit"
	"github.com/vovanmozg/coge/config"
	"github.com/vovanmozg/coge/dispatch"
	"github.com/vovanmozg/coge/race"
	"github.com/vovanmozg/coge/stats"
	"github.com/vovanmozg/coge/store"
)

// goos selects the system prompt and the shell; tests override it.
var goos = runtime.GOOS

// Per-user state documents, stored beside config.yaml when the store is file.
const (
	banditFile = "bandit.json"
	statsFile  = "stats.json"
)

// app is everything one invocation needs, built from flags and config.
type app struct {
	fs         afero.Fs
	cfgFile    *config.File
	cfg        *config.Config
	registry   *backend.Registry
	dispatcher *dispatch.Dispatcher
	usage      *stats.Recorder
	metrics    *prometheus.Registry
	redis      *redis.Client
}

func newApp(ctx context.Context, seeded bool) (*app, error) {
	a := &app{fs: afero.NewOsFs()}

	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	a.cfgFile = config.NewFile(a.fs, path)
	created, err := a.cfgFile.EnsureDefault()
	if err != nil {
		return nil, err
	}
	if created {
		logrus.Infof("created default config at %s", path)
	}
	if a.cfg, err = a.cfgFile.Load(); err != nil {
		return nil, err
	}

	arms, usage, err := a.openStores(ctx, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	a.usage = stats.NewRecorder(usage)

	rng := bandit.NewClockRNG()
	if seeded {
		rng = bandit.NewRNG(seed)
	}
	logrus.Debugf("selection seed %d", rng.Seed())

	a.registry = backend.NewRegistry(os.Getenv, nil)
	a.metrics = prometheus.NewRegistry()
	a.dispatcher = dispatch.New(dispatch.Options{
		Factory:          a.registry,
		Policy:           bandit.NewPolicy(arms, bandit.NewSelector(rng)),
		Recorder:         bandit.NewRecorder(arms),
		Blacklist:        a.cfgFile,
		StragglerTimeout: a.cfg.StragglerTimeout(),
		Metrics:          race.NewMetrics(a.metrics),
	})
	return a, nil
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(config.Dir(os.Getenv, goos, home), config.FileName), nil
}

func (a *app) openStores(ctx context.Context, dir string) (bandit.Store, stats.Store, error) {
	sc := a.cfg.Store
	switch sc.Kind {
	case config.StoreRedis:
		client, err := store.Dial(ctx, sc.RedisAddr, sc.RedisPassword, sc.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		a.redis = client
		return store.NewRedis(client, "bandit", newArmState), store.NewRedis(client, "stats", newStats), nil
	default:
		return store.NewFile(a.fs, filepath.Join(dir, banditFile), newArmState),
			store.NewFile(a.fs, filepath.Join(dir, statsFile), newStats), nil
	}
}

func newArmState() bandit.State { return bandit.State{} }
func newStats() stats.Stats { return stats.Stats{} }

// settle waits for the background learning of r to finish, then writes the
// metrics file if one was requested.
func (a *app) settle(r *race.Race) {
	ctx := context.Background()
	if t := a.cfg.StragglerTimeout(); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t+settleMargin)
		defer cancel()
	}
	if err := r.Wait(ctx); err != nil {
		logrus.WithField("race", r.ID()).Warn("exiting before every backend answered; learning for this race is lost")
	}
	if metricsFile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(metricsFile, a.metrics); err != nil {
		logrus.Warnf("writing metrics: %v", err)
	}
}

// record counts what the user did with a command. Failures are logged only;
// they never change the exit status.
func (a *app) record(ctx context.Context, arm string, action stats.Action) {
	if arm == "" {
		return
	}
	if err := a.usage.RecordAction(ctx, arm, action); err != nil {
		logrus.Warn(err)
	}
}

// Close releases the connections the app opened.
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logrus.Debugf("closing redis: %v", err)
		}
	}
}
