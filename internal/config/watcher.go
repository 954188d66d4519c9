package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/castforge/castforge/internal/obslog"
)

// Watcher reloads Config whenever the backing config file changes on
// disk, debounced the way nebula.Watcher debounces phase-file edits, so a
// running facade can pick up a lowered parallelism_cap or an adjusted
// breaker_cooldown without a restart.
type Watcher struct {
	v      *viper.Viper
	logger *logrus.Logger

	fw       *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher starts watching v's config file for writes. onChange is
// called with the freshly reloaded Config after each debounced write; it
// must return quickly since it runs on the watcher's own goroutine.
func NewWatcher(v *viper.Viper, logger *logrus.Logger, onChange func(Config)) (*Watcher, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	file := v.ConfigFileUsed()
	if file == "" {
		fw.Close()
		return nil, errNoConfigFile
	}
	if err := fw.Add(file); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{v: v, logger: logger, fw: fw, done: make(chan struct{})}
	go w.loop(onChange)
	return w, nil
}

// Stop closes the underlying fsnotify watcher. Safe to call multiple times.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.fw.Close()
		<-w.done
	})
}

func (w *Watcher) loop(onChange func(Config)) {
	defer close(w.done)

	const debounce = 100 * time.Millisecond
	var pending bool
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				pending = true
				timer.Reset(debounce)
			}

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			cfg, err := Load(w.v)
			if err != nil {
				w.logger.WithFields(obslog.NewFields().
					Component("config").
					Operation("reload").
					Error(err).Logrus()).
					Warn("failed to reload configuration after change")
				continue
			}
			onChange(cfg)

		case _, ok := <-w.fw.Errors:
			if !ok {
				return
			}
		}
	}
}

var errNoConfigFile = configFileError("watcher requires a config file on disk to watch")

type configFileError string

func (e configFileError) Error() string { return string(e) }
