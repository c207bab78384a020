package watch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"shire/internal/buildindex"
	"shire/internal/config"
	"shire/internal/logging"
)

func dialUnix(path string) (net.Conn, error) {
	return net.Dial("unix", path)
}

func writeJSONLine(w net.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// Daemon runs the foreground event loop: accept rebuild signals over a
// Unix socket, debounce them, filter by relevance, and dispatch
// non-overlapping incremental builds. shire.toml itself is watched with
// fsnotify so a config edit takes effect without restarting the daemon.
type Daemon struct {
	Root   string
	DBPath string

	mu            sync.RWMutex
	config        config.Config
	manifestNames map[string]struct{}
	sourceExts    map[string]struct{}
}

// NewDaemon builds the relevance filter sets from cfg up front; the
// manifest-name set is rebuilt on each config reload.
func NewDaemon(root string, cfg config.Config, dbPath string) *Daemon {
	sourceExts := map[string]struct{}{}
	for _, ext := range buildindex.AllTrackedExtensions {
		sourceExts[ext] = struct{}{}
	}
	d := &Daemon{Root: root, DBPath: dbPath, sourceExts: sourceExts}
	d.setConfig(cfg)
	return d
}

func (d *Daemon) setConfig(cfg config.Config) {
	manifestNames := map[string]struct{}{}
	for _, m := range cfg.Discovery.Manifests {
		manifestNames[m] = struct{}{}
	}
	d.mu.Lock()
	d.config = cfg
	d.manifestNames = manifestNames
	d.mu.Unlock()
}

func (d *Daemon) getConfig() config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// isRelevant mirrors the original's relevance filter: inside the repo root
// and either shire.toml, a recognized manifest filename, or a tracked
// source extension.
func (d *Daemon) isRelevant(path string) bool {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(d.Root, abs)
	}
	rel, err := filepath.Rel(d.Root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}

	base := filepath.Base(abs)
	if base == "shire.toml" {
		return true
	}
	d.mu.RLock()
	_, isManifest := d.manifestNames[base]
	d.mu.RUnlock()
	if isManifest {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(abs), "."))
	_, ok := d.sourceExts[ext]
	return ok
}

// Run binds the Unix socket, accepts connections, and runs the debounce +
// rebuild loop until ctx is canceled or a termination signal arrives.
func (d *Daemon) Run(ctx context.Context) error {
	log := logging.Get(logging.CategoryWatch)
	sock := sockPath(d.Root)

	if err := os.MkdirAll(filepath.Dir(sock), 0o755); err != nil {
		return fmt.Errorf("watch: create .shire dir: %w", err)
	}
	_ = os.Remove(sock)

	listener, err := net.Listen("unix", sock)
	if err != nil {
		return fmt.Errorf("watch: bind unix socket: %w", err)
	}
	defer listener.Close()
	defer os.Remove(sock)
	defer os.Remove(pidPath(d.Root))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	configWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create config watcher: %w", err)
	}
	defer configWatcher.Close()
	if err := configWatcher.Add(d.Root); err != nil {
		log.Warn("config watch failed, shire.toml edits require a restart", "error", err)
	}

	msgs := make(chan RebuildMessage, 16)
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return d.acceptLoop(gctx, listener, msgs)
	})
	group.Go(func() error {
		return d.debounceLoop(gctx, msgs)
	})
	group.Go(func() error {
		return d.configWatchLoop(gctx, configWatcher)
	})

	log.Info("daemon started", "socket", sock)
	err = group.Wait()
	log.Info("daemon stopped")
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func (d *Daemon) acceptLoop(ctx context.Context, listener net.Listener, msgs chan<- RebuildMessage) error {
	log := logging.Get(logging.CategoryWatch)
	var wg sync.WaitGroup
	defer wg.Wait()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Warn("accept error", "error", err)
				return nil
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			scanner := bufio.NewScanner(conn)
			for scanner.Scan() {
				var msg RebuildMessage
				if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
					log.Warn("invalid rebuild message", "error", err)
					continue
				}
				select {
				case msgs <- msg:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

func (d *Daemon) debounceLoop(ctx context.Context, msgs <-chan RebuildMessage) error {
	log := logging.Get(logging.CategoryWatch)

	for {
		cfg := d.getConfig()
		debounce := time.Duration(cfg.Watch.DebounceMs) * time.Millisecond
		if debounce <= 0 {
			debounce = 2 * time.Second
		}

		select {
		case <-ctx.Done():
			return nil
		case first := <-msgs:
			allFiles := append([]string(nil), first.Files...)
			timer := time.NewTimer(debounce)

		drain:
			for {
				select {
				case msg := <-msgs:
					allFiles = append(allFiles, msg.Files...)
				case <-timer.C:
					break drain
				case <-ctx.Done():
					timer.Stop()
					return nil
				}
			}

			if len(allFiles) > 0 && !d.anyRelevant(allFiles) {
				log.Info("skipping rebuild, no relevant files", "files", strings.Join(allFiles, ", "))
				continue
			}

			log.Info("triggering rebuild")
			result, err := buildindex.Build(buildindex.Options{RepoRoot: d.Root, Config: d.getConfig(), DBPath: d.DBPath})
			if err != nil {
				log.Error("rebuild failed", "error", err)
				continue
			}
			log.Info("rebuild completed", "packages", result.PackageCount, "symbols", result.SymbolCount)
		}
	}
}

// configWatchLoop re-reads shire.toml whenever fsnotify reports a write or
// create event on it, so a running daemon picks up config changes (for
// example a new debounce interval or manifest pattern) without a restart.
func (d *Daemon) configWatchLoop(ctx context.Context, watcher *fsnotify.Watcher) error {
	log := logging.Get(logging.CategoryWatch)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != "shire.toml" {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := config.Load(d.Root)
			if err != nil {
				log.Warn("config reload failed, keeping previous config", "error", err)
				continue
			}
			d.setConfig(cfg)
			log.Info("config reloaded", "debounce_ms", cfg.Watch.DebounceMs)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", "error", err)
		}
	}
}

func (d *Daemon) anyRelevant(files []string) bool {
	for _, f := range files {
		if d.isRelevant(f) {
			return true
		}
	}
	return false
}
