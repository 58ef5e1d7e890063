package uci

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	chessuci "github.com/notnil/chess/uci"
	"go.uber.org/zap"

	"github.com/discochess/lookahead/internal/engine"
)

// Process is a running UCI engine. *chessuci.Engine satisfies it.
type Process interface {
	Run(cmds ...chessuci.Cmd) error
	SearchResults() chessuci.SearchResults
	Close() error
}

// Compile-time check that the notnil engine satisfies Process.
var _ Process = (*chessuci.Engine)(nil)

// identifier is implemented by processes that report the id the engine
// sent during the handshake.
type identifier interface {
	ID() map[string]string
}

// engineName returns the "id name" the engine reported, or "".
func engineName(proc Process) string {
	if id, ok := proc.(identifier); ok {
		return strings.TrimSpace(id.ID()["name"])
	}
	return ""
}

// Launcher starts a new engine process ready to accept positions.
type Launcher func() (Process, error)

// Launch returns a Launcher that starts the engine binary at path, performs
// the UCI handshake and applies the given engine options.
func Launch(path string, options map[string]string) Launcher {
	return func() (Process, error) {
		eng, err := chessuci.New(path)
		if err != nil {
			return nil, fmt.Errorf("starting engine %s: %w", path, err)
		}

		cmds := []chessuci.Cmd{chessuci.CmdUCI, chessuci.CmdIsReady}
		for name, value := range options {
			cmds = append(cmds, chessuci.CmdSetOption{Name: name, Value: value})
		}
		cmds = append(cmds, chessuci.CmdUCINewGame)

		if err := eng.Run(cmds...); err != nil {
			_ = eng.Close()
			return nil, fmt.Errorf("initializing engine %s: %w", path, err)
		}
		return eng, nil
	}
}

// pool hands out engine processes one caller at a time. Dead processes are
// closed on release and replaced by a fresh launch.
type pool struct {
	launch Launcher
	idle   chan Process
	logger *zap.Logger
	// name is the engine name reported by the first process.
	name string

	mu     sync.Mutex
	closed bool
	live   int
}

func newPool(launch Launcher, size int, logger *zap.Logger) (*pool, error) {
	p := &pool{
		launch: launch,
		idle:   make(chan Process, size),
		logger: logger,
	}
	for i := 0; i < size; i++ {
		proc, err := launch()
		if err != nil {
			p.close()
			return nil, err
		}
		if i == 0 {
			p.name = engineName(proc)
		}
		p.live++
		p.idle <- proc
	}
	return p, nil
}

// acquire waits for an idle process until timeout or ctx ends.
func (p *pool) acquire(ctx context.Context, timeout time.Duration) (Process, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case proc := <-p.idle:
		if proc == nil {
			return nil, ErrClosed
		}
		return proc, nil
	case <-t.C:
		return nil, fmt.Errorf("%w: no engine free after %s", engine.ErrUnavailable, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// release returns proc to the pool. A process whose last command failed is
// closed and replaced.
func (p *pool) release(proc Process, dead bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = proc.Close()
		return
	}
	if !dead {
		p.idle <- proc
		return
	}

	_ = proc.Close()
	p.live--
	fresh, err := p.launch()
	if err != nil {
		p.logger.Warn("engine restart failed", zap.Error(err), zap.Int("live", p.live))
		return
	}
	p.live++
	p.logger.Info("engine restarted", zap.Int("live", p.live))
	p.idle <- fresh
}

func (p *pool) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var firstErr error
	for {
		select {
		case proc := <-p.idle:
			if err := proc.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		default:
			close(p.idle)
			return firstErr
		}
	}
}
