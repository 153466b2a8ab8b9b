package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/devicelab-dev/appium-harness/pkg/core"
	"github.com/devicelab-dev/appium-harness/pkg/logger"
)

// Appium's own defaults.
const (
	DefaultIPAddress    = "0.0.0.0"
	DefaultPort         = 4723
	DefaultStartTimeout = 60 * time.Second

	stopGracePeriod = 5 * time.Second
	statusTimeout   = 2 * time.Second
)

// Builder configures a Service.
type Builder struct {
	ip           string
	port         int
	appiumJS     string
	nodeJS       string
	startTimeout time.Duration
	logWriter    io.Writer
	extraArgs    []string
}

// NewBuilder returns a Builder with Appium's defaults (0.0.0.0:4723).
func NewBuilder() *Builder {
	return &Builder{
		ip:           DefaultIPAddress,
		port:         DefaultPort,
		startTimeout: DefaultStartTimeout,
	}
}

// UsingPort sets the port the server listens on.
func (b *Builder) UsingPort(port int) *Builder {
	b.port = port
	return b
}

// WithIPAddress sets the address the server binds to.
func (b *Builder) WithIPAddress(ip string) *Builder {
	b.ip = ip
	return b
}

// WithAppiumJS sets the path of Appium's main.js.
func (b *Builder) WithAppiumJS(path string) *Builder {
	b.appiumJS = path
	return b
}

// WithNodeJS sets the node binary. Empty means look it up on PATH at start.
func (b *Builder) WithNodeJS(path string) *Builder {
	b.nodeJS = path
	return b
}

// WithStartTimeout bounds how long Start waits for /status.
func (b *Builder) WithStartTimeout(d time.Duration) *Builder {
	if d > 0 {
		b.startTimeout = d
	}
	return b
}

// WithLogWriter receives the server's stdout and stderr. Nil discards them.
func (b *Builder) WithLogWriter(w io.Writer) *Builder {
	b.logWriter = w
	return b
}

// WithArgument appends a raw server argument, e.g. "--relaxed-security".
func (b *Builder) WithArgument(args ...string) *Builder {
	b.extraArgs = append(b.extraArgs, args...)
	return b
}

// Build returns a Service that has not been started.
func (b *Builder) Build() *Service {
	return &Service{
		ip:           b.ip,
		port:         b.port,
		appiumJS:     b.appiumJS,
		nodeJS:       b.nodeJS,
		startTimeout: b.startTimeout,
		logWriter:    b.logWriter,
		extraArgs:    append([]string(nil), b.extraArgs...),
		httpClient:   &http.Client{Timeout: statusTimeout},
	}
}

// Service is a handle on one Appium server process.
type Service struct {
	ip           string
	port         int
	appiumJS     string
	nodeJS       string
	startTimeout time.Duration
	logWriter    io.Writer
	extraArgs    []string
	httpClient   *http.Client

	mu      sync.Mutex
	cmd     *exec.Cmd
	done    chan struct{} // closed once the process has been reaped
	exitErr error
}

// IP returns the bound address.
func (s *Service) IP() string {
	return s.ip
}

// Port returns the bound port.
func (s *Service) Port() int {
	return s.port
}

// URL returns the server base URL, e.g. http://127.0.0.1:4723/.
func (s *Service) URL() string {
	return "http://" + net.JoinHostPort(s.ip, strconv.Itoa(s.port)) + "/"
}

// PID returns the server process id, or 0 if it was never started.
func (s *Service) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Start launches `node main.js --address ip --port port` and blocks until the
// server answers GET /status, the start timeout passes, ctx is done, or the
// process exits. On failure the process is stopped.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cmd != nil && !isClosed(s.done) {
		s.mu.Unlock()
		return core.ErrServerAlreadyRunning
	}

	node := s.nodeJS
	if node == "" {
		var err error
		if node, err = FindNode(); err != nil {
			s.mu.Unlock()
			return err
		}
	}

	args := []string{s.appiumJS, "--address", s.ip, "--port", strconv.Itoa(s.port)}
	args = append(args, s.extraArgs...)

	// Not CommandContext: ctx bounds the startup wait, the server outlives it.
	cmd := exec.Command(node, args...)
	cmd.Stdout = s.logWriter
	cmd.Stderr = s.logWriter

	logger.Debug("Appium command: %s %v", node, args)
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return core.ErrServerStart.WithCause(fmt.Errorf("spawn %s: %w", node, err))
	}

	done := make(chan struct{})
	s.cmd = cmd
	s.done = done
	s.exitErr = nil
	s.mu.Unlock()

	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		s.exitErr = err
		s.mu.Unlock()
		close(done)
	}()

	logger.Info("Appium process started (PID: %d), waiting for %sstatus", cmd.Process.Pid, s.URL())

	if err := s.waitReady(ctx, done); err != nil {
		if stopErr := s.Stop(); stopErr != nil {
			logger.Warn("Stopping Appium after failed start: %v", stopErr)
		}
		return core.ErrServerStart.WithCause(err)
	}
	return nil
}

func (s *Service) waitReady(ctx context.Context, done <-chan struct{}) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = s.startTimeout

	attempts := 0
	op := func() error {
		attempts++
		select {
		case <-done:
			return backoff.Permanent(fmt.Errorf("appium exited before becoming ready: %v", s.exitError()))
		default:
		}
		return s.ping(ctx)
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("after %d status checks: %w", attempts, err)
	}
	logger.Debug("Appium ready after %d status checks", attempts)
	return nil
}

// ping returns nil when GET /status answers 2xx.
func (s *Service) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL()+"status", nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// IsRunning reports whether the process is alive and /status answers.
// It is false before Start and after Stop.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	cmd, done := s.cmd, s.done
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil || isClosed(done) {
		return false
	}
	alive, err := process.PidExists(int32(cmd.Process.Pid))
	if err != nil || !alive {
		return false
	}
	return s.ping(context.Background()) == nil
}

// Stop terminates the server and its child processes and waits for it to exit.
// Stopping a service that was never started or has already exited is a no-op.
func (s *Service) Stop() error {
	s.mu.Lock()
	cmd, done := s.cmd, s.done
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil || isClosed(done) {
		return nil
	}

	p, err := process.NewProcess(int32(cmd.Process.Pid))
	if err != nil {
		// Already gone between the check and here.
		<-done
		return nil
	}

	killChildren(p)
	if err := p.Terminate(); err != nil {
		logger.Debug("SIGTERM to Appium (PID %d) failed: %v", p.Pid, err)
	}

	select {
	case <-done:
		return nil
	case <-time.After(stopGracePeriod):
	}

	logger.Warn("Appium did not exit within %v, killing PID %d", stopGracePeriod, p.Pid)
	if err := p.Kill(); err != nil && !errors.Is(err, process.ErrorProcessNotRunning) {
		return fmt.Errorf("kill appium: %w", err)
	}
	<-done
	return nil
}

func (s *Service) exitError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitErr
}

// killChildren kills every descendant of p, deepest first.
func killChildren(p *process.Process) {
	children, err := p.Children()
	if err != nil {
		return
	}
	for _, c := range children {
		killChildren(c)
		if err := c.Kill(); err != nil {
			logger.Debug("kill child PID %d: %v", c.Pid, err)
		}
	}
}

func isClosed(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
