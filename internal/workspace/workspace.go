// Package workspace implements the single-writer git-backed workspace
// sync core: ensuring a checkout exists, pulling fast-forward
// updates, committing and pushing ingest output, and triggering
// downstream summarization either via GitHub Actions dispatch or a
// local standalone command.
package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/briarwatch/meetingcap/internal/command"
)

// WorkflowDispatch configures the remote-dispatch downstream strategy.
type WorkflowDispatch struct {
	Enabled  bool
	Repo     string
	Workflow string
	Ref      string
	Inputs   map[string]string
}

// Standalone configures the local-command downstream strategy.
type Standalone struct {
	Enabled          bool
	Command          []string
	WorkingDirectory string
	Timeout          time.Duration
	Async            bool
}

// Hook configures the optional command run after new commits are pulled.
type Hook struct {
	Enabled          bool
	Command          string
	WorkingDirectory string
	Timeout          time.Duration
}

// Config is the workspace sync core's configuration.
type Config struct {
	RepoDir               string
	RepositoryURL         string
	AutoCommit            bool
	AutoPush              bool
	CommitMessageTemplate string
	Remote                string
	Branch                string

	SyncEnabled             bool
	SyncOnStartup           bool
	BeforeAcceptingWebhooks bool
	PollInterval            time.Duration
	FFOnly                  bool

	WorkflowDispatch WorkflowDispatch
	Standalone       Standalone
	Hook             Hook

	GitHubToken func() string
}

// Workspace is the single writer for the git-backed workspace.
type Workspace struct {
	cfg Config

	mu         sync.Mutex
	http       *http.Client
	processing atomic.Bool

	logger *slog.Logger
}

// New constructs a Workspace from cfg.
func New(cfg Config, logger *slog.Logger) *Workspace {
	if cfg.Remote == "" {
		cfg.Remote = "origin"
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.CommitMessageTemplate == "" {
		cfg.CommitMessageTemplate = "Add transcript: {title}"
	}
	return &Workspace{cfg: cfg, http: &http.Client{Timeout: 20 * time.Second}, logger: logger}
}

// Lock acquires the process-wide write lock serializing commit+push+dispatch
// sequences.
func (w *Workspace) Lock() { w.mu.Lock() }

// Unlock releases the lock acquired by Lock.
func (w *Workspace) Unlock() { w.mu.Unlock() }

// RepoPath is the workspace root.
func (w *Workspace) RepoPath() string { return w.cfg.RepoDir }

// InboxPath is "<repo>/inbox".
func (w *Workspace) InboxPath() string { return filepath.Join(w.cfg.RepoDir, "inbox") }

func (w *Workspace) runGit(ctx context.Context, timeout time.Duration, args ...string) (command.Result, error) {
	return command.Run(ctx, command.Spec{
		Argv:     append([]string{"git"}, args...),
		Dir:      w.cfg.RepoDir,
		Deadline: timeout,
	})
}

// EnsureCheckout clones the configured repository URL if the workspace
// directory has no git metadata yet. Idempotent.
func (w *Workspace) EnsureCheckout(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(w.cfg.RepoDir, ".git")); err == nil {
		return nil
	}

	if w.cfg.RepositoryURL == "" {
		return fmt.Errorf("data repo not found at %s and no repository_url configured for auto-clone", w.cfg.RepoDir)
	}

	parent := filepath.Dir(w.cfg.RepoDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create workspace parent: %w", err)
	}

	result, err := command.Run(ctx, command.Spec{
		Argv:     []string{"git", "clone", "--branch", w.cfg.Branch, "--single-branch", w.cfg.RepositoryURL, w.cfg.RepoDir},
		Dir:      parent,
		Deadline: 120 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("git clone: %w", err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("git clone failed: %s", result.Tail)
	}
	return nil
}

func (w *Workspace) headSHA(ctx context.Context) (string, bool) {
	result, err := w.runGit(ctx, 10*time.Second, "rev-parse", "HEAD")
	if err != nil || result.ExitCode != 0 {
		return "", false
	}
	return strings.TrimSpace(result.Tail), true
}

// Sync performs a fast-forward-only pull from {remote}/{branch} and
// reports whether HEAD moved.
func (w *Workspace) Sync(ctx context.Context) (changed bool, message string, err error) {
	if !w.cfg.SyncEnabled {
		return false, "sync disabled", nil
	}

	if err := w.EnsureCheckout(ctx); err != nil {
		return false, "", err
	}

	before, _ := w.headSHA(ctx)

	args := []string{"pull"}
	if w.cfg.FFOnly {
		args = append(args, "--ff-only")
	}
	args = append(args, w.cfg.Remote, w.cfg.Branch)

	result, err := w.runGit(ctx, 60*time.Second, args...)
	if err != nil {
		return false, "", fmt.Errorf("git pull: %w", err)
	}
	if result.ExitCode != 0 {
		return false, fmt.Sprintf("git pull failed: %s", result.Tail), nil
	}

	after, _ := w.headSHA(ctx)
	changed = before != "" && after != "" && before != after
	if changed {
		return true, "pulled new commits", nil
	}
	return false, "already up to date", nil
}

func (w *Workspace) runHookOnNewCommits(ctx context.Context) (bool, string) {
	if !w.cfg.Hook.Enabled {
		return false, "hook disabled"
	}
	if w.cfg.Hook.Command == "" {
		return false, "hook enabled but no command configured"
	}

	dir := w.cfg.Hook.WorkingDirectory
	if dir == "" {
		dir = w.cfg.RepoDir
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(w.cfg.RepoDir, dir)
	}
	_ = os.MkdirAll(dir, 0o755)

	result, err := command.Run(ctx, command.Spec{
		Argv:     strings.Fields(w.cfg.Hook.Command),
		Dir:      dir,
		Deadline: w.cfg.Hook.Timeout,
	})
	if err != nil {
		return false, fmt.Sprintf("hook failed: %v", err)
	}
	if result.ExitCode != 0 {
		return false, fmt.Sprintf("hook failed: %s", result.Tail)
	}
	return true, "hook completed"
}

// Commit stages filePath (which must resolve inside the workspace root)
// and commits it with the configured message template.
func (w *Workspace) Commit(ctx context.Context, filePath, title string) (bool, string) {
	repoAbs, err := filepath.Abs(w.cfg.RepoDir)
	if err != nil {
		return false, fmt.Sprintf("resolve repo path: %v", err)
	}
	fileAbs, err := filepath.Abs(filePath)
	if err != nil {
		return false, fmt.Sprintf("resolve file path: %v", err)
	}
	rel, err := filepath.Rel(repoAbs, fileAbs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false, fmt.Sprintf("file path is outside repository: %s", fileAbs)
	}

	result, err := w.runGit(ctx, 10*time.Second, "add", rel)
	if err != nil || result.ExitCode != 0 {
		return false, fmt.Sprintf("git add failed: %s", result.Tail)
	}

	message := strings.ReplaceAll(w.cfg.CommitMessageTemplate, "{title}", title)
	result, err = w.runGit(ctx, 10*time.Second, "commit", "-m", message)
	if err != nil || result.ExitCode != 0 {
		return false, fmt.Sprintf("git commit failed: %s", result.Tail)
	}
	return true, "committed to repository"
}

// Push syncs first (to avoid rejection) then pushes {remote}/{branch}.
func (w *Workspace) Push(ctx context.Context) (bool, string) {
	if !w.cfg.AutoPush {
		return true, "push disabled in config"
	}

	changed, message, err := w.Sync(ctx)
	if err != nil {
		w.logger.Warn("sync before push failed", "error", err)
	} else {
		w.logger.Info("sync before push", "message", message)
	}
	if changed && w.cfg.Hook.Enabled {
		if ok, hookMsg := w.runHookOnNewCommits(ctx); !ok {
			w.logger.Warn("post-sync hook did not succeed", "message", hookMsg)
		}
	}

	result, err := w.runGit(ctx, 120*time.Second, "push", w.cfg.Remote, w.cfg.Branch)
	if err != nil {
		return false, fmt.Sprintf("git push: %v", err)
	}
	if result.ExitCode != 0 {
		return false, fmt.Sprintf("git push failed: %s", result.Tail)
	}
	return true, fmt.Sprintf("pushed to %s/%s", w.cfg.Remote, w.cfg.Branch)
}

// MaybeDispatchWorkflow triggers the configured GitHub Actions
// workflow_dispatch if remote dispatch is enabled.
func (w *Workspace) MaybeDispatchWorkflow(ctx context.Context, reason string) (bool, string) {
	wd := w.cfg.WorkflowDispatch
	if !wd.Enabled {
		return false, "workflow dispatch disabled"
	}
	if wd.Repo == "" || wd.Workflow == "" {
		return false, "workflow dispatch enabled but repo/workflow not configured"
	}

	token := ""
	if w.cfg.GitHubToken != nil {
		token = w.cfg.GitHubToken()
	}
	if token == "" {
		return false, "GH_TOKEN not set"
	}

	url := fmt.Sprintf("https://api.github.com/repos/%s/actions/workflows/%s/dispatches", wd.Repo, wd.Workflow)
	ref := wd.Ref
	if ref == "" {
		ref = "main"
	}
	payload, err := json.Marshal(map[string]any{"ref": ref, "inputs": wd.Inputs})
	if err != nil {
		return false, fmt.Sprintf("workflow dispatch failed: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Sprintf("workflow dispatch failed: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := w.http.Do(req)
	if err != nil {
		return false, fmt.Sprintf("workflow dispatch failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 && resp.StatusCode != 201 && resp.StatusCode != 204 {
		return false, fmt.Sprintf("workflow dispatch failed (%d)", resp.StatusCode)
	}
	return true, "workflow dispatch triggered"
}

// RunStandaloneProcessing runs the configured local summarization
// command synchronously with the workspace as its WORKSPACE_DIR.
func (w *Workspace) RunStandaloneProcessing(ctx context.Context) (bool, string) {
	st := w.cfg.Standalone
	if !st.Enabled {
		return false, "standalone processing disabled"
	}
	if len(st.Command) == 0 {
		return false, "standalone enabled but no command configured"
	}

	dir := st.WorkingDirectory
	if dir == "" {
		dir = w.cfg.RepoDir
	}
	_ = os.MkdirAll(dir, 0o755)

	repoAbs, _ := filepath.Abs(w.cfg.RepoDir)
	env := append(os.Environ(), "WORKSPACE_DIR="+repoAbs)

	lastProgress := time.Now()
	result, err := command.Run(ctx, command.Spec{
		Argv:     st.Command,
		Dir:      dir,
		Env:      env,
		Deadline: st.Timeout,
		OnLine: func(line string) {
			if time.Since(lastProgress) >= 30*time.Second {
				w.logger.Info("standalone processing still running", "line", line)
				lastProgress = time.Now()
			}
		},
	})
	if errors.Is(err, command.ErrDeadlineExceeded) {
		return false, fmt.Sprintf("standalone processing timed out after %s", st.Timeout)
	}
	if err != nil {
		return false, fmt.Sprintf("standalone processing failed: %v", err)
	}
	if result.ExitCode != 0 {
		return false, fmt.Sprintf("standalone processing failed (exit %d, %s): %s", result.ExitCode, result.Elapsed, result.Tail)
	}
	return true, "standalone processing completed"
}

// RunStandaloneProcessingAsync runs standalone processing in the
// background and pushes on success, unless a run is already in flight
// (in which case it is skipped — the in-flight run picks up new inbox
// files since it processes the whole directory).
func (w *Workspace) RunStandaloneProcessingAsync(ctx context.Context) {
	if !w.processing.CompareAndSwap(false, true) {
		w.logger.Info("standalone processing already in progress, skipping")
		return
	}

	go func() {
		defer w.processing.Store(false)
		w.mu.Lock()
		defer w.mu.Unlock()

		ok, msg := w.RunStandaloneProcessing(ctx)
		if !ok {
			w.logger.Error("background standalone processing failed", "message", msg)
			return
		}
		w.logger.Info("background standalone processing succeeded", "message", msg)
		if w.cfg.AutoPush {
			if pushOK, pushMsg := w.Push(ctx); !pushOK {
				w.logger.Error("background push failed", "message", pushMsg)
			}
		}
	}()
}

// StartBackgroundSync launches a goroutine that re-runs Sync at the
// configured poll interval until ctx is cancelled.
func (w *Workspace) StartBackgroundSync(ctx context.Context) {
	if !w.cfg.SyncEnabled || w.cfg.PollInterval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(w.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.mu.Lock()
				changed, message, err := w.Sync(ctx)
				if err != nil {
					w.logger.Warn("background sync error", "error", err)
				} else if changed {
					w.logger.Info("background sync", "message", message)
					if ok, hookMsg := w.runHookOnNewCommits(ctx); !ok {
						w.logger.Warn("post-sync hook did not succeed", "message", hookMsg)
					}
				}
				w.mu.Unlock()
			}
		}
	}()
}
