package workspace

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runOrSkip(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v: %s", args, err, out)
	}
}

// newBareRemoteAndClone creates a bare "remote" repo and a clone of it,
// returning both paths, so Push/Sync exercise real git plumbing.
func newBareRemoteAndClone(t *testing.T) (remote, clone string) {
	t.Helper()
	remote = filepath.Join(t.TempDir(), "remote.git")
	require.NoError(t, os.MkdirAll(remote, 0o755))
	runOrSkip(t, remote, "init", "--bare")

	seed := filepath.Join(t.TempDir(), "seed")
	require.NoError(t, os.MkdirAll(seed, 0o755))
	runOrSkip(t, seed, "init")
	require.NoError(t, os.WriteFile(filepath.Join(seed, "calendar.org"), []byte("seed"), 0o644))
	runOrSkip(t, seed, "add", ".")
	runOrSkip(t, seed, "commit", "-m", "seed")
	runOrSkip(t, seed, "branch", "-M", "main")
	runOrSkip(t, seed, "remote", "add", "origin", remote)
	runOrSkip(t, seed, "push", "origin", "main")

	clone = filepath.Join(t.TempDir(), "clone")
	runOrSkip(t, filepath.Dir(clone), "clone", remote, clone)
	runOrSkip(t, clone, "branch", "-M", "main")

	return remote, clone
}

func TestEnsureCheckoutIsIdempotentOnExistingRepo(t *testing.T) {
	_, clone := newBareRemoteAndClone(t)
	w := New(Config{RepoDir: clone}, testLogger())

	require.NoError(t, w.EnsureCheckout(context.Background()))
	require.NoError(t, w.EnsureCheckout(context.Background()))
}

func TestEnsureCheckoutFailsWithoutRepositoryURL(t *testing.T) {
	dir := t.TempDir()
	w := New(Config{RepoDir: dir}, testLogger())
	err := w.EnsureCheckout(context.Background())
	require.Error(t, err)
}

func TestSyncReportsUpToDateWithNoNewCommits(t *testing.T) {
	_, clone := newBareRemoteAndClone(t)
	w := New(Config{RepoDir: clone, SyncEnabled: true, FFOnly: true, Remote: "origin", Branch: "main"}, testLogger())

	changed, message, err := w.Sync(context.Background())
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, "already up to date", message)
}

func TestSyncDetectsNewCommitsFromRemote(t *testing.T) {
	remote, clone := newBareRemoteAndClone(t)

	other := filepath.Join(t.TempDir(), "other-clone")
	runOrSkip(t, filepath.Dir(other), "clone", remote, other)
	runOrSkip(t, other, "branch", "-M", "main")
	require.NoError(t, os.WriteFile(filepath.Join(other, "new.txt"), []byte("x"), 0o644))
	runOrSkip(t, other, "add", ".")
	runOrSkip(t, other, "commit", "-m", "new commit")
	runOrSkip(t, other, "push", "origin", "main")

	w := New(Config{RepoDir: clone, SyncEnabled: true, FFOnly: true, Remote: "origin", Branch: "main"}, testLogger())
	changed, message, err := w.Sync(context.Background())
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "pulled new commits", message)
}

func TestCommitRejectsFileOutsideRepo(t *testing.T) {
	_, clone := newBareRemoteAndClone(t)
	w := New(Config{RepoDir: clone, CommitMessageTemplate: "Add: {title}"}, testLogger())

	outside := filepath.Join(t.TempDir(), "outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	ok, msg := w.Commit(context.Background(), outside, "Title")
	require.False(t, ok)
	require.Contains(t, msg, "outside repository")
}

func TestCommitStagesAndCommitsFileInsideRepo(t *testing.T) {
	_, clone := newBareRemoteAndClone(t)
	w := New(Config{RepoDir: clone, CommitMessageTemplate: "Add: {title}"}, testLogger())

	target := filepath.Join(clone, "inbox", "a.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte("content"), 0o644))

	ok, msg := w.Commit(context.Background(), target, "Design Review")
	require.True(t, ok, msg)
}

func TestPushDisabledReturnsTrueWithoutPushing(t *testing.T) {
	_, clone := newBareRemoteAndClone(t)
	w := New(Config{RepoDir: clone, AutoPush: false}, testLogger())

	ok, msg := w.Push(context.Background())
	require.True(t, ok)
	require.Equal(t, "push disabled in config", msg)
}

func TestMaybeDispatchWorkflowDisabledByDefault(t *testing.T) {
	w := New(Config{}, testLogger())
	ok, msg := w.MaybeDispatchWorkflow(context.Background(), "test")
	require.False(t, ok)
	require.Equal(t, "workflow dispatch disabled", msg)
}

func TestMaybeDispatchWorkflowRequiresToken(t *testing.T) {
	w := New(Config{
		WorkflowDispatch: WorkflowDispatch{Enabled: true, Repo: "org/repo", Workflow: "build.yml"},
	}, testLogger())
	ok, msg := w.MaybeDispatchWorkflow(context.Background(), "test")
	require.False(t, ok)
	require.Equal(t, "GH_TOKEN not set", msg)
}

func TestRunStandaloneProcessingDisabledByDefault(t *testing.T) {
	w := New(Config{}, testLogger())
	ok, msg := w.RunStandaloneProcessing(context.Background())
	require.False(t, ok)
	require.Equal(t, "standalone processing disabled", msg)
}

func TestRunStandaloneProcessingRunsConfiguredCommand(t *testing.T) {
	dir := t.TempDir()
	w := New(Config{
		RepoDir: dir,
		Standalone: Standalone{
			Enabled: true,
			Command: []string{"sh", "-c", "echo hello"},
			Timeout: 5 * time.Second,
		},
	}, testLogger())

	ok, msg := w.RunStandaloneProcessing(context.Background())
	require.True(t, ok, msg)
}

func TestRunStandaloneProcessingReportsNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	w := New(Config{
		RepoDir: dir,
		Standalone: Standalone{
			Enabled: true,
			Command: []string{"sh", "-c", "exit 3"},
			Timeout: 5 * time.Second,
		},
	}, testLogger())

	ok, msg := w.RunStandaloneProcessing(context.Background())
	require.False(t, ok)
	require.Contains(t, msg, "exit 3")
}
