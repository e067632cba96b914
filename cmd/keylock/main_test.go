package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/keylock/dlock"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestKey(t *testing.T) {
	out, err := run(t, "key", "--label", "order", "--value", "42", "--label", "user", "--value", "a,b")
	require.NoError(t, err)
	assert.Equal(t, "distributedLock:order_42_user_a,b\n", out)

	_, err = run(t, "key", "--label", "order")
	assert.ErrorIs(t, err, dlock.ErrInvalidSpec)
}

func TestKey_NoBackendConnection(t *testing.T) {
	// 后端无效或不可达时 key 仍然可用
	out, err := run(t, "--backend", "consul", "key", "--label", "a", "--value", "b")
	require.NoError(t, err)
	assert.Equal(t, "distributedLock:a_b\n", out)

	out, err = run(t, "--redis-addr", "127.0.0.1:1", "key", "--label", "a", "--value", "b")
	require.NoError(t, err)
	assert.Equal(t, "distributedLock:a_b\n", out)
}

func TestKey_PrefixFromConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "keylock.yaml")
	require.NoError(t, os.WriteFile(file, []byte("dlock:\n  prefix: \"jobs:\"\n"), 0o600))

	out, err := run(t, "--config", file, "key", "--label", "nightly", "--value", "1")
	require.NoError(t, err)
	assert.Equal(t, "jobs:nightly_1\n", out)
}

func TestExec_PreservesExitCode(t *testing.T) {
	mr := miniredis.RunT(t)

	_, err := run(t, "--redis-addr", mr.Addr(), "exec", "--label", "job", "--value", "1", "--", "sh", "-c", "exit 0")
	require.NoError(t, err)
	assert.Equal(t, 0, exitCode(err))

	_, err = run(t, "--redis-addr", mr.Addr(), "exec", "--label", "job", "--value", "1", "--", "sh", "-c", "exit 3")
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err))

	assert.False(t, mr.Exists("distributedLock:job_1"), "lock should be released after the command")
}

func TestExec_SeesLockKey(t *testing.T) {
	mr := miniredis.RunT(t)

	_, err := run(t, "--redis-addr", mr.Addr(), "exec", "--label", "job", "--value", "2", "--",
		"sh", "-c", `test "$KEYLOCK_KEY" = "distributedLock:job_2"`)
	require.NoError(t, err)
}

func TestExec_LockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("distributedLock:job_3", "other-holder"))

	_, err := run(t, "--redis-addr", mr.Addr(), "exec", "--label", "job", "--value", "3", "--", "sh", "-c", "exit 0")
	require.Error(t, err)
	assert.ErrorIs(t, err, dlock.ErrAcquisitionFailed)
	assert.Equal(t, ExitLockUnavailable, exitCode(err))

	_, err = run(t, "--redis-addr", mr.Addr(), "exec", "--label", "job", "--value", "3",
		"--retry", "--wait", "30ms", "--", "sh", "-c", "exit 0")
	assert.ErrorIs(t, err, dlock.ErrLockTimeout)
	assert.Equal(t, ExitLockUnavailable, exitCode(err))

	got, err := mr.Get("distributedLock:job_3")
	require.NoError(t, err)
	assert.Equal(t, "other-holder", got)
}

func TestRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("distributedLock:job_4", "tok"))

	_, err := run(t, "--redis-addr", mr.Addr(), "release", "--key", "distributedLock:job_4", "--token", "wrong")
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
	assert.True(t, mr.Exists("distributedLock:job_4"))

	out, err := run(t, "--redis-addr", mr.Addr(), "release", "--key", "distributedLock:job_4", "--token", "tok")
	require.NoError(t, err)
	assert.Contains(t, out, "released")
	assert.False(t, mr.Exists("distributedLock:job_4"))
}

func TestUnsupportedBackend(t *testing.T) {
	_, err := run(t, "--backend", "consul", "release", "--key", "distributedLock:a_b", "--token", "t")
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
}
