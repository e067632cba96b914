package main

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/ceyewan/keylock/clog"
	"github.com/ceyewan/keylock/dlock"
	"github.com/ceyewan/keylock/trace"
)

type execFlags struct {
	labels []string
	values []string
	retry  bool
	wait   time.Duration
	ttl    time.Duration
}

func newExecCmd(a *app) *cobra.Command {
	f := &execFlags{}
	cmd := &cobra.Command{
		Use:   "exec --label L --value V [--retry] -- command [args...]",
		Short: "Run a command while holding a lock",
		Long: `Run a command while holding the lock derived from the given labels and values.

The command's exit code is preserved. If the lock cannot be acquired the
command is not started and keylock exits with status 75.`,
		Args: cobra.MinimumNArgs(1),
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		return a.exec(cmd.Context(), f, args)
	})

	flags := cmd.Flags()
	flags.StringArrayVar(&f.labels, "label", nil, "key label, repeatable, paired with --value in order")
	flags.StringArrayVar(&f.values, "value", nil, "key value, repeatable")
	flags.BoolVar(&f.retry, "retry", false, "keep trying until --wait elapses")
	flags.DurationVar(&f.wait, "wait", dlock.DefaultWaitTime, "retry window")
	flags.DurationVar(&f.ttl, "ttl", 0, "lease ttl (default: dlock.default_ttl)")
	return cmd
}

func (a *app) exec(ctx context.Context, f *execFlags, args []string) error {
	spec := dlock.Spec{
		KeyLabels: f.labels,
		IsRetry:   f.retry,
		WaitTime:  f.wait,
		TTL:       f.ttl,
	}
	key, err := dlock.ComposeKey(a.locker.Prefix(), f.labels, f.values)
	if err != nil {
		return err
	}

	var status int
	err = a.locker.Guard().Run(ctx, spec, f.values, func(ctx context.Context) error {
		child := exec.CommandContext(ctx, args[0], args[1:]...)
		child.Stdin = os.Stdin
		child.Stdout = os.Stdout
		child.Stderr = os.Stderr
		child.Env = append(os.Environ(), "KEYLOCK_KEY="+key)
		child.Env = append(child.Env, trace.InjectEnv(ctx)...)

		a.logger.Debug("running command", clog.String("key", key), clog.Any("args", args))
		runErr := child.Run()

		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) && ctx.Err() == nil {
			status = exitErr.ExitCode()
			return nil
		}
		return runErr
	})

	switch {
	case errors.Is(err, dlock.ErrAcquisitionFailed), errors.Is(err, dlock.ErrLockTimeout):
		return &exitError{code: ExitLockUnavailable, err: err}
	case err != nil:
		return err
	case status != 0:
		return &exitError{code: status}
	}
	return nil
}
