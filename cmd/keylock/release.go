package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ceyewan/keylock/dlock"
)

func newReleaseCmd(a *app) *cobra.Command {
	var key, token string
	cmd := &cobra.Command{
		Use:   "release --key K --token T",
		Short: "Release a lock held by the given token",
		Long: `Delete the lock at key only if it is still held by token.

Exits with status 1 when the lock is absent or held by another token.`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		ok, err := a.locker.Release(cmd.Context(), key, dlock.Token(token))
		if err != nil {
			return err
		}
		if !ok {
			return &exitError{code: 1, err: fmt.Errorf("lock %q is not held by token %q", key, token)}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "released", key)
		return nil
	})

	cmd.Flags().StringVar(&key, "key", "", "full lock key, including prefix")
	cmd.Flags().StringVar(&token, "token", "", "holder token")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newKeyCmd(a *app) *cobra.Command {
	var labels, values []string
	cmd := &cobra.Command{
		Use:   "key --label L --value V",
		Short: "Print the lock key for the given labels and values",
		Args:  cobra.NoArgs,
		// 组合 key 是纯计算，只需要配置中的前缀
		Annotations: map[string]string{annotationOffline: ""},
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := dlock.ComposeKey(a.prefix, labels, values)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&labels, "label", nil, "key label, repeatable")
	cmd.Flags().StringArrayVar(&values, "value", nil, "key value, repeatable")
	return cmd
}
