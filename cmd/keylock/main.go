// keylock 在分布式锁保护下执行命令。
//
//	keylock exec --label job --value nightly-report -- ./report.sh
//	keylock exec --label order --value 42 --retry --wait 2s -- make deploy
//	keylock release --key distributedLock:order_42 --token <token>
//
// 配置来源依次为 flag、KEYLOCK_ 前缀的环境变量、.env 文件和 keylock.yaml。
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

// exitCode 把命令错误映射为进程退出码
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(os.Stderr, "keylock:", ee.err)
		}
		return ee.code
	}
	fmt.Fprintln(os.Stderr, "keylock:", err)
	return 1
}

// exitError 携带子命令期望的退出码
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}
