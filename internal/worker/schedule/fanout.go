package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// ForEach はitemsをlimit並列でfnに渡す。
// 各要素の開始前にctxのキャンセルを確認し、キャンセル後は新しい要素を開始しない。
// 開始済みの要素はキャンセルされないコンテキストで最後まで実行される。
// fnのpanicは回復してログに記録し、他の要素の処理は継続する。
// 開始した要素数を返す。
func ForEach[T any](ctx context.Context, items []T, limit int, logger *slog.Logger, fn func(ctx context.Context, item T)) int {
	if limit <= 0 {
		limit = 1
	}
	itemCtx := context.WithoutCancel(ctx)

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	started := 0

loop:
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break loop
		}
		if ctx.Err() != nil {
			<-sem
			break
		}

		started++
		wg.Add(1)
		go func(it T) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("要素の処理中にpanicが発生しました",
						slog.String("panic", fmt.Sprint(rec)),
						slog.String("stack", string(debug.Stack())),
					)
				}
			}()
			fn(itemCtx, it)
		}(item)
	}

	wg.Wait()
	return started
}
