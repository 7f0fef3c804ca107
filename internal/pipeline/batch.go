package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchItem 批量处理中单个文档的结果
type BatchItem struct {
	Document Document
	Result   *Result
	Err      error
}

// ProcessBatch 并发处理多个文档（并发数受 MaxConcurrent 限制），结果顺序与输入一致；
// 单个文档失败不影响其他文档。
func (c *Coordinator) ProcessBatch(ctx context.Context, docs []Document) []BatchItem {
	items := make([]BatchItem, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxConcurrent)

	for i, doc := range docs {
		items[i].Document = doc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			items[i].Result, items[i].Err = c.Process(gctx, doc, nil)
			return nil
		})
	}
	_ = g.Wait()
	return items
}
