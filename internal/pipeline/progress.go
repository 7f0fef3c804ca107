package pipeline

import (
	"context"
	"time"
)

// streamBuffer Stream 进度通道容量
const streamBuffer = 100

// 进度事件类型
const (
	EventStart      = "start"
	EventExtract    = "extract"
	EventNormalized = "normalized"
	EventExpanded   = "expanded"
	EventExport     = "export"
	EventDone       = "done"
	EventError      = "error"
)

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/extract/normalized/expanded/export/done/error
	Message   string      `json:"message"`   // 事件消息
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// sendProgress 发送进度事件，通道为空或已满时丢弃
func sendProgress(ch chan<- ProgressEvent, event ProgressEvent) {
	if ch == nil {
		return
	}
	select {
	case ch <- event:
	default:
	}
}

// sendFinal 阻塞发送终止事件；ctx 结束时放弃并返回 false
func sendFinal(ctx context.Context, ch chan<- ProgressEvent, event ProgressEvent) bool {
	select {
	case ch <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
