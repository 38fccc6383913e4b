package bridge

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jianglinzhang/Z2API/pkg/types"
)

// ChunkKind - 上游增量内容的分类
type ChunkKind int

const (
	KindAnswer ChunkKind = iota
	KindReasoning
	KindEnd
)

// Chunk - 一个带分类标签的上游增量
// 内部管道的统一单元：流式和非流式两个消费端都从同一个Reader读取
type Chunk struct {
	Kind ChunkKind
	Text string
}

// maxLineSize SSE单行上限，上游的delta行通常很短，放宽以防长行截断
const maxLineSize = 1024 * 1024

// Reader - 上游SSE事件读取器
// 把Z.AI的data行解析为带分类的Chunk序列；分类跨chunk有状态，
// 没有phase标记的chunk继承前一个chunk的分类
type Reader struct {
	scanner  *bufio.Scanner
	lastKind ChunkKind
}

// NewReader 创建上游流读取器
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Reader{
		scanner:  scanner,
		lastKind: KindAnswer,
	}
}

// Next 读取下一个Chunk
// 返回KindEnd表示上游正常完成；流在完成标记之前结束时返回io.EOF，
// 由调用方决定如何上报截断
func (r *Reader) Next() (*Chunk, error) {
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimSpace(line[6:])
		if payload == "[DONE]" {
			return &Chunk{Kind: KindEnd}, nil
		}

		var event types.UpstreamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			// 跳过非JSON行
			continue
		}

		// 上游内嵌错误优先处理
		if event.Error != nil {
			return nil, fmt.Errorf("upstream error: %s", event.Error.Detail)
		}
		if event.Data.Error != nil {
			return nil, fmt.Errorf("upstream error: %s", event.Data.Error.Detail)
		}

		if event.Data.Done || event.Data.Phase == types.PhaseDone {
			return &Chunk{Kind: KindEnd}, nil
		}

		// 有phase标记时更新分类状态，没有时继承前一个chunk的分类
		switch event.Data.Phase {
		case types.PhaseThinking:
			r.lastKind = KindReasoning
		case types.PhaseAnswer:
			r.lastKind = KindAnswer
		}

		if event.Data.DeltaContent == "" {
			continue
		}

		return &Chunk{Kind: r.lastKind, Text: event.Data.DeltaContent}, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// 没有看到完成标记就到了流末尾
	return nil, io.EOF
}
