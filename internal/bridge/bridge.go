package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jianglinzhang/Z2API/pkg/logger"
	"github.com/jianglinzhang/Z2API/pkg/types"
)

// NewCompletionID 生成chatcmpl-前缀的完成ID
func NewCompletionID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "chatcmpl-" + hex[:29]
}

// Stream 流式消费：每收到一个上游chunk立即转写为一条OpenAI SSE事件
// 发射顺序等于到达顺序，不缓冲不合并；reasoning内容在流式模式下
// 原样透传，不受show_think_tags配置影响
// 序列以finish_reason=stop的终止chunk和[DONE]哨兵结束
func Stream(ctx context.Context, upstream io.Reader, w io.Writer, flusher http.Flusher, model string) error {
	reader := NewReader(upstream)
	completionID := NewCompletionID()
	created := time.Now().Unix()

	for {
		select {
		case <-ctx.Done():
			// 客户端断开，停止读取上游
			logger.Debug("客户端断开，中止流式转发: %s", completionID)
			return ctx.Err()
		default:
		}

		chunk, err := reader.Next()
		if err != nil {
			// 已经有部分输出发给客户端，无法透明重试，
			// 只能以错误事件结束序列
			writeStreamError(w, flusher, err)
			if err == io.EOF {
				return types.NewUpstreamTruncatedError()
			}
			return err
		}

		if chunk.Kind == KindEnd {
			finishReason := "stop"
			final := types.ChatCompletionChunk{
				ID:      completionID,
				Object:  "chat.completion.chunk",
				Created: created,
				Model:   model,
				Choices: []types.ChunkChoice{
					{Index: 0, Delta: types.ChunkDelta{}, FinishReason: &finishReason},
				},
			}
			if err := writeEvent(w, flusher, &final); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(w, "data: [DONE]\n\n")
			flusher.Flush()
			return nil
		}

		event := types.ChatCompletionChunk{
			ID:      completionID,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   model,
			Choices: []types.ChunkChoice{
				{Index: 0, Delta: types.ChunkDelta{Content: chunk.Text}},
			},
		}
		if err := writeEvent(w, flusher, &event); err != nil {
			return err
		}
	}
}

// Collect 非流式消费：按到达顺序累积全部chunk到reasoning和answer两个缓冲
// 上游没有发出完成标记就结束时返回UpstreamTruncated，丢弃部分内容，
// 绝不把截断的结果当作完整响应返回
func Collect(ctx context.Context, upstream io.Reader) (reasoning string, answer string, err error) {
	reader := NewReader(upstream)
	var reasoningBuf, answerBuf strings.Builder

	for {
		select {
		case <-ctx.Done():
			return "", "", ctx.Err()
		default:
		}

		chunk, readErr := reader.Next()
		if readErr != nil {
			if readErr == io.EOF {
				return "", "", types.NewUpstreamTruncatedError()
			}
			return "", "", readErr
		}

		switch chunk.Kind {
		case KindEnd:
			return reasoningBuf.String(), answerBuf.String(), nil
		case KindReasoning:
			reasoningBuf.WriteString(chunk.Text)
		case KindAnswer:
			answerBuf.WriteString(chunk.Text)
		}
	}
}

// writeEvent 写出一条SSE事件并立即flush
func writeEvent(w io.Writer, flusher http.Flusher, chunk *types.ChatCompletionChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// writeStreamError 以OpenAI错误事件格式结束流
func writeStreamError(w io.Writer, flusher http.Flusher, err error) {
	errorEvent := map[string]interface{}{
		"error": map[string]string{
			"type":    "stream_error",
			"message": err.Error(),
		},
	}
	data, _ := json.Marshal(errorEvent)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
