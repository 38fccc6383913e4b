package bridge

import "strings"

// FilterContent 内容过滤，只作用于非流式路径
// show=false时只返回answer；show=true时按原始顺序拼接reasoning和answer，
// 用<think>标记保持两段内容对下游可区分
// 纯函数：无副作用，无I/O，输入确定则输出确定
func FilterContent(reasoning, answer string, show bool) string {
	answer = strings.TrimSpace(answer)
	if !show || reasoning == "" {
		return answer
	}
	return "<think>" + reasoning + "</think>\n" + answer
}
