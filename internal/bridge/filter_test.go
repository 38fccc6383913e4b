package bridge

import "testing"

func TestFilterContent(t *testing.T) {
	tests := []struct {
		name      string
		reasoning string
		answer    string
		show      bool
		expected  string
	}{
		{
			name:      "隐藏推理内容",
			reasoning: "step1step2",
			answer:    "42",
			show:      false,
			expected:  "42",
		},
		{
			name:      "显示推理内容",
			reasoning: "step1step2",
			answer:    "42",
			show:      true,
			expected:  "<think>step1step2</think>\n42",
		},
		{
			name:      "无推理内容时不加标签",
			reasoning: "",
			answer:    "42",
			show:      true,
			expected:  "42",
		},
		{
			name:      "回答去除首尾空白",
			reasoning: "",
			answer:    "  42  \n",
			show:      false,
			expected:  "42",
		},
		{
			name:      "只有推理内容",
			reasoning: "thinking only",
			answer:    "",
			show:      true,
			expected:  "<think>thinking only</think>\n",
		},
		{
			name:      "全空输入",
			reasoning: "",
			answer:    "",
			show:      true,
			expected:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterContent(tt.reasoning, tt.answer, tt.show)
			if got != tt.expected {
				t.Errorf("FilterContent() = %q, 期望 %q", got, tt.expected)
			}
		})
	}
}
