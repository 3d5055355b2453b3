// Package fastparse 提供上游数据字段的宽松解析函数。
// 上游统计字段可能是数字、带后缀的字符串（如 "35'"、"45+2"）或缺失，统一解析为整数。
package fastparse

import (
	"strconv"
	"strings"
)

// ParseInt 解析整数字符串
// 参数 s: 待解析的字符串，如 "12345"
// 返回: 解析后的整数和可能的错误
func ParseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// MustParseInt 解析整数，失败时返回 0
// 参数 s: 待解析的字符串
// 返回: 解析后的整数，失败返回 0
func MustParseInt(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// LeadingInt 解析字符串开头的整数部分，忽略后续字符
// "35'" -> 35，"45+2" -> 45，"7.0" -> 7，"" 或 "-" -> 0
// 参数 s: 待解析的字符串
// 返回: 解析出的非负整数
func LeadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	return int(MustParseInt(s[:end]))
}

// FloatToInt 将 JSON 数字转换为整数（截断小数）
// 负数与非有限值返回 0
func FloatToInt(f float64) int {
	if f != f || f < 0 || f > 1e9 {
		return 0
	}
	return int(f)
}
