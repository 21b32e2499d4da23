package service

import (
	"fmt"
	"regexp"
	"strconv"

	"golang.org/x/exp/slices"
)

// ── 可约时间（"HH:MM"）工具函数 ──

// minHourGap 同一排班内任意两个时间的最小间隔（分钟）
const minHourGap = 60

var hourPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// normalizeHour 截断秒部分："09:00:00" → "09:00"
func normalizeHour(h string) string {
	if len(h) > 5 {
		return h[:5]
	}
	return h
}

// parseHour 归一化单个时间并校验格式
func parseHour(raw string) (string, error) {
	h := normalizeHour(raw)
	if !hourPattern.MatchString(h) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHourFormat, raw)
	}
	return h, nil
}

// hourMinutes 将 "HH:MM" 转为自零点起的分钟数，调用前须已通过 hourPattern 校验
func hourMinutes(h string) int {
	hh, _ := strconv.Atoi(h[:2])
	mm, _ := strconv.Atoi(h[3:5])
	return hh*60 + mm
}

// normalizeHours 归一化、校验格式并升序排列，返回新切片
func normalizeHours(hours []string) ([]string, error) {
	if len(hours) == 0 {
		return nil, ErrEmptyHours
	}
	result := make([]string, 0, len(hours))
	for _, raw := range hours {
		h, err := parseHour(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	slices.Sort(result)

	// 相邻两个时间至少相差 60 分钟（同时排除重复）
	for i := 1; i < len(result); i++ {
		if hourMinutes(result[i])-hourMinutes(result[i-1]) < minHourGap {
			return nil, fmt.Errorf("%w: %s 与 %s", ErrHoursTooClose, result[i-1], result[i])
		}
	}
	return result, nil
}

// checkHourGap 新时间与集合中其他时间至少相差 60 分钟，相同时间视为已存在
func checkHourGap(hours []string, h string) error {
	hm := hourMinutes(h)
	for _, existing := range hours {
		if existing == h {
			continue
		}
		diff := hm - hourMinutes(existing)
		if diff < 0 {
			diff = -diff
		}
		if diff < minHourGap {
			return fmt.Errorf("%w: %s 与 %s", ErrHoursTooClose, existing, h)
		}
	}
	return nil
}

// conflictingHours 返回与已占用时间相差不足 60 分钟的候选时间（保持候选顺序）
func conflictingHours(candidates, booked []string) []string {
	var conflicts []string
	for _, c := range candidates {
		cm := hourMinutes(c)
		for _, b := range booked {
			diff := cm - hourMinutes(normalizeHour(b))
			if diff < 0 {
				diff = -diff
			}
			if diff < minHourGap {
				conflicts = append(conflicts, c)
				break
			}
		}
	}
	return conflicts
}

// addHour 插入并保持升序；已存在时原样返回 false
func addHour(hours []string, h string) ([]string, bool) {
	if slices.Contains(hours, h) {
		return hours, false
	}
	result := append(slices.Clone(hours), h)
	slices.Sort(result)
	return result, true
}

// removeHour 移除指定时间；不存在时原样返回 false
func removeHour(hours []string, h string) ([]string, bool) {
	idx := slices.Index(hours, h)
	if idx < 0 {
		return hours, false
	}
	return slices.Delete(slices.Clone(hours), idx, idx+1), true
}

// sameHourSet 忽略顺序比较两个时间集合
func sameHourSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
