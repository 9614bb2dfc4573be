package service

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"school-console/backend/internal/dto"
)

// ValidationError 输入校验错误，Field 指明出错的字段或时段
// （如 "slots[2].start_time"），供前端渲染可操作的提示
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("输入校验失败 [%s]: %s", e.Field, e.Reason)
}

func newValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// clockPattern 严格零填充的 "HH:MM"。time.Parse("15:04", …) 会接受
// "9:45" 这类未填充写法，而区间重叠判定依赖字符串比较，未填充的时间串
// 会破坏比较语义，必须在入口整体拒绝
var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// parseClock 校验 "HH:MM" 时间串（机构本地时间，无时区）。
// 仅接受零填充格式，保证后续字符串比较与时间比较等价
func parseClock(s string) (time.Time, error) {
	if !clockPattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("非法时间格式 %q", s)
	}
	return time.Parse("15:04", s)
}

// validateActiveDays 校验 active_days ⊆ {1..6} 且无重复
func validateActiveDays(days []int) error {
	if len(days) == 0 {
		return newValidationError("active_days", "不能为空")
	}
	seen := make(map[int]bool, len(days))
	for _, d := range days {
		if d < 1 || d > 6 {
			return newValidationError("active_days", "仅允许 1（周一）到 6（周六），收到 %d", d)
		}
		if seen[d] {
			return newValidationError("active_days", "重复的天: %d", d)
		}
		seen[d] = true
	}
	return nil
}

// validateSlots 校验模板时段集合：
//   - 时间格式合法且 start < end
//   - 教学时段携带节次号、休息时段不携带（变体互斥）
//   - 教学时段节次号唯一
//   - 全部时段按时间升序两两不重叠（半开区间）
func validateSlots(slots []dto.TemplateSlotInput) error {
	if len(slots) == 0 {
		return newValidationError("slots", "至少需要一个时段")
	}

	seenNumbers := make(map[int]int, len(slots))
	for i, s := range slots {
		field := fmt.Sprintf("slots[%d]", i)

		if _, err := parseClock(s.StartTime); err != nil {
			return newValidationError(field+".start_time", "时间格式应为 HH:MM，收到 %q", s.StartTime)
		}
		if _, err := parseClock(s.EndTime); err != nil {
			return newValidationError(field+".end_time", "时间格式应为 HH:MM，收到 %q", s.EndTime)
		}
		if s.StartTime >= s.EndTime {
			return newValidationError(field, "开始时间 %s 必须早于结束时间 %s", s.StartTime, s.EndTime)
		}

		if s.IsBreak {
			if s.PeriodNumber != nil {
				return newValidationError(field, "休息时段不允许携带节次号")
			}
		} else {
			if s.PeriodNumber == nil {
				return newValidationError(field, "教学时段必须携带节次号")
			}
			if prev, dup := seenNumbers[*s.PeriodNumber]; dup {
				return newValidationError(field, "节次号 %d 与 slots[%d] 重复", *s.PeriodNumber, prev)
			}
			seenNumbers[*s.PeriodNumber] = i
		}
	}

	// 按开始时间排序后检查相邻重叠；首尾相接合法
	order := make([]int, len(slots))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return slots[order[a]].StartTime < slots[order[b]].StartTime
	})
	for k := 1; k < len(order); k++ {
		prev, cur := slots[order[k-1]], slots[order[k]]
		if timesOverlap(prev.StartTime, prev.EndTime, cur.StartTime, cur.EndTime) {
			return newValidationError(fmt.Sprintf("slots[%d]", order[k]),
				"时段 %s-%s 与 %s-%s 重叠", cur.StartTime, cur.EndTime, prev.StartTime, prev.EndTime)
		}
	}

	return nil
}
