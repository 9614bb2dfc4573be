package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrTeacherConflict 教师占用冲突：同一教师在重叠时间窗已有其他班级的课
var ErrTeacherConflict = errors.New("教师在该时间段已被其他班级占用")
