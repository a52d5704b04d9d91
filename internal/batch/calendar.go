package batch

import (
	"time"

	"github.com/festipick/festipick/internal/constants"
)

// 场次阶段常量
const (
	PhaseUpcoming    = "upcoming"
	PhaseActive      = "active"
	PhaseCutoff      = "cutoff"
	PhasePreparation = "preparation"
	PhasePickup      = "pickup"
	PhaseCompleted   = "completed"
)

// Window 单个场次实例（所有时间为场馆时区的绝对时刻）
type Window struct {
	BatchID     int       `json:"batch_id"`     // 场次编号
	Date        time.Time `json:"date"`         // 场次锚定日期（当日零点）
	Start       time.Time `json:"start"`        // 下单开始
	End         time.Time `json:"end"`          // 下单结束
	Cutoff      time.Time `json:"cutoff"`       // 下单截止
	PickupStart time.Time `json:"pickup_start"` // 取货开始
	PickupEnd   time.Time `json:"pickup_end"`   // 取货结束
}

// Resolve 返回时刻 t 所属的场次实例
//
// 场次一：当日 06:00-18:00 下单，15:00 截止，18:00-20:00 取货。
// 场次二：当日 18:00 至次日 06:00 下单，次日 03:00 截止，次日 08:00-12:00 取货。
// [18:00, 24:00) 与次日 [00:00, 06:00) 属于同一个场次二实例。
func Resolve(t time.Time, loc *time.Location) Window {
	local := t.In(loc)
	anchor := local
	if local.Hour() < 6 {
		// 凌晨时段仍属于前一天锚定的场次二
		anchor = local.AddDate(0, 0, -1)
	}
	date := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, loc)

	if local.Hour() >= 6 && local.Hour() < 18 {
		return morningWindow(date, loc)
	}
	return eveningWindow(date, loc)
}

// Next 返回 w 之后的下一个场次实例
func Next(w Window, loc *time.Location) Window {
	if w.BatchID == constants.BatchMorning {
		return eveningWindow(w.Date, loc)
	}
	return morningWindow(w.Date.AddDate(0, 0, 1), loc)
}

// ComputeStatus 返回场次实例在时刻 now 的阶段
func ComputeStatus(w Window, now time.Time) string {
	switch {
	case now.Before(w.Start):
		return PhaseUpcoming
	case now.Before(w.Cutoff):
		return PhaseActive
	case now.Before(w.End):
		return PhaseCutoff
	case now.Before(w.PickupStart):
		return PhasePreparation
	case now.Before(w.PickupEnd):
		return PhasePickup
	default:
		return PhaseCompleted
	}
}

// IsOrderable 判断时刻 now 是否仍可在该场次下单
func IsOrderable(w Window, now time.Time) bool {
	return !now.Before(w.Start) && now.Before(w.Cutoff)
}

// NextPickupWindow 返回时刻 now 之后最近的可分配取货窗口
//
// 截止前下的订单分配本场次取货窗口，截止后按下一场次计算。
func NextPickupWindow(now time.Time, loc *time.Location) Window {
	w := Resolve(now, loc)
	if now.In(loc).Before(w.Cutoff) {
		return w
	}
	return Next(w, loc)
}

func morningWindow(date time.Time, loc *time.Location) Window {
	return Window{
		BatchID:     constants.BatchMorning,
		Date:        date,
		Start:       at(date, 6, loc),
		End:         at(date, 18, loc),
		Cutoff:      at(date, 15, loc),
		PickupStart: at(date, 18, loc),
		PickupEnd:   at(date, 20, loc),
	}
}

func eveningWindow(date time.Time, loc *time.Location) Window {
	next := date.AddDate(0, 0, 1)
	return Window{
		BatchID:     constants.BatchEvening,
		Date:        date,
		Start:       at(date, 18, loc),
		End:         at(next, 6, loc),
		Cutoff:      at(next, 3, loc),
		PickupStart: at(next, 8, loc),
		PickupEnd:   at(next, 12, loc),
	}
}

func at(date time.Time, hour int, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, loc)
}
