package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stockyourlot/internal/constants"
)

// Date 不含时区的自然日（数据库 date 列，JSON 输出 YYYY-MM-DD）
type Date struct {
	time.Time
}

// NewDate 截断为 UTC 零点
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DateOf 按年月日构造
func DateOf(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today 当天日期
func Today() Date {
	return NewDate(time.Now())
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(constants.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return NewDate(t), nil
}

// String 返回 YYYY-MM-DD
func (d Date) String() string {
	return d.Time.Format(constants.DateLayout)
}

// Before 严格早于
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After 严格晚于
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Equal 同一天
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// AddDays 日期加减
func (d Date) AddDays(days int) Date {
	return Date{Time: d.Time.AddDate(0, 0, days)}
}

// MonthBounds 返回所在月份的首日与末日
func (d Date) MonthBounds() (Date, Date) {
	first := DateOf(d.Year(), d.Month(), 1)
	return first, Date{Time: first.Time.AddDate(0, 1, -1)}
}

// MarshalJSON 输出 YYYY-MM-DD
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON 解析 YYYY-MM-DD
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value 用于数据库写入；以文本写入使 sqlite 与 postgres 比较语义一致
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan 用于数据库读取
func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		*d = NewDate(v)
		return nil
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", value)
	}
}

func (d *Date) scanText(raw string) error {
	raw = strings.TrimSpace(raw)
	if len(raw) >= len(constants.DateLayout) {
		raw = raw[:len(constants.DateLayout)]
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
