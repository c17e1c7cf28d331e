package models

import (
	"time"

	"gorm.io/gorm"
)

// Dealership 车行（激励对象之一）
type Dealership struct {
	ID        uint           `gorm:"primarykey" json:"id"`                        // 主键
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`      // 名称
	Address   string         `gorm:"type:varchar(255);default:''" json:"address"` // 地址
	City      string         `gorm:"type:varchar(100);default:''" json:"city"`    // 城市
	State     string         `gorm:"type:varchar(50);default:''" json:"state"`    // 州
	Zip       string         `gorm:"type:varchar(20);default:''" json:"zip"`      // 邮编
	Phone     string         `gorm:"type:varchar(50);default:''" json:"phone"`    // 电话
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                     // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                  // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                              // 软删除时间
}

// TableName 指定表名
func (Dealership) TableName() string {
	return "dealerships"
}
