package models

import (
	"time"
)

// Purchase 车辆采购记录
type Purchase struct {
	ID               uint      `gorm:"primarykey" json:"id"`                                   // 主键
	BuyerID          uint      `gorm:"not null;index" json:"buyer_id"`                         // 采购经纪人
	DealershipID     uint      `gorm:"not null;index" json:"dealership_id"`                    // 车行
	PurchaseDate     Date      `gorm:"type:date;not null;index" json:"date"`                   // 采购日期
	AuctionPlatform  string    `gorm:"type:varchar(100);not null" json:"auction_platform"`     // 拍卖平台
	VIN              string    `gorm:"column:vin;type:varchar(17);not null;index" json:"vin"`  // 车架号
	Miles            *int      `json:"miles"`                                                  // 里程
	PurchasePrice    Money     `gorm:"type:decimal(12,2);not null" json:"purchase_price"`      // 采购价
	VehicleYear      string    `gorm:"type:varchar(10);default:''" json:"vehicle_year"`        // 年款
	VehicleMake      string    `gorm:"type:varchar(100);default:''" json:"vehicle_make"`       // 品牌
	VehicleModel     string    `gorm:"type:varchar(100);default:''" json:"vehicle_model"`      // 车型
	VehicleTrimLevel string    `gorm:"type:varchar(100);default:''" json:"vehicle_trim_level"` // 配置
	TransportQuote   *Money    `gorm:"type:decimal(12,2)" json:"transport_quote"`              // 运输报价
	CreatedAt        time.Time `gorm:"index" json:"created_at"`                                // 创建时间
	UpdatedAt        time.Time `json:"updated_at"`                                             // 更新时间

	Buyer       *User                 `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`           // 经纪人
	Dealership  *Dealership           `gorm:"foreignKey:DealershipID" json:"dealership,omitempty"` // 车行
	Settlements []IncentiveSettlement `gorm:"foreignKey:PurchaseID" json:"settlements,omitempty"`  // 结算记录
}

// TableName 指定表名
func (Purchase) TableName() string {
	return "purchases"
}
