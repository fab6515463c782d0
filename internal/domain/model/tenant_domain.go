package model

import "time"

// TenantDomainはホスト名→テナントの対応。
// hostnameは小文字・ポートなしに正規化して保存する。
type TenantDomain struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	TenantID  int64  `gorm:"not null;index"`
	Hostname  string `gorm:"not null;uniqueIndex"`
	IsActive  bool   `gorm:"not null;default:true"`
	IsPrimary bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
