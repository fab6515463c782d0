package model

import "time"

// Sessionは発行済みトークンペア1件分の記録。
// 失効（revoke）と期限の正はこの行。access_token_idはrefreshのたびに差し替わり、
// 直前のJTIはprev_access_token_idに残る（refresh直後も旧accessが期限まで使えるように）。
type Session struct {
	ID                string     `json:"id" gorm:"type:uuid;primaryKey"`
	UserID            int64      `json:"userId" gorm:"not null;index"`
	TenantID          int64      `json:"tenantId" gorm:"not null;index"`
	AccessTokenID     *string    `json:"-" gorm:"type:uuid;index"`
	PrevAccessTokenID *string    `json:"-" gorm:"type:uuid;index"`
	RefreshToken      string     `json:"-" gorm:"not null;uniqueIndex"`
	IsRevoked         bool       `json:"isRevoked" gorm:"not null;default:false"`
	ExpiresAt         time.Time  `json:"expiresAt" gorm:"not null;index"`
	LastUsedAt        *time.Time `json:"lastUsedAt"`
	IPAddress         string     `json:"ipAddress"`
	UserAgent         string     `json:"userAgent"`
	CreatedAt         time.Time  `json:"createdAt"`
}
