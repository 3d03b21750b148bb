package redisx

import "time"

const (
	// Отозванные токены: revoked:{jti} -> 1, живёт до истечения токена
	KeyRevokedToken = "revoked:%s"

	// Токены сброса пароля: pwreset:{token} -> profile_id
	KeyPasswordReset = "pwreset:%s"

	// Кэш админской статистики: stats:admin -> JSON
	KeyAdminStats = "stats:admin"
)

var (
	TTLPasswordReset = time.Hour
	TTLAdminStats    = 5 * time.Minute
)
