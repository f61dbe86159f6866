package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/hotel-tip-core/config"
)

// GeneratePayoutNo 生成打款单号
func GeneratePayoutNo() string {
	prefix := "PO"
	if config.Cfg != nil && config.Cfg.Payout.PayoutPrefix != "" {
		prefix = config.Cfg.Payout.PayoutPrefix
	}
	timestamp := time.Now().Format("20060102150405")
	random := rand.Intn(10000)
	return fmt.Sprintf("%s%s%04d", prefix, timestamp, random)
}
