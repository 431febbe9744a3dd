package cache

import "fmt"

// ChatCountKey is the per-job chat message counter.
func ChatCountKey(jobID string) string {
	return fmt.Sprintf("chat:count:%s", jobID)
}

// SubmitRateKey is the per-IP submission rate-limit counter.
func SubmitRateKey(ip string) string {
	return fmt.Sprintf("ratelimit:submit:%s", ip)
}
