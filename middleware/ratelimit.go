package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const visitorIdle = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type visitors struct {
	mu    sync.Mutex
	rps   rate.Limit
	burst int
	byIP  map[string]*visitor
}

func (v *visitors) get(ip string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()
	vis, ok := v.byIP[ip]
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(v.rps, v.burst)}
		v.byIP[ip] = vis
	}
	vis.lastSeen = time.Now()
	return vis.limiter
}

func (v *visitors) cleanup() {
	for {
		time.Sleep(time.Minute)
		v.mu.Lock()
		for ip, vis := range v.byIP {
			if time.Since(vis.lastSeen) > visitorIdle {
				delete(v.byIP, ip)
			}
		}
		v.mu.Unlock()
	}
}

// RateLimit allows rps requests per second per client IP with the given
// burst. A non-positive rps disables limiting.
func RateLimit(rps float64, burst int) fiber.Handler {
	if rps <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	v := &visitors{rps: rate.Limit(rps), burst: burst, byIP: map[string]*visitor{}}
	go v.cleanup()

	return func(c *fiber.Ctx) error {
		if !v.get(c.IP()).Allow() {
			return JsonResponse(c, fiber.StatusTooManyRequests, false, "Rate limit exceeded", nil)
		}
		return c.Next()
	}
}
