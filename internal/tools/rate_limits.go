// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package tools

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures rate limits and cooldowns for tools.
// A zero DefaultPerMinute leaves tools without a per-minute budget.
type RateLimitConfig struct {
	DefaultPerMinute int
	PerTool          map[string]int
	Cooldowns        map[string]time.Duration
}

// DefaultRateLimitConfig returns the default rate limiting configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		PerTool: map[string]int{
			"get_alerts":   30,
			"get_forecast": 30,
		},
	}
}

func (c RateLimitConfig) perMinute(name string) int {
	if c.PerTool != nil {
		if limit, ok := c.PerTool[name]; ok {
			return limit
		}
	}
	return c.DefaultPerMinute
}

func (c RateLimitConfig) cooldown(name string) time.Duration {
	if c.Cooldowns == nil {
		return 0
	}
	return c.Cooldowns[name]
}

type toolRateLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	cooldown    time.Duration
	nextAllowed time.Time
}

func newToolRateLimiter(ratePerMinute int, cooldown time.Duration) *toolRateLimiter {
	if ratePerMinute <= 0 && cooldown <= 0 {
		return nil
	}

	rl := &toolRateLimiter{cooldown: cooldown}
	if ratePerMinute > 0 {
		interval := time.Minute / time.Duration(ratePerMinute)
		if interval <= 0 {
			interval = time.Second
		}
		rl.limiter = rate.NewLimiter(rate.Every(interval), ratePerMinute)
	}
	return rl
}

func (r *toolRateLimiter) Allow() error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if !r.nextAllowed.IsZero() && now.Before(r.nextAllowed) {
		return fmt.Errorf("%w: retry after %s", ErrToolInCooldown, r.nextAllowed.Sub(now).Round(time.Second))
	}

	if r.limiter != nil && !r.limiter.AllowN(now, 1) {
		return ErrToolRateLimited
	}

	if r.cooldown > 0 {
		r.nextAllowed = now.Add(r.cooldown)
	}
	return nil
}
