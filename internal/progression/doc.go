// Package progression holds the pure gamification rules: XP to level, RR to
// rank tier, the weekly reward curve, the streak transition, and achievement
// predicates. Nothing here touches storage or the clock.
package progression
