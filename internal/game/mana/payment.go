package mana

import "fmt"

// Plan records how a cost is to be paid from a pool, by mana type.
type Plan struct {
	Spend  map[Type]int
	XValue int
}

// Result is the outcome of solving a payment.
type Result struct {
	OK     bool
	Plan   Plan
	Reason string
}

// Solve computes a payment plan for cost against pool without mutating
// the pool. Colored components require exact types; hybrid components try
// their options in order; generic (and X) components consume colorless
// first, then colored in WUBRG order.
func Solve(cost Cost, pool Pool, xValue int) Result {
	if cost.X && xValue < 0 {
		return Result{Reason: "X value not chosen"}
	}

	work := pool
	plan := Plan{Spend: make(map[Type]int), XValue: xValue}

	for _, t := range Types {
		need := cost.ColoredAmount(t)
		if need == 0 {
			continue
		}
		if !work.Spend(t, need) {
			return Result{Reason: fmt.Sprintf("insufficient {%s} (need %d, have %d)", t, need, pool.Amount(t))}
		}
		plan.Spend[t] += need
	}

	for _, hybrid := range cost.Hybrid {
		if !paySingle(&work, plan.Spend, hybrid.Options) {
			return Result{Reason: "cannot pay hybrid component"}
		}
	}

	generic := cost.Generic
	if cost.X {
		generic += xValue
	}
	if generic > 0 {
		if work.Total() < generic {
			return Result{Reason: fmt.Sprintf("insufficient mana for generic component (need %d, have %d)", generic, work.Total())}
		}
		remaining := generic
		for _, t := range genericOrder {
			if remaining == 0 {
				break
			}
			take := work.Amount(t)
			if take > remaining {
				take = remaining
			}
			if take > 0 {
				work.Spend(t, take)
				plan.Spend[t] += take
				remaining -= take
			}
		}
	}

	return Result{OK: true, Plan: plan}
}

// genericOrder prefers colorless so colored mana stays available.
var genericOrder = []Type{Colorless, White, Blue, Black, Red, Green}

func paySingle(pool *Pool, spend map[Type]int, options []Type) bool {
	for _, opt := range options {
		if opt == Generic {
			for _, t := range genericOrder {
				if pool.Spend(t, 1) {
					spend[t]++
					return true
				}
			}
			continue
		}
		if pool.Spend(opt, 1) {
			spend[opt]++
			return true
		}
	}
	return false
}

// Pay executes a solved plan against the pool. It reports false if the
// pool no longer holds the planned mana, leaving the pool untouched in
// that case.
func Pay(plan Plan, pool *Pool) bool {
	for t, amount := range plan.Spend {
		if pool.Amount(t) < amount {
			return false
		}
	}
	for t, amount := range plan.Spend {
		pool.Spend(t, amount)
	}
	return true
}
