package solve

import (
	"math/rand"
	"sort"
)

// assignment is the full forward-pass result for one candidate order:
// every active task gets a start slot (even if never scheduled, since
// a skipped task's zero-length interval still occupies a point in the
// precedence chain that its successors must respect), and scheduled
// tasks additionally get a length.
type assignment map[string]placement

// buildOrder runs Kahn's algorithm over the dependency DAG, breaking
// ties among ready tasks by descending key — the greedy proxy for
// "which task is most valuable to place early" that the rest of the
// search perturbs.
func buildOrder(inst *instance, key map[string]float64) []string {
	indegree := make(map[string]int, len(inst.tasks))
	dependents := make(map[string][]string, len(inst.tasks))
	for _, id := range inst.order {
		for _, dep := range inst.tasks[id].deps {
			if _, ok := inst.tasks[dep]; !ok {
				continue // dependency was filtered out (done, or not active)
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []string
	for _, id := range inst.order {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(inst.order))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			if key[ready[i]] != key[ready[j]] {
				return key[ready[i]] > key[ready[j]]
			}
			return ready[i] < ready[j]
		})
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	return order
}

// place runs the deterministic forward pass for a fixed order: each
// task's start is the max end among its (possibly unscheduled)
// dependencies, and it is greedily scheduled at the first slot at or
// after that point which doesn't collide with a background block or
// an already-placed task, provided it still fits the window. Once
// placed at its nominal duration, the task's length is greedily
// extended toward 2*duration (the spec's len bound) for as long as
// doing so still increases its own utility — this is where the
// utility-maximization stage "pushes U_i tight" without needing to
// search the length dimension itself.
func place(inst *instance, order []string) assignment {
	result := make(assignment, len(order))

	for _, id := range order {
		t := inst.tasks[id]

		earliest := 0
		for _, dep := range t.deps {
			if p, ok := result[dep]; ok {
				end := p.start + p.length
				if end > earliest {
					earliest = end
				}
			}
		}

		start, ok := firstFreeSlot(inst, result, earliest, t.duration)
		if !ok {
			result[id] = placement{start: earliest, length: 0}
			continue
		}
		length := extendLength(inst, result, id, t, start)
		result[id] = placement{start: start, length: length}
	}

	return result
}

// extendLength grows a scheduled task's length past its nominal
// duration one slot at a time, stopping at the first slot that either
// collides, overruns the window, or no longer strictly increases the
// task's own utility (the curve has saturated or a deadline has
// clipped avail) — whichever comes first. It never goes past maxLen.
func extendLength(inst *instance, result assignment, id string, t *taskModel, start int) int {
	length := t.duration
	for length < t.maxLen {
		candidate := length + 1
		if start+candidate > inst.totalSlots {
			break
		}
		if collides(inst, result, id, start, candidate) {
			break
		}
		before := t.utility.Eval(availTime(start, length, t.deadline))
		after := t.utility.Eval(availTime(start, candidate, t.deadline))
		if after <= before {
			break
		}
		length = candidate
	}
	return length
}

// collides reports whether [start, start+length) overlaps a
// background block or any other task's placement already in result.
func collides(inst *instance, result assignment, selfID string, start, length int) bool {
	end := start + length
	for _, b := range inst.background {
		if overlaps(start, end, b.StartSlot, b.EndSlot) {
			return true
		}
	}
	for otherID, p := range result {
		if otherID == selfID || p.length == 0 {
			continue
		}
		if overlaps(start, end, p.start, p.start+p.length) {
			return true
		}
	}
	return false
}

// firstFreeSlot scans forward from earliest for the first start at
// which a block of the given length fits the window without
// colliding with background blocks or tasks already in result.
func firstFreeSlot(inst *instance, result assignment, earliest, length int) (int, bool) {
	if length == 0 {
		return earliest, true
	}
	for start := earliest; start+length <= inst.totalSlots; start++ {
		if !collides(inst, result, "", start, length) {
			return start, true
		}
	}
	return 0, false
}

// scoreFn evaluates an assignment into a single comparable score.
type scoreFn func(inst *instance, a assignment) int

func totalUtilityScore(inst *instance, a assignment) int {
	sum := 0
	for id, p := range a {
		if p.length == 0 {
			continue
		}
		t := inst.tasks[id]
		avail := availTime(p.start, p.length, t.deadline)
		sum += t.utility.Eval(avail)
	}
	return sum
}

func totalCUFScore(inst *instance, a assignment) int {
	sum := 0
	for id, p := range a {
		if p.length == 0 {
			continue
		}
		t := inst.tasks[id]
		avail := availTime(p.start, p.length, t.deadline)
		u := t.utility.Eval(avail)
		end := p.start + p.length
		sum += t.integral.Eval(avail) + u*(inst.totalSlots-end)
	}
	return sum
}

func totalLength(a assignment) int {
	sum := 0
	for _, p := range a {
		sum += p.length
	}
	return sum
}

// anneal searches over random perturbations of the tie-break keys
// driving buildOrder, keeping the best assignment found under score
// (maximized) subject to floor holding (floor always holds for a
// no-op floor function). It never returns something worse than the
// starting assignment.
func anneal(inst *instance, initialKey map[string]float64, score scoreFn, floor func(assignment) bool, iterations int, rng *rand.Rand) (assignment, map[string]float64) {
	bestKey := cloneKey(initialKey)
	bestOrder := buildOrder(inst, bestKey)
	best := place(inst, bestOrder)
	bestScore := score(inst, best)
	if !floor(best) {
		bestScore = -1 << 31
	}

	curKey := cloneKey(bestKey)
	curScore := bestScore

	for iter := 0; iter < iterations; iter++ {
		candKey := cloneKey(curKey)
		perturbKey(candKey, inst.order, rng)

		candOrder := buildOrder(inst, candKey)
		cand := place(inst, candOrder)
		if !floor(cand) {
			continue
		}
		candScore := score(inst, cand)

		temperature := 1.0 - float64(iter)/float64(iterations+1)
		accept := candScore >= curScore
		if !accept && temperature > 0 {
			delta := float64(candScore - curScore)
			accept = rng.Float64() < expDecay(delta, temperature)
		}
		if accept {
			curKey = candKey
			curScore = candScore
			if candScore > bestScore {
				bestScore = candScore
				bestKey = cloneKey(candKey)
				best = cand
			}
		}
	}

	return best, bestKey
}

func expDecay(delta, temperature float64) float64 {
	if delta >= 0 {
		return 1
	}
	x := delta / (temperature * 50)
	if x < -50 {
		return 0
	}
	return expApprox(x)
}

// expApprox is a small, dependency-free e^x for x <= 0, accurate
// enough to drive acceptance probabilities.
func expApprox(x float64) float64 {
	if x > 0 {
		x = 0
	}
	// exp(x) via repeated squaring of exp(x/2^k), k chosen so x/2^k is small.
	k := 0
	v := x
	for v < -0.01 {
		v /= 2
		k++
	}
	e := 1 + v + v*v/2
	for ; k > 0; k-- {
		e *= e
	}
	return e
}

func cloneKey(m map[string]float64) map[string]float64 {
	c := make(map[string]float64, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// perturbKey jitters a handful of random tasks' keys, which reshuffles
// tie-breaking within buildOrder's Kahn sweep and so explores
// different valid topological orders without ever violating
// precedence.
func perturbKey(key map[string]float64, ids []string, rng *rand.Rand) {
	if len(ids) == 0 {
		return
	}
	n := 1 + rng.Intn(3)
	for i := 0; i < n; i++ {
		id := ids[rng.Intn(len(ids))]
		key[id] += (rng.Float64() - 0.5) * 2
	}
}
