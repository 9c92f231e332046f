package inference

import (
	"math"
	"math/rand"
)

// target is what the sampler needs from a model: the dimensionality of the
// unconstrained latent vector and its joint log-density with gradient.
type target interface {
	Dim() int
	logDensity(z, grad []float64) float64
}

// deltaMax is the energy-error threshold beyond which a trajectory is
// declared divergent (Hoffman & Gelman 2014).
const deltaMax = 1000.0

// nuts is the No-U-Turn sampler kernel: multiplicative doubling of leapfrog
// trajectories until a U-turn, slice sampling over the trajectory, dual
// averaging of the step size toward a target acceptance statistic, and a
// diagonal metric.
type nuts struct {
	t        target
	rng      *rand.Rand
	dim      int
	maxDepth int

	eps     float64
	invMass []float64 // diagonal of the inverse metric

	// dual-averaging state (Hoffman & Gelman, algorithm 6)
	accept    float64
	mu        float64
	hBar      float64
	logEpsBar float64
	adaptStep int
}

type stepStats struct {
	alpha     float64 // mean Metropolis acceptance statistic of the trajectory
	divergent bool
	depth     int
	logProb   float64
}

func newNUTS(t target, rng *rand.Rand, targetAccept float64, maxDepth int) *nuts {
	dim := t.Dim()
	invMass := make([]float64, dim)
	for i := range invMass {
		invMass[i] = 1
	}
	return &nuts{
		t:        t,
		rng:      rng,
		dim:      dim,
		maxDepth: maxDepth,
		eps:      0.1,
		invMass:  invMass,
		accept:   targetAccept,
	}
}

// setMetric installs a new diagonal inverse metric (posterior variances)
func (s *nuts) setMetric(invMass []float64) {
	copy(s.invMass, invMass)
}

// initStepSize finds a reasonable initial step size at z and resets the
// dual-averaging state around it.
func (s *nuts) initStepSize(z []float64) {
	s.eps = s.findReasonableEpsilon(z)
	s.mu = math.Log(10 * s.eps)
	s.hBar = 0
	s.logEpsBar = 0
	s.adaptStep = 0
}

// adapt performs one dual-averaging update from the last trajectory's
// acceptance statistic.
func (s *nuts) adapt(alpha float64) {
	const (
		gamma = 0.05
		t0    = 10.0
		kappa = 0.75
	)
	s.adaptStep++
	t := float64(s.adaptStep)

	s.hBar = (1-1/(t+t0))*s.hBar + (s.accept-alpha)/(t+t0)
	logEps := s.mu - math.Sqrt(t)/gamma*s.hBar
	eta := math.Pow(t, -kappa)
	s.logEpsBar = eta*logEps + (1-eta)*s.logEpsBar
	s.eps = math.Exp(logEps)
}

// freezeStepSize fixes the step size to the dual-averaging iterate for the
// sampling phase.
func (s *nuts) freezeStepSize() {
	if s.adaptStep > 0 {
		s.eps = math.Exp(s.logEpsBar)
	}
}

func (s *nuts) samplePotential() []float64 {
	p := make([]float64, s.dim)
	for i := range p {
		p[i] = s.rng.NormFloat64() / math.Sqrt(s.invMass[i])
	}
	return p
}

func (s *nuts) kinetic(p []float64) float64 {
	k := 0.0
	for i, v := range p {
		k += 0.5 * v * v * s.invMass[i]
	}
	return k
}

// leapfrog advances (z, p) by one step of size eps, reusing grad as the
// gradient at the new point. Returns the new log-density.
func (s *nuts) leapfrog(z, p, grad []float64, eps float64) float64 {
	for i := range p {
		p[i] += 0.5 * eps * grad[i]
	}
	for i := range z {
		z[i] += eps * s.invMass[i] * p[i]
	}
	lp := s.t.logDensity(z, grad)
	for i := range p {
		p[i] += 0.5 * eps * grad[i]
	}
	return lp
}

// findReasonableEpsilon is the doubling/halving heuristic of algorithm 4
func (s *nuts) findReasonableEpsilon(z0 []float64) float64 {
	eps := 1.0
	grad := make([]float64, s.dim)
	lp0 := s.t.logDensity(z0, grad)

	p := s.samplePotential()
	joint0 := lp0 - s.kinetic(p)

	trial := func(eps float64) float64 {
		z := append([]float64(nil), z0...)
		pp := append([]float64(nil), p...)
		g := append([]float64(nil), grad...)
		lp := s.leapfrog(z, pp, g, eps)
		j := lp - s.kinetic(pp)
		if math.IsNaN(j) {
			return math.Inf(-1)
		}
		return j
	}

	dir := 1.0
	if trial(eps)-joint0 <= math.Log(0.5) {
		dir = -1.0
	}
	for i := 0; i < 64; i++ {
		if dir*(trial(eps)-joint0) <= -dir*math.Ln2 {
			break
		}
		eps *= math.Pow(2, dir)
	}
	return eps
}

// tree holds the state of one NUTS trajectory subtree
type tree struct {
	zMinus, pMinus, gMinus []float64
	zPlus, pPlus, gPlus    []float64
	zProp                  []float64
	lpProp                 float64
	n                      int
	stop                   bool
	alphaSum               float64
	nAlpha                 int
	divergent              bool
}

// step runs one NUTS transition from z, returning the next point
func (s *nuts) step(z []float64) ([]float64, stepStats) {
	grad := make([]float64, s.dim)
	lp := s.t.logDensity(z, grad)
	p := s.samplePotential()
	joint0 := lp - s.kinetic(p)

	// slice variable in log space
	logu := joint0 + math.Log(1-s.rng.Float64())

	cur := &tree{
		zMinus: append([]float64(nil), z...),
		pMinus: append([]float64(nil), p...),
		gMinus: append([]float64(nil), grad...),
		zPlus:  append([]float64(nil), z...),
		pPlus:  append([]float64(nil), p...),
		gPlus:  append([]float64(nil), grad...),
		zProp:  append([]float64(nil), z...),
		lpProp: lp,
		n:      1,
	}

	stats := stepStats{logProb: lp}
	depth := 0
	for depth < s.maxDepth {
		var sub *tree
		if s.rng.Float64() < 0.5 {
			sub = s.buildTree(cur.zMinus, cur.pMinus, cur.gMinus, logu, -1, depth, joint0)
			cur.zMinus, cur.pMinus, cur.gMinus = sub.zMinus, sub.pMinus, sub.gMinus
		} else {
			sub = s.buildTree(cur.zPlus, cur.pPlus, cur.gPlus, logu, +1, depth, joint0)
			cur.zPlus, cur.pPlus, cur.gPlus = sub.zPlus, sub.pPlus, sub.gPlus
		}

		stats.alpha += sub.alphaSum
		stats.divergent = stats.divergent || sub.divergent
		cur.nAlpha += sub.nAlpha

		if sub.stop {
			break
		}
		if sub.n > 0 && s.rng.Float64() < float64(sub.n)/float64(cur.n) {
			cur.zProp = sub.zProp
			cur.lpProp = sub.lpProp
		}
		cur.n += sub.n
		depth++

		if s.uTurn(cur.zMinus, cur.zPlus, cur.pMinus, cur.pPlus) {
			break
		}
	}

	if cur.nAlpha > 0 {
		stats.alpha /= float64(cur.nAlpha)
	}
	stats.depth = depth
	stats.logProb = cur.lpProp
	return cur.zProp, stats
}

// buildTree recursively doubles the trajectory in direction v (algorithm 3)
func (s *nuts) buildTree(z, p, grad []float64, logu float64, v int, depth int, joint0 float64) *tree {
	if depth == 0 {
		zNew := append([]float64(nil), z...)
		pNew := append([]float64(nil), p...)
		gNew := append([]float64(nil), grad...)
		lp := s.leapfrog(zNew, pNew, gNew, float64(v)*s.eps)

		joint := lp - s.kinetic(pNew)
		if math.IsNaN(joint) {
			joint = math.Inf(-1)
		}

		t := &tree{
			zMinus: zNew, pMinus: pNew, gMinus: gNew,
			zPlus: zNew, pPlus: pNew, gPlus: gNew,
			zProp: zNew, lpProp: lp,
		}
		if logu <= joint {
			t.n = 1
		}
		if logu >= joint+deltaMax {
			t.stop = true
			t.divergent = true
		}
		alpha := math.Exp(joint - joint0)
		if math.IsNaN(alpha) || math.IsInf(joint, -1) {
			alpha = 0
		} else if alpha > 1 {
			alpha = 1
		}
		t.alphaSum = alpha
		t.nAlpha = 1
		return t
	}

	// first half
	left := s.buildTree(z, p, grad, logu, v, depth-1, joint0)
	if left.stop {
		return left
	}

	// second half continues from the moving edge
	var right *tree
	if v < 0 {
		right = s.buildTree(left.zMinus, left.pMinus, left.gMinus, logu, v, depth-1, joint0)
		left.zMinus, left.pMinus, left.gMinus = right.zMinus, right.pMinus, right.gMinus
	} else {
		right = s.buildTree(left.zPlus, left.pPlus, left.gPlus, logu, v, depth-1, joint0)
		left.zPlus, left.pPlus, left.gPlus = right.zPlus, right.pPlus, right.gPlus
	}

	total := left.n + right.n
	if right.n > 0 && total > 0 && s.rng.Float64() < float64(right.n)/float64(total) {
		left.zProp = right.zProp
		left.lpProp = right.lpProp
	}
	left.n = total
	left.alphaSum += right.alphaSum
	left.nAlpha += right.nAlpha
	left.divergent = left.divergent || right.divergent
	left.stop = right.stop || s.uTurn(left.zMinus, left.zPlus, left.pMinus, left.pPlus)
	return left
}

// uTurn checks the no-U-turn termination criterion across the trajectory
// endpoints, under the diagonal metric.
func (s *nuts) uTurn(zMinus, zPlus, pMinus, pPlus []float64) bool {
	var dotMinus, dotPlus float64
	for i := range zMinus {
		dz := zPlus[i] - zMinus[i]
		dotMinus += dz * s.invMass[i] * pMinus[i]
		dotPlus += dz * s.invMass[i] * pPlus[i]
	}
	return dotMinus < 0 || dotPlus < 0
}
