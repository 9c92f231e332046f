package dist

import "math"

// Gradient-based samplers work on an unconstrained latent space. Each prior
// family carries the transform that maps an unconstrained value z to its
// constrained support, so support violations are unrepresentable:
//
//	uniform(a, b)  -> x = a + (b-a)*sigmoid(z)   (logit transform)
//	half-normal    -> x = exp(z)                 (log transform)
//	normal         -> x = z                      (identity)

// Untransform maps an unconstrained value z into the prior's support
func (p Prior) Untransform(z float64) float64 {
	switch p.Family {
	case FamilyUniform:
		return p.Low + (p.High-p.Low)*sigmoid(z)
	case FamilyHalfNormal:
		return math.Exp(z)
	default:
		return z
	}
}

// Transform maps a constrained value x to the unconstrained space
func (p Prior) Transform(x float64) float64 {
	switch p.Family {
	case FamilyUniform:
		u := (x - p.Low) / (p.High - p.Low)
		return math.Log(u) - math.Log1p(-u)
	case FamilyHalfNormal:
		return math.Log(x)
	default:
		return x
	}
}

// DxDz returns the derivative of Untransform at z
func (p Prior) DxDz(z float64) float64 {
	switch p.Family {
	case FamilyUniform:
		s := sigmoid(z)
		return (p.High - p.Low) * s * (1 - s)
	case FamilyHalfNormal:
		return math.Exp(z)
	default:
		return 1
	}
}

// LogDensityJacobian returns the prior log-density at Untransform(z) plus the
// log absolute Jacobian of the transform, and its derivative with respect to
// z. This is the prior's full contribution to the unconstrained joint
// log-density explored by the sampler.
func (p Prior) LogDensityJacobian(z float64) (lp, dlp float64) {
	switch p.Family {
	case FamilyUniform:
		// uniform density cancels against the interval width in the
		// Jacobian, leaving the logistic log-density
		s := sigmoid(z)
		return logSigmoid(z) + logSigmoid(-z), 1 - 2*s
	case FamilyHalfNormal:
		x := math.Exp(z)
		lp = math.Ln2 - lnSqrt2Pi - math.Log(p.Sigma) - x*x/(2*p.Sigma*p.Sigma) + z
		return lp, 1 - x*x/(p.Sigma*p.Sigma)
	default:
		d := (z - p.Mu) / p.Sigma
		lp = -lnSqrt2Pi - math.Log(p.Sigma) - 0.5*d*d
		return lp, -d / p.Sigma
	}
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// logSigmoid computes log(sigmoid(z)) without overflow for large |z|
func logSigmoid(z float64) float64 {
	if z >= 0 {
		return -math.Log1p(math.Exp(-z))
	}
	return z - math.Log1p(math.Exp(z))
}
